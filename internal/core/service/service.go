package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/shopworks/e-shop/internal/core/port"
)

var _ port.ObjectEventAccepter = (*Service)(nil)
var _ port.ImageURLIssuer = (*Service)(nil)

// Service is the inbound side of the image pipeline: it filters
// object-store notifications, dispatches processing jobs and issues
// signed object URLs.
type Service struct {
	dispatcher port.ImageJobDispatcher
	signer     port.ObjectURLSigner
	products   port.ProductImagesStorage
	signTTL    time.Duration
}

func New(
	dispatcher port.ImageJobDispatcher,
	signer port.ObjectURLSigner,
	products port.ProductImagesStorage,
	signTTL time.Duration,
) Service {
	return Service{dispatcher, signer, products, signTTL}
}

// AcceptObjectEvent validates the notified object path, extracts the
// owning product id and dispatches exactly one processing job.
//
// Paths outside the originals namespace return
// [domain.ErrNotOriginalObject]: expected traffic (thumbnail writes,
// deletes), not a failure.
func (s Service) AcceptObjectEvent(
	ctx context.Context, e domain.StorageObjectEvent,
) (domain.JobHandle, error) {
	const op = "Service.AcceptObjectEvent"

	if err := ctx.Err(); err != nil {
		return domain.JobHandle{}, fmt.Errorf("%s: %w", op, err)
	}

	productID, err := domain.ParseOriginalObjectPath(e.ObjectPath)
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("%s: %w", op, err)
	}

	job := domain.ImageProcessingJob{
		Bucket:     e.Bucket,
		ObjectPath: e.ObjectPath,
		ProductID:  productID,
	}

	h, err := s.dispatcher.Dispatch(ctx, job)
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("image processing job dispatched",
		"op", op, "jobID", h.ID,
		"objectPath", e.ObjectPath, "productID", productID,
	)
	return h, nil
}

// NewImageUploadURL derives a fresh originals object path for the
// product, records it as the product's image path and signs a PUT URL
// for the client to upload the raw bytes directly.
func (s Service) NewImageUploadURL(
	ctx context.Context, productID, contentType string,
) (uploadURL, objectPath string, err error) {
	const op = "Service.NewImageUploadURL"

	if err := ctx.Err(); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.products.ReadImagePaths(ctx, productID); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	fileName := uuid.New().String() + extByContentType(contentType)
	objectPath = domain.OriginalObjectPath(productID, fileName)

	if err := s.products.SetImagePath(ctx, productID, objectPath); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	uploadURL, err = s.signer.SignUploadURL(
		ctx, objectPath, contentType, s.signTTL,
	)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return uploadURL, objectPath, nil
}

func (s Service) ImageReadURL(
	ctx context.Context, productID string,
) (string, error) {
	const op = "Service.ImageReadURL"
	url, err := s.readURL(ctx, productID, imagePath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}

func (s Service) ThumbnailReadURL(
	ctx context.Context, productID string,
) (string, error) {
	const op = "Service.ThumbnailReadURL"
	url, err := s.readURL(ctx, productID, thumbnailPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}

type pathKind int

const (
	imagePath pathKind = iota
	thumbnailPath
)

func (s Service) readURL(
	ctx context.Context, productID string, kind pathKind,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	paths, err := s.products.ReadImagePaths(ctx, productID)
	if err != nil {
		return "", err
	}

	objectPath := paths.ImagePath
	if kind == thumbnailPath {
		objectPath = paths.ThumbnailPath
	}
	if objectPath == "" {
		return "", domain.ErrNoObjectPath
	}

	return s.signer.SignReadURL(ctx, objectPath, s.signTTL)
}

func extByContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
