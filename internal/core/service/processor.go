package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/shopworks/e-shop/internal/core/port"
)

var _ port.ImageProcessor = (*ImageService)(nil)

// Metadata written with every derived thumbnail object.
const (
	ThumbnailContentType  = "image/webp"
	ThumbnailCacheControl = "public, max-age=31536000"
)

// ImageService executes one image processing job: download the
// original, derive the thumbnail, upload it under the thumbnails
// namespace and record the path on the owning product.
//
// Every step error propagates to the queue as a job failure; the
// whole sequence is idempotent, so queue-level retries restart from
// the download safely.
type ImageService struct {
	objects     port.ObjectStorage
	thumbnailer port.Thumbnailer
	products    port.ProductImagesStorage
	events      port.ImageEventsProducer
}

func NewImageService(
	objects port.ObjectStorage,
	thumbnailer port.Thumbnailer,
	products port.ProductImagesStorage,
	events port.ImageEventsProducer,
) ImageService {
	return ImageService{objects, thumbnailer, products, events}
}

func (s ImageService) ProcessJob(
	ctx context.Context, jobID string, job domain.ImageProcessingJob,
) (string, error) {
	const op = "ImageService.ProcessJob"
	log := slog.With("op", op, "jobID", jobID,
		"objectPath", job.ObjectPath, "productID", job.ProductID)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	// The receiver filters non-original paths already, but jobs can
	// also arrive via the simulation endpoint, so the namespace rule
	// is re-checked before any write happens.
	thumbnailPath, err := domain.ThumbnailObjectPath(job.ObjectPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("downloading original")
	original, err := s.objects.Download(ctx, job.Bucket, job.ObjectPath)
	if err != nil {
		return "", fmt.Errorf("%s: download: %w", op, err)
	}

	log.Info("deriving thumbnail")
	thumbnail, err := s.thumbnailer.Thumbnail(original)
	if err != nil {
		return "", fmt.Errorf("%s: thumbnail: %w", op, err)
	}

	log.Info("uploading thumbnail", "thumbnailPath", thumbnailPath)
	err = s.objects.Upload(ctx, job.Bucket, thumbnailPath, thumbnail,
		port.UploadMeta{
			ContentType:  ThumbnailContentType,
			CacheControl: ThumbnailCacheControl,
		},
	)
	if err != nil {
		return "", fmt.Errorf("%s: upload: %w", op, err)
	}

	err = s.products.UpdateThumbnailPath(ctx, job.ProductID, thumbnailPath)
	if err != nil {
		return "", fmt.Errorf("%s: update product: %w", op, err)
	}

	log.Info("image processing completed", "thumbnailPath", thumbnailPath)
	return thumbnailPath, nil
}

// ReportOutcome publishes the terminal job outcome for observers.
// Best effort: a broker failure must not fail or retry the job itself.
func (s ImageService) ReportOutcome(
	ctx context.Context, e domain.ImageProcessedEvent,
) {
	const op = "ImageService.ReportOutcome"

	if s.events == nil {
		return
	}
	if err := s.events.ProduceProcessed(ctx, e); err != nil {
		slog.Error("failed to produce image event",
			"op", op, "jobID", e.JobID, "err", err)
	}
}
