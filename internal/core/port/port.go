package port

import (
	"context"
	"time"

	"github.com/shopworks/e-shop/internal/core/domain"
)

// Inbound ports (offered by the core service).

type ObjectEventAccepter interface {
	AcceptObjectEvent(
		context.Context, domain.StorageObjectEvent,
	) (domain.JobHandle, error)
}

type ImageURLIssuer interface {
	NewImageUploadURL(
		ctx context.Context, productID, contentType string,
	) (uploadURL, objectPath string, err error)
	ImageReadURL(ctx context.Context, productID string) (string, error)
	ThumbnailReadURL(ctx context.Context, productID string) (string, error)
}

type ImageProcessor interface {
	ProcessJob(
		ctx context.Context, jobID string, job domain.ImageProcessingJob,
	) (thumbnailPath string, err error)
}

// Outbound ports (consumed capabilities).

type ImageJobDispatcher interface {
	Dispatch(
		context.Context, domain.ImageProcessingJob,
	) (domain.JobHandle, error)
}

type UploadMeta struct {
	ContentType  string
	CacheControl string
}

type ObjectStorage interface {
	Download(ctx context.Context, bucket, objectPath string) ([]byte, error)
	Upload(
		ctx context.Context,
		bucket, objectPath string,
		data []byte,
		meta UploadMeta,
	) error
}

type ObjectURLSigner interface {
	SignUploadURL(
		ctx context.Context, objectPath, contentType string, ttl time.Duration,
	) (string, error)
	SignReadURL(
		ctx context.Context, objectPath string, ttl time.Duration,
	) (string, error)
}

type ProductImagesStorage interface {
	ReadImagePaths(
		ctx context.Context, productID string,
	) (domain.ProductImagePaths, error)
	SetImagePath(ctx context.Context, productID, imagePath string) error
	UpdateThumbnailPath(
		ctx context.Context, productID, thumbnailPath string,
	) error
}

type Thumbnailer interface {
	Thumbnail(original []byte) ([]byte, error)
}

type ImageEventsProducer interface {
	ProduceProcessed(context.Context, domain.ImageProcessedEvent) error
}
