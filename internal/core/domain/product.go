package domain

// ProductImagePaths is the image-related slice of a product row.
// The worker owns ThumbnailPath; ImagePath is set when an upload URL
// is issued.
type ProductImagePaths struct {
	ProductID     string
	ImagePath     string
	ThumbnailPath string
}
