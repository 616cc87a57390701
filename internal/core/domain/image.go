package domain

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Object paths are namespaced to break webhook feedback loops:
// the store notifies about every written object, so the worker writes
// derived artifacts under a prefix the receiver never dispatches on.
const (
	OriginalsPrefix  = "originals/"
	ThumbnailsPrefix = "thumbnails/"
)

// ThumbnailExt is the extension of every derived thumbnail object.
const ThumbnailExt = ".webp"

var (
	ErrNotOriginalObject = errors.New("object path is not under originals namespace")
	ErrNoProductID       = errors.New("object path has no product id segment")
	ErrProductNotFound   = errors.New("product not found")
	ErrNoObjectPath      = errors.New("product has no object path recorded")
)

type (
	// StorageObjectEvent is the decoded object-store notification.
	// Ephemeral, never persisted.
	StorageObjectEvent struct {
		Bucket     string
		ObjectPath string
		EventType  string
	}

	// ImageProcessingJob is the durable unit of work on the queue.
	ImageProcessingJob struct {
		Bucket     string
		ObjectPath string
		ProductID  string
	}

	// JobHandle identifies one enqueued job attempt chain.
	// The ID is assigned by the queue; duplicate dispatches for the
	// same object produce distinct handles.
	JobHandle struct {
		ID string
	}
)

type ImageEventStatus string

const (
	ImageEventCompleted ImageEventStatus = "completed"
	ImageEventFailed    ImageEventStatus = "failed"
)

// ImageProcessedEvent reports the terminal outcome of a job to observers.
type ImageProcessedEvent struct {
	JobID         string
	ProductID     string
	Bucket        string
	ObjectPath    string
	ThumbnailPath string
	Status        ImageEventStatus
	Error         string
	Attempts      int
}

// ParseOriginalObjectPath extracts the owning product id from an
// originals object path of shape "originals/{productID}/{file}".
//
// Returns [ErrNotOriginalObject] for paths outside the originals
// namespace and [ErrNoProductID] when the id segment is missing.
func ParseOriginalObjectPath(objectPath string) (productID string, err error) {
	rest, ok := strings.CutPrefix(objectPath, OriginalsPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotOriginalObject, objectPath)
	}

	productID, _, _ = strings.Cut(rest, "/")
	if productID == "" {
		return "", fmt.Errorf("%w: %q", ErrNoProductID, objectPath)
	}
	return productID, nil
}

// ThumbnailObjectPath maps an originals object path to the disjoint
// thumbnails namespace, preserving the product id segment and renaming
// the file extension to the thumbnail output format:
//
//	originals/{id}/{name}.{ext} -> thumbnails/{id}/{name}.webp
func ThumbnailObjectPath(objectPath string) (string, error) {
	productID, err := ParseOriginalObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	_, file, _ := strings.Cut(
		strings.TrimPrefix(objectPath, OriginalsPrefix), "/",
	)
	if file == "" {
		return "", fmt.Errorf("%w: no file segment: %q",
			ErrNotOriginalObject, objectPath)
	}

	base := strings.TrimSuffix(path.Base(file), path.Ext(file))

	return ThumbnailsPrefix + productID + "/" + base + ThumbnailExt, nil
}

// OriginalObjectPath builds the object path for a new original upload.
func OriginalObjectPath(productID, fileName string) string {
	return OriginalsPrefix + productID + "/" + fileName
}
