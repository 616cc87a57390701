package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/shopworks/e-shop/internal/core/port"
)

// UploadsHandler issues time-limited signed object URLs so clients
// upload originals and read derived images straight against the
// object store.
type UploadsHandler struct {
	issuer   port.ImageURLIssuer
	validate *validator.Validate
}

func RegisterUploads(mux *http.ServeMux, issuer port.ImageURLIssuer) {
	h := UploadsHandler{
		issuer:   issuer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	mux.HandleFunc("POST /v1/products/{id}/image/upload-url", h.UploadURL)
	mux.HandleFunc("GET /v1/products/{id}/image-url", h.ImageURL)
	mux.HandleFunc("GET /v1/products/{id}/thumbnail-url", h.ThumbnailURL)
}

func (h UploadsHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	const op = "UploadsHandler.UploadURL"
	log := slog.With("op", op)

	productID := r.PathValue("id")

	var body UploadURLBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest,
			MessageResponse{Message: "invalid JSON body"})
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeJSON(w, http.StatusBadRequest,
			MessageResponse{Message: "contentType is required"})
		return
	}

	uploadURL, objectPath, err := h.issuer.NewImageUploadURL(
		r.Context(), productID, body.ContentType,
	)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound,
				MessageResponse{Message: "product not found"})
			return
		}
		log.Error("failed to issue upload url",
			"productID", productID, "err", err)
		writeJSON(w, http.StatusServiceUnavailable,
			MessageResponse{Message: "failed to issue upload url"})
		return
	}

	writeJSON(w, http.StatusOK, UploadURLResponse{
		UploadURL:  uploadURL,
		ObjectPath: objectPath,
	})
}

func (h UploadsHandler) ImageURL(w http.ResponseWriter, r *http.Request) {
	const op = "UploadsHandler.ImageURL"
	h.readURL(w, r, op, h.issuer.ImageReadURL,
		"product has no image recorded")
}

func (h UploadsHandler) ThumbnailURL(w http.ResponseWriter, r *http.Request) {
	const op = "UploadsHandler.ThumbnailURL"
	h.readURL(w, r, op, h.issuer.ThumbnailReadURL,
		"product has no thumbnail recorded")
}

func (h UploadsHandler) readURL(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	read func(ctx context.Context, productID string) (string, error),
	missingMsg string,
) {
	log := slog.With("op", op)
	productID := r.PathValue("id")

	url, err := read(r.Context(), productID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SignedURLResponse{URL: url})
	case errors.Is(err, domain.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound,
			MessageResponse{Message: "product not found"})
	case errors.Is(err, domain.ErrNoObjectPath):
		writeJSON(w, http.StatusNotFound,
			MessageResponse{Message: missingMsg})
	default:
		log.Error("failed to sign read url",
			"productID", productID, "err", err)
		writeJSON(w, http.StatusServiceUnavailable,
			MessageResponse{Message: "failed to sign url"})
	}
}
