package httphandler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/shopworks/e-shop/internal/core/port"
)

// WebhooksHandler receives object-store push notifications. It only
// validates and filters; the HTTP response never waits on the
// asynchronous processing itself, so the push sender gets its ack
// promptly and owns redelivery of lost responses.
type WebhooksHandler struct {
	accepter port.ObjectEventAccepter
	validate *validator.Validate
}

// RegisterWebhooks mounts the notification endpoint and, outside
// production, the simulation endpoint. In production the simulate
// route is absent and the mux answers 404.
func RegisterWebhooks(
	mux *http.ServeMux, accepter port.ObjectEventAccepter, production bool,
) {
	h := WebhooksHandler{
		accepter: accepter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	mux.HandleFunc("POST /webhooks/gcs", h.Notification)
	if !production {
		mux.HandleFunc("POST /webhooks/gcs/simulate", h.Simulate)
	}
}

func (h WebhooksHandler) Notification(w http.ResponseWriter, r *http.Request) {
	const op = "WebhooksHandler.Notification"
	log := slog.With("op", op)

	var envelope PushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Warn("failed to parse envelope JSON", "err", err)
		writeJSON(w, http.StatusBadRequest,
			MessageResponse{Message: "invalid JSON body"})
		return
	}

	if issues := h.check(envelope); issues != nil {
		log.Warn("invalid envelope", "issues", len(issues))
		writeJSON(w, http.StatusBadRequest, MessageResponse{
			Message: "invalid push envelope",
			Issues:  issues,
		})
		return
	}

	notification, ok := decodeNotification(envelope.Message.Data)
	if !ok {
		writeJSON(w, http.StatusBadRequest, MessageResponse{
			Message: "invalid base64 or JSON in message.data",
		})
		return
	}

	if err := h.validate.Struct(notification); err != nil {
		log.Warn("invalid object notification format",
			"kind", notification.Kind, "name", notification.Name)
		writeJSON(w, http.StatusBadRequest, MessageResponse{
			Message: "invalid object notification format",
		})
		return
	}

	event := domain.StorageObjectEvent{
		Bucket:     notification.Bucket,
		ObjectPath: notification.Name,
		EventType:  notification.EventType,
	}

	_, err := h.accepter.AcceptObjectEvent(r.Context(), event)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK,
			MessageResponse{Message: "job enqueued"})
	case errors.Is(err, domain.ErrNotOriginalObject):
		// Expected traffic: thumbnail writes, deletes, foreign
		// prefixes. A success status keeps the sender from retrying.
		log.Info("ignoring non-original object",
			"objectPath", notification.Name)
		writeJSON(w, http.StatusOK,
			MessageResponse{Message: "ignored: not an original upload"})
	case errors.Is(err, domain.ErrNoProductID):
		log.Warn("could not extract product id",
			"objectPath", notification.Name)
		writeJSON(w, http.StatusBadRequest, MessageResponse{
			Message: "could not extract product id from object path",
		})
	default:
		log.Error("failed to dispatch job", "err", err)
		writeJSON(w, http.StatusServiceUnavailable,
			MessageResponse{Message: "failed to enqueue job"})
	}
}

func (h WebhooksHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	const op = "WebhooksHandler.Simulate"
	log := slog.With("op", op)

	var body SimulateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest,
			MessageResponse{Message: "invalid JSON body"})
		return
	}

	if issues := h.check(body); issues != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{
			Message: "invalid simulate body",
			Issues:  issues,
		})
		return
	}

	event := domain.StorageObjectEvent{
		Bucket:     body.Bucket,
		ObjectPath: body.ObjectPath,
	}

	handle, err := h.accepter.AcceptObjectEvent(r.Context(), event)
	switch {
	case err == nil:
		productID, _ := domain.ParseOriginalObjectPath(body.ObjectPath)
		writeJSON(w, http.StatusOK, SimulateResponse{
			Message: "job enqueued (simulated)",
			JobID:   handle.ID,
			Data: SimulateData{
				Bucket:     body.Bucket,
				ObjectPath: body.ObjectPath,
				ProductID:  productID,
			},
		})
	case errors.Is(err, domain.ErrNotOriginalObject):
		writeJSON(w, http.StatusBadRequest, MessageResponse{
			Message: `objectPath must start with "originals/"`,
		})
	case errors.Is(err, domain.ErrNoProductID):
		writeJSON(w, http.StatusBadRequest, MessageResponse{
			Message: "could not extract product id from objectPath",
		})
	default:
		log.Error("failed to dispatch job", "err", err)
		writeJSON(w, http.StatusServiceUnavailable,
			MessageResponse{Message: "failed to enqueue job"})
	}
}

// check validates v and flattens validator errors into response
// issues.
func (h WebhooksHandler) check(v any) []Issue {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return []Issue{{Field: "", Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(vErrs))
	for _, fe := range vErrs {
		issues = append(issues, Issue{
			Field:   fe.Namespace(),
			Message: "failed on rule: " + fe.Tag(),
		})
	}
	return issues
}

func decodeNotification(data string) (ObjectNotification, bool) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return ObjectNotification{}, false
	}

	var n ObjectNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return ObjectNotification{}, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "err", err)
	}
}
