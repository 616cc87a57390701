package httphandler_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopworks/e-shop/internal/adapter/httphandler"
	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccepter struct {
	mock.Mock
}

func (m *MockAccepter) AcceptObjectEvent(
	ctx context.Context, e domain.StorageObjectEvent,
) (domain.JobHandle, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(domain.JobHandle), args.Error(1)
}

func newWebhooksServer(
	t *testing.T, accepter *MockAccepter, production bool,
) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	httphandler.RegisterWebhooks(mux, accepter, production)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pushEnvelope(t *testing.T, notification any) string {
	t.Helper()
	raw, err := json.Marshal(notification)
	require.NoError(t, err)
	data := base64.StdEncoding.EncodeToString(raw)
	return fmt.Sprintf(
		`{"message": {"data": %q, "messageId": "msg-1",
		"publishTime": "2024-01-01T00:00:00Z"},
		"subscription": "projects/p/subscriptions/s"}`,
		data,
	)
}

func postJSON(
	t *testing.T, url, body string,
) (int, map[string]any) {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	return res.StatusCode, payload
}

func TestNotification(t *testing.T) {

	t.Run("OriginalUploadEnqueues", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		wantEvent := domain.StorageObjectEvent{
			Bucket:     "shop-images",
			ObjectPath: "originals/P123/photo.png",
			EventType:  "OBJECT_FINALIZE",
		}
		accepter.On("AcceptObjectEvent", mock.Anything, wantEvent).Return(
			domain.JobHandle{ID: "1-0"}, nil,
		)

		body := pushEnvelope(t, map[string]string{
			"kind":      "storage#object",
			"name":      "originals/P123/photo.png",
			"bucket":    "shop-images",
			"eventType": "OBJECT_FINALIZE",
		})

		status, payload := postJSON(t, srv.URL+"/webhooks/gcs", body)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "job enqueued", payload["message"])
		accepter.AssertExpectations(t)
	})

	t.Run("NonOriginalPathAckedAndIgnored", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		accepter.On(
			"AcceptObjectEvent", mock.Anything, mock.Anything,
		).Return(domain.JobHandle{}, domain.ErrNotOriginalObject)

		body := pushEnvelope(t, map[string]string{
			"kind":   "storage#object",
			"name":   "thumbnails/P123/photo.webp",
			"bucket": "shop-images",
		})

		status, payload := postJSON(t, srv.URL+"/webhooks/gcs", body)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ignored: not an original upload", payload["message"])
	})

	t.Run("MalformedEnvelopeListsIssues", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		body := `{"message": {"data": "eyJ9"}, "subscription": "s"}`

		status, payload := postJSON(t, srv.URL+"/webhooks/gcs", body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid push envelope", payload["message"])

		issues, ok := payload["issues"].([]any)
		require.True(t, ok)
		require.NotEmpty(t, issues)
		issue := issues[0].(map[string]any)
		assert.Contains(t, issue["field"], "MessageID")
		accepter.AssertNotCalled(
			t, "AcceptObjectEvent", mock.Anything, mock.Anything,
		)
	})

	t.Run("InvalidBase64Data", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		body := `{"message": {
			"data": "%%%not-base64%%%", "messageId": "msg-1"}}`

		status, payload := postJSON(t, srv.URL+"/webhooks/gcs", body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(
			t, "invalid base64 or JSON in message.data", payload["message"],
		)
	})

	t.Run("WrongNotificationKind", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		body := pushEnvelope(t, map[string]string{
			"kind":   "storage#bucket",
			"name":   "originals/P123/photo.png",
			"bucket": "shop-images",
		})

		status, payload := postJSON(t, srv.URL+"/webhooks/gcs", body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(
			t, "invalid object notification format", payload["message"],
		)
	})

	t.Run("DispatchFailure", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		accepter.On(
			"AcceptObjectEvent", mock.Anything, mock.Anything,
		).Return(domain.JobHandle{}, errors.New("queue unavailable"))

		body := pushEnvelope(t, map[string]string{
			"kind":   "storage#object",
			"name":   "originals/P123/photo.png",
			"bucket": "shop-images",
		})

		status, payload := postJSON(t, srv.URL+"/webhooks/gcs", body)
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "failed to enqueue job", payload["message"])
	})
}

func TestSimulate(t *testing.T) {

	t.Run("OriginalUploadReturnsJobID", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		wantEvent := domain.StorageObjectEvent{
			Bucket:     "shop-images",
			ObjectPath: "originals/P123/photo.png",
		}
		accepter.On("AcceptObjectEvent", mock.Anything, wantEvent).Return(
			domain.JobHandle{ID: "7-0"}, nil,
		)

		body := `{"bucket": "shop-images",
			"objectPath": "originals/P123/photo.png"}`

		status, payload := postJSON(t, srv.URL+"/webhooks/gcs/simulate", body)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "7-0", payload["jobId"])

		data, ok := payload["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "P123", data["productId"])
		assert.Equal(t, "originals/P123/photo.png", data["objectPath"])
	})

	t.Run("NonOriginalPathRejected", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		accepter.On(
			"AcceptObjectEvent", mock.Anything, mock.Anything,
		).Return(domain.JobHandle{}, domain.ErrNotOriginalObject)

		body := `{"bucket": "shop-images",
			"objectPath": "exports/catalog.csv"}`

		status, payload := postJSON(t, srv.URL+"/webhooks/gcs/simulate", body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(
			t, `objectPath must start with "originals/"`, payload["message"],
		)
	})

	t.Run("MissingFieldsListed", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, false)

		status, payload := postJSON(
			t, srv.URL+"/webhooks/gcs/simulate", `{"bucket": "shop-images"}`,
		)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid simulate body", payload["message"])
		require.NotEmpty(t, payload["issues"])
	})

	t.Run("AbsentInProduction", func(t *testing.T) {
		accepter := new(MockAccepter)
		srv := newWebhooksServer(t, accepter, true)

		res, err := http.Post(
			srv.URL+"/webhooks/gcs/simulate",
			"application/json",
			strings.NewReader(`{"bucket": "b", "objectPath": "originals/P1/a"}`),
		)
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}
