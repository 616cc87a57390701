package httphandler

type (
	// PushEnvelope is the Pub/Sub push wrapper delivered to the
	// webhook endpoint. Message.Data carries base64-encoded JSON.
	PushEnvelope struct {
		Message      PushMessage `json:"message" validate:"required"`
		Subscription string      `json:"subscription"`
	}

	PushMessage struct {
		Data        string `json:"data" validate:"required"`
		MessageID   string `json:"messageId" validate:"required"`
		PublishTime string `json:"publishTime"`
	}

	// ObjectNotification is the decoded storage notification payload.
	// https://cloud.google.com/storage/docs/pubsub-notifications#format
	ObjectNotification struct {
		Kind      string `json:"kind" validate:"required,eq=storage#object"`
		Name      string `json:"name" validate:"required"`
		Bucket    string `json:"bucket" validate:"required"`
		EventType string `json:"eventType"`
	}

	// SimulateBody is the simplified payload of the local-testing
	// endpoint, skipping the envelope and base64 layers.
	SimulateBody struct {
		Bucket     string `json:"bucket" validate:"required"`
		ObjectPath string `json:"objectPath" validate:"required"`
	}

	UploadURLBody struct {
		ContentType string `json:"contentType" validate:"required"`
	}
)

type (
	Issue struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	MessageResponse struct {
		Message string  `json:"message"`
		Issues  []Issue `json:"issues,omitempty"`
	}

	SimulateResponse struct {
		Message string       `json:"message"`
		JobID   string       `json:"jobId"`
		Data    SimulateData `json:"data"`
	}

	SimulateData struct {
		Bucket     string `json:"bucket"`
		ObjectPath string `json:"objectPath"`
		ProductID  string `json:"productId"`
	}

	UploadURLResponse struct {
		UploadURL  string `json:"uploadUrl"`
		ObjectPath string `json:"objectPath"`
	}

	SignedURLResponse struct {
		URL string `json:"url"`
	}
)
