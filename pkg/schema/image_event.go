package schema

const ImageProcessedEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "images",
	"name": "image_processed_event",
	"fields" : [
		{"name": "job_id", "type": "string"},
		{"name": "product_id", "type": "string"},
		{"name": "bucket", "type": "string"},
		{"name": "object_path", "type": "string"},
		{"name": "thumbnail_path", "type": "string"},
		{"name": "status", "type": "string"},
		{"name": "error", "type": "string"},
		{"name": "attempts", "type": "int"}
	]
}`

type ImageProcessedEventV1 struct {
	JobID         string `avro:"job_id"`
	ProductID     string `avro:"product_id"`
	Bucket        string `avro:"bucket"`
	ObjectPath    string `avro:"object_path"`
	ThumbnailPath string `avro:"thumbnail_path"`
	Status        string `avro:"status"`
	Error         string `avro:"error"`
	Attempts      int    `avro:"attempts"`
}
