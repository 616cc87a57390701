package kafka

import (
	"context"
	"log/slog"

	"github.com/shopworks/e-shop/internal/core/domain"
	"github.com/shopworks/e-shop/internal/core/port"
	"github.com/shopworks/e-shop/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.ImageEventsProducer = (*ImageEventsProducer)(nil)

// An ImageEventsProducer publishes terminal image-processing
// outcomes, keyed by product id, for downstream observers.
type ImageEventsProducer struct {
	cl       ProducerClient
	encoder  Encoder
	opPrefix string
}

func NewImageEventsProducer(
	opts ...ProducerOpt,
) (ImageEventsProducer, error) {
	const op = "NewImageEventsProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return ImageEventsProducer{}, opErr(err, op)
		}
	}

	return ImageEventsProducer{
		cl:       options.cl,
		encoder:  options.encoder,
		opPrefix: "ImageEventsProducer",
	}, nil
}

func (p ImageEventsProducer) Close() {
	const op = "Close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p ImageEventsProducer) ProduceProcessed(
	ctx context.Context, v domain.ImageProcessedEvent,
) error {
	const op = "ProduceProcessed"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(v)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	res := p.cl.ProduceSync(ctx, &r)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

func (p ImageEventsProducer) createRecord(
	v domain.ImageProcessedEvent,
) (kgo.Record, error) {
	const op = "createRecord"

	s := p.toSchema(v)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return kgo.Record{}, opErr(err, p.opPrefix, op)
	}
	return kgo.Record{Key: []byte(s.ProductID), Value: b}, nil
}

func (ImageEventsProducer) toSchema(
	v domain.ImageProcessedEvent,
) (s schema.ImageProcessedEventV1) {
	s.JobID = v.JobID
	s.ProductID = v.ProductID
	s.Bucket = v.Bucket
	s.ObjectPath = v.ObjectPath
	s.ThumbnailPath = v.ThumbnailPath
	s.Status = string(v.Status)
	s.Error = v.Error
	s.Attempts = v.Attempts
	return s
}
