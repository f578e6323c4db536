package consumer

import (
	"context"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// BatchParser decodes a message body into a batch of records
type BatchParser interface {
	ParseRaw(body []byte) ([]domain.RawRecord, error)
	ParseCleaned(body []byte) ([]domain.CleanedRecord, error)
}

// Handler processes one delivery and settles it with the broker. A returned
// error means the delivery could not be settled cleanly.
type Handler interface {
	Handle(ctx context.Context, env *Envelope) error
}
