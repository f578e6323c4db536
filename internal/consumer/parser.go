package consumer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// JSONBatchParser implements BatchParser for JSON array payloads
type JSONBatchParser struct{}

// NewJSONBatchParser creates a new JSON batch parser
func NewJSONBatchParser() *JSONBatchParser {
	return &JSONBatchParser{}
}

// ParseRaw parses a JSON array of raw transaction objects
func (p *JSONBatchParser) ParseRaw(body []byte) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	if err := decodeArray(body, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ParseCleaned parses a JSON array of cleaned transaction objects
func (p *JSONBatchParser) ParseCleaned(body []byte) ([]domain.CleanedRecord, error) {
	var records []domain.CleanedRecord
	if err := decodeArray(body, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// decodeArray rejects anything that is not a JSON array of objects. Field
// values are decoded leniently by the domain types.
func decodeArray(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%w: payload is not a JSON array", domain.ErrBatchUnprocessable)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: failed to unmarshal batch: %w", domain.ErrBatchUnprocessable, err)
	}
	return nil
}
