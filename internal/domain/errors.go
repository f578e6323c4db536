package domain

import "errors"

// Failure classes shared by every pipeline stage. Callers wrap them with %w
// and inspect them with errors.Is.
var (
	// ErrSourceUnavailable means the dataset is missing or empty.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRecordMalformed marks a single record whose fields cannot be used.
	ErrRecordMalformed = errors.New("record malformed")

	// ErrBatchUnprocessable marks a message body that cannot be decoded as a batch.
	ErrBatchUnprocessable = errors.New("batch unprocessable")

	// ErrPersistenceFailure marks a failed, rolled back store write.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrConnectionLost means the broker or store connection went away.
	ErrConnectionLost = errors.New("connection lost")
)
