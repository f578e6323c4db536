package repository

import (
	"context"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// Table names of the store.
const (
	TableRaw       = "raw_data"
	TableProcessed = "processed_transactions"
)

// TransactionRepository defines the write side of the store. Each insert is
// all-or-nothing: a failed batch leaves no rows behind.
type TransactionRepository interface {
	// InsertRaw appends raw records to raw_data and returns the number of rows written
	InsertRaw(ctx context.Context, records []domain.RawRecord) (int, error)

	// InsertProcessed appends cleaned records to processed_transactions
	InsertProcessed(ctx context.Context, records []domain.CleanedRecord) (int, error)

	// InitSchema creates both tables if they don't exist
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}

// Summary holds headline counts over processed_transactions.
type Summary struct {
	TotalTransactions int64
	TotalFrauds       int64
}

// BreakdownGroups lists the processed_transactions columns a breakdown may
// group by, in display order.
var BreakdownGroups = []string{"hour", "day_of_week", "month", "year", "gender", "category", "job_category", "state"}

// IsBreakdownGroup reports whether groupBy is one of BreakdownGroups.
func IsBreakdownGroup(groupBy string) bool {
	for _, g := range BreakdownGroups {
		if g == groupBy {
			return true
		}
	}
	return false
}

// GroupCount is one group of a fraud breakdown.
type GroupCount struct {
	GroupValue string
	TotalCount int64
	FraudCount int64
}

// MerchantCount is a merchant ranked by fraud count.
type MerchantCount struct {
	Merchant    string
	FraudCount  int64
	FraudAmount float64
}

// AnalyticsRepository defines the read-only queries the dashboard runs.
type AnalyticsRepository interface {
	Summary(ctx context.Context) (*Summary, error)
	Breakdown(ctx context.Context, groupBy string) ([]GroupCount, error)
	TopMerchants(ctx context.Context, limit int) ([]MerchantCount, error)
	Ping(ctx context.Context) error
}
