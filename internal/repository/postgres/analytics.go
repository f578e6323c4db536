package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Kseniia567/fraud-detection-ADD/internal/repository"
)

// Summary counts all and fraudulent processed transactions
func (r *Repository) Summary(ctx context.Context) (*repository.Summary, error) {
	var s repository.Summary
	row := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total_count,
			COUNT(*) FILTER (WHERE is_fraud) AS fraud_count
		FROM processed_transactions
	`)
	if err := row.Scan(&s.TotalTransactions, &s.TotalFrauds); err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	return &s, nil
}

// Breakdown groups processed transactions by one whitelisted column
func (r *Repository) Breakdown(ctx context.Context, groupBy string) ([]repository.GroupCount, error) {
	// The column is interpolated, so only whitelisted names reach the query.
	if !repository.IsBreakdownGroup(groupBy) {
		return nil, fmt.Errorf("unsupported group_by value: %s", groupBy)
	}
	column := groupBy

	query := fmt.Sprintf(`
		SELECT
			COALESCE(%[1]s::text, 'unknown') AS group_value,
			COUNT(*) AS total_count,
			COUNT(*) FILTER (WHERE is_fraud) AS fraud_count
		FROM processed_transactions
		GROUP BY %[1]s
		ORDER BY %[1]s NULLS LAST
	`, column)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query breakdown by %s: %w", groupBy, err)
	}

	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.GroupCount, error) {
		var g repository.GroupCount
		err := row.Scan(&g.GroupValue, &g.TotalCount, &g.FraudCount)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan breakdown rows: %w", err)
	}
	return groups, nil
}

// TopMerchants ranks merchants by number of fraudulent transactions
func (r *Repository) TopMerchants(ctx context.Context, limit int) ([]repository.MerchantCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			merchant,
			COUNT(*) AS fraud_count,
			COALESCE(SUM(amt), 0) AS fraud_amount
		FROM processed_transactions
		WHERE is_fraud AND merchant IS NOT NULL
		GROUP BY merchant
		ORDER BY fraud_count DESC, merchant
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top merchants: %w", err)
	}

	merchants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.MerchantCount, error) {
		var m repository.MerchantCount
		err := row.Scan(&m.Merchant, &m.FraudCount, &m.FraudAmount)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan top merchants rows: %w", err)
	}
	return merchants, nil
}
