package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/repository"
)

const rollbackTimeout = 5 * time.Second

// Repository implements the store on PostgreSQL
type Repository struct {
	db  DB
	log *zap.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db DB, log *zap.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log,
	}
}

// InsertRaw inserts a batch of raw records into raw_data
func (r *Repository) InsertRaw(ctx context.Context, records []domain.RawRecord) (int, error) {
	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		row, err := rawRow(rec)
		if err != nil {
			r.log.Warn("Skipping raw record that could not be mapped",
				zap.Int("index", i),
				zap.String("trans_num", rec.TransNum.String),
				zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}

	return r.insert(ctx, repository.TableRaw, rawColumns, rows)
}

// InsertProcessed inserts a batch of cleaned records into processed_transactions
func (r *Repository) InsertProcessed(ctx context.Context, records []domain.CleanedRecord) (int, error) {
	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		row, err := processedRow(rec)
		if err != nil {
			r.log.Warn("Skipping processed record that could not be mapped",
				zap.Int("index", i),
				zap.String("trans_num", rec.TransNum.String),
				zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}

	return r.insert(ctx, repository.TableProcessed, processedColumns, rows)
}

// insert writes all rows in one transaction. On any error the transaction is
// rolled back and the attempted values are logged.
func (r *Repository) insert(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		r.log.Warn("No valid records to insert", zap.String("table", table))
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction on %s: %w", domain.ErrPersistenceFailure, table, err)
	}

	for _, chunk := range chunkRows(rows, len(columns)) {
		query, args := buildInsert(table, columns, chunk)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
			if rbErr := tx.Rollback(rbCtx); rbErr != nil {
				r.log.Error("Failed to roll back transaction", zap.String("table", table), zap.Error(rbErr))
			}
			cancel()

			r.log.Error("Failed to insert batch, transaction rolled back",
				zap.String("table", table),
				zap.Int("row_count", len(rows)),
				zap.Any("values", rows),
				zap.Error(err))
			return 0, fmt.Errorf("%w: failed to insert into %s: %w", domain.ErrPersistenceFailure, table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit batch",
			zap.String("table", table),
			zap.Int("row_count", len(rows)),
			zap.Any("values", rows),
			zap.Error(err))
		return 0, fmt.Errorf("%w: failed to commit %s batch: %w", domain.ErrPersistenceFailure, table, err)
	}

	return len(rows), nil
}

// Ping checks if the PostgreSQL connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close closes the PostgreSQL pool
func (r *Repository) Close() error {
	r.db.Close()
	return nil
}
