package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kseniia567/fraud-detection-ADD/internal/repository"
)

func TestSummary(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM processed_transactions")).
		WillReturnRows(pgxmock.NewRows([]string{"total_count", "fraud_count"}).AddRow(int64(1000), int64(7)))

	s, err := repo.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1000), s.TotalTransactions)
	assert.Equal(t, int64(7), s.TotalFrauds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummary_QueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM processed_transactions")).
		WillReturnError(errors.New("relation does not exist"))

	_, err := repo.Summary(context.Background())

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakdown(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY job_category")).
		WillReturnRows(pgxmock.NewRows([]string{"group_value", "total_count", "fraud_count"}).
			AddRow("IT", int64(40), int64(2)).
			AddRow("Other", int64(60), int64(5)))

	groups, err := repo.Breakdown(context.Background(), "job_category")

	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "IT", groups[0].GroupValue)
	assert.Equal(t, int64(40), groups[0].TotalCount)
	assert.Equal(t, int64(5), groups[1].FraudCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakdown_RejectsUnknownColumn(t *testing.T) {
	repo, mock := newMockRepository(t)

	_, err := repo.Breakdown(context.Background(), "cc_num; DROP TABLE raw_data")

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopMerchants(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1")).
		WithArgs(3).
		WillReturnRows(pgxmock.NewRows([]string{"merchant", "fraud_count", "fraud_amount"}).
			AddRow("fraud_Kilback LLC", int64(12), 9120.5).
			AddRow("fraud_Cormier LLC", int64(9), 3310.0))

	merchants, err := repo.TopMerchants(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, merchants, 2)
	assert.Equal(t, "fraud_Kilback LLC", merchants[0].Merchant)
	assert.Equal(t, int64(12), merchants[0].FraudCount)
	assert.InDelta(t, 3310.0, merchants[1].FraudAmount, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakdown_EveryGroupIsQueryable(t *testing.T) {
	for _, group := range repository.BreakdownGroups {
		t.Run(group, func(t *testing.T) {
			repo, mock := newMockRepository(t)

			mock.ExpectQuery(regexp.QuoteMeta("GROUP BY " + group)).
				WillReturnRows(pgxmock.NewRows([]string{"group_value", "total_count", "fraud_count"}))

			groups, err := repo.Breakdown(context.Background(), group)

			require.NoError(t, err)
			assert.Empty(t, groups)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
