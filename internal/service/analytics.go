package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/dto"
	"github.com/Kseniia567/fraud-detection-ADD/internal/repository"
)

// ErrInvalidRequest marks errors caused by the caller's input.
var ErrInvalidRequest = errors.New("invalid request")

const (
	DefaultMerchantLimit = 10
	MaxMerchantLimit     = 100
)

// AnalyticsService represents the read-only analytics service
type AnalyticsService struct {
	repository repository.AnalyticsRepository
	log        *zap.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(repo repository.AnalyticsRepository, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		repository: repo,
		log:        log,
	}
}

// Health checks that the store is reachable
func (s *AnalyticsService) Health(ctx context.Context) error {
	if err := s.repository.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}

// GetSummary retrieves total and fraudulent transaction counts
func (s *AnalyticsService) GetSummary(ctx context.Context) (*dto.SummaryResponse, error) {
	summary, err := s.repository.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary from repository: %w", err)
	}

	return &dto.SummaryResponse{
		TotalTransactions: summary.TotalTransactions,
		TotalFrauds:       summary.TotalFrauds,
		FraudRatePercent:  ratePercent(summary.TotalFrauds, summary.TotalTransactions),
	}, nil
}

// GetBreakdown validates group_by and retrieves per-group fraud counts
func (s *AnalyticsService) GetBreakdown(ctx context.Context, req *dto.BreakdownRequest) (*dto.BreakdownResponse, error) {
	groupBy := strings.ToLower(strings.TrimSpace(req.GroupBy))
	if !repository.IsBreakdownGroup(groupBy) {
		s.log.Warn("Invalid group_by value", zap.String("group_by", req.GroupBy))
		return nil, fmt.Errorf("%w: invalid group_by value: %s (supported: %s)",
			ErrInvalidRequest, req.GroupBy, strings.Join(repository.BreakdownGroups, ", "))
	}

	s.log.Info("Querying breakdown", zap.String("group_by", groupBy))

	groups, err := s.repository.Breakdown(ctx, groupBy)
	if err != nil {
		return nil, fmt.Errorf("failed to get breakdown from repository: %w", err)
	}

	response := &dto.BreakdownResponse{
		GroupBy: groupBy,
		Groups:  make([]dto.BreakdownGroupData, 0, len(groups)),
	}
	for _, g := range groups {
		response.Groups = append(response.Groups, dto.BreakdownGroupData{
			GroupValue:       g.GroupValue,
			TotalCount:       g.TotalCount,
			FraudCount:       g.FraudCount,
			FraudRatePercent: ratePercent(g.FraudCount, g.TotalCount),
		})
	}

	return response, nil
}

// GetTopMerchants validates the limit and retrieves the merchants with the most frauds
func (s *AnalyticsService) GetTopMerchants(ctx context.Context, req *dto.TopMerchantsRequest) (*dto.TopMerchantsResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultMerchantLimit
	}
	if limit < 1 || limit > MaxMerchantLimit {
		s.log.Warn("Invalid merchant limit", zap.Int("limit", req.Limit))
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidRequest, MaxMerchantLimit, req.Limit)
	}

	merchants, err := s.repository.TopMerchants(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top merchants from repository: %w", err)
	}

	response := &dto.TopMerchantsResponse{
		Limit:     limit,
		Merchants: make([]dto.MerchantData, 0, len(merchants)),
	}
	for _, m := range merchants {
		response.Merchants = append(response.Merchants, dto.MerchantData{
			Merchant:    m.Merchant,
			FraudCount:  m.FraudCount,
			FraudAmount: m.FraudAmount,
		})
	}

	return response, nil
}

// ratePercent returns part/total as a percentage rounded to two decimals
func ratePercent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
