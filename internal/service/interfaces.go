package service

import (
	"context"

	"github.com/Kseniia567/fraud-detection-ADD/internal/dto"
)

// AnalyticsServicer defines the interface for analytics service operations
type AnalyticsServicer interface {
	Health(ctx context.Context) error
	GetSummary(ctx context.Context) (*dto.SummaryResponse, error)
	GetBreakdown(ctx context.Context, req *dto.BreakdownRequest) (*dto.BreakdownResponse, error)
	GetTopMerchants(ctx context.Context, req *dto.TopMerchantsRequest) (*dto.TopMerchantsResponse, error)
}
