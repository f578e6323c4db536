package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"group_by is required"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// SummaryResponse represents headline fraud counts
type SummaryResponse struct {
	TotalTransactions int64   `json:"total_transactions" example:"1296675"`
	TotalFrauds       int64   `json:"total_frauds" example:"7506"`
	FraudRatePercent  float64 `json:"fraud_rate_percent" example:"0.58"`
}

// BreakdownGroupData represents the counts of one group
type BreakdownGroupData struct {
	GroupValue       string  `json:"group_value" example:"IT"`
	TotalCount       int64   `json:"total_count" example:"15000"`
	FraudCount       int64   `json:"fraud_count" example:"90"`
	FraudRatePercent float64 `json:"fraud_rate_percent" example:"0.6"`
}

// BreakdownResponse represents a fraud breakdown
type BreakdownResponse struct {
	GroupBy string               `json:"group_by" example:"job_category"`
	Groups  []BreakdownGroupData `json:"groups"`
}

// MerchantData represents one merchant ranked by fraud count
type MerchantData struct {
	Merchant    string  `json:"merchant" example:"fraud_Kilback LLC"`
	FraudCount  int64   `json:"fraud_count" example:"49"`
	FraudAmount float64 `json:"fraud_amount" example:"24500.75"`
}

// TopMerchantsResponse represents the merchants with the most frauds
type TopMerchantsResponse struct {
	Limit     int            `json:"limit" example:"10"`
	Merchants []MerchantData `json:"merchants"`
}
