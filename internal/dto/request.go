package dto

// BreakdownRequest represents a fraud breakdown query
type BreakdownRequest struct {
	GroupBy string `form:"group_by" binding:"required" example:"job_category"`
}

// TopMerchantsRequest represents a top merchants query. A zero limit selects
// the default.
type TopMerchantsRequest struct {
	Limit int `form:"limit" example:"10"`
}
