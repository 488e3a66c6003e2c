package chi

// Wire DTOs for the hand-written JSON API.

// errorCode is the machine-readable error class returned to clients.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeValidationFailed   errorCode = "validation_failed"
	codeNotFound           errorCode = "not_found"
	codeRateLimited        errorCode = "rate_limited"
	codeQuotaExhausted     errorCode = "quota_exhausted"
	codeBackendUnavailable errorCode = "backend_unavailable"
	codeMalformedUpstream  errorCode = "malformed_upstream_response"
	codeInternalError      errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type retrieveFilters struct {
	Domain     string   `json:"domain,omitempty"`
	SourceType string   `json:"source_type,omitempty"`
	Topics     []string `json:"topics,omitempty"`
	ExcludeIDs []string `json:"exclude_ids,omitempty"`
}

type retrieveRequest struct {
	Query    string           `json:"query"`
	Limit    int              `json:"limit,omitempty"`
	Strategy string           `json:"strategy,omitempty"`
	Filters  *retrieveFilters `json:"filters,omitempty"`
}

type resultItem struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"document_id,omitempty"`
	DocumentTitle string  `json:"document_title,omitempty"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
	Source        string  `json:"source"`
	Justification string  `json:"justification,omitempty"`
}

type retrieveResponse struct {
	Results      []resultItem `json:"results"`
	StrategyUsed string       `json:"strategy_used"`
	OperationID  string       `json:"operation_id"`
}

type budgetResponse struct {
	Month           string  `json:"month"`
	SpentUSD        float64 `json:"spent_usd"`
	BudgetUSD       float64 `json:"budget_usd"`
	PercentageUsed  float64 `json:"percentage_used"`
	Status          string  `json:"status"`
	ActiveModelTier string  `json:"active_model_tier"`
	Operations      int64   `json:"operations"`
	ProjectedUSD    float64 `json:"projected_usd"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
