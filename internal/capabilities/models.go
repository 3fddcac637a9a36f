// internal/capabilities/models.go
package capabilities

// Payload shapes mirror the risk backend's JSON responses.

type CountSummary struct {
	Count int `json:"count"`
}

type RiskAnalysis struct {
	UserID          string       `json:"user_id"`
	RiskScore       float64      `json:"risk_score"`
	RiskLevel       string       `json:"risk_level"`
	Transactions    CountSummary `json:"transactions_summary"`
	CreditInquiries CountSummary `json:"credit_inquiries_summary"`
}

type MetricSet struct {
	AUC       float64 `json:"auc"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

type MetricPoint struct {
	Value float64 `json:"value"`
}

type ModelMetrics struct {
	Current    MetricSet     `json:"current"`
	Historical []MetricPoint `json:"historical"`
}

type Feature struct {
	Name        string  `json:"name"`
	Importance  float64 `json:"importance"`
	Rank        int     `json:"rank"`
	Description string  `json:"description"`
}

type FeatureImportance struct {
	Features []Feature `json:"features"`
}

type RiskFactor struct {
	Name         string  `json:"name"`
	Contribution float64 `json:"contribution"`
}

type RiskFactors struct {
	RiskFactors []RiskFactor `json:"risk_factors"`
}

type KeyFactor struct {
	Name   string `json:"name"`
	Impact string `json:"impact"`
}

type Decision struct {
	Decision   string      `json:"decision"`
	RiskScore  float64     `json:"risk_score"`
	Threshold  float64     `json:"threshold"`
	KeyFactors []KeyFactor `json:"key_factors"`
}

type ApprovalRate struct {
	OverallApprovalRate float64            `json:"overall_approval_rate"`
	ByRiskLevel         map[string]float64 `json:"by_risk_level"`
}

// AdjustmentRequest is the body for POST /api/model/adjustments.
type AdjustmentRequest struct {
	Type      string             `json:"type"`
	NewValue  map[string]float64 `json:"new_value"`
	Rationale string             `json:"rationale"`
	CreatedBy string             `json:"created_by"`
}
