// internal/models/nlu.go
package models

// Intent is the classified purpose of a user utterance, from a closed vocabulary.
type Intent string

const (
	IntentGreet        Intent = "greet"
	IntentGoodbye      Intent = "goodbye"
	IntentAffirm       Intent = "affirm"
	IntentDeny         Intent = "deny"
	IntentThanks       Intent = "thanks"
	IntentBotChallenge Intent = "bot_challenge"

	IntentRequestRiskAnalysis   Intent = "request_risk_analysis"
	IntentGetModelPerformance   Intent = "get_model_performance"
	IntentAdjustModelParameters Intent = "adjust_model_parameters"
	IntentExplainRiskScore      Intent = "explain_risk_score"
	IntentGetUserRiskDetails    Intent = "get_user_risk_details"
	IntentGetFeatureImportance  Intent = "get_feature_importance"
	IntentExplainModelDecision  Intent = "explain_model_decision"
	IntentGetApprovalRate       Intent = "get_approval_rate"

	IntentUnknown Intent = "unknown"
)

// IsSmallTalk reports whether the intent resolves to a fixed utterance and
// must not touch pending-intent memory.
func (i Intent) IsSmallTalk() bool {
	switch i {
	case IntentGreet, IntentGoodbye, IntentAffirm, IntentDeny, IntentThanks, IntentBotChallenge:
		return true
	}
	return false
}

// IsBusiness reports whether the intent maps to an external capability.
func (i Intent) IsBusiness() bool {
	switch i {
	case IntentRequestRiskAnalysis, IntentGetModelPerformance, IntentAdjustModelParameters,
		IntentExplainRiskScore, IntentGetUserRiskDetails, IntentGetFeatureImportance,
		IntentExplainModelDecision, IntentGetApprovalRate:
		return true
	}
	return false
}

// EntityKind identifies the type of an extracted span.
type EntityKind string

const (
	EntityUserID         EntityKind = "user_id"
	EntityDateRange      EntityKind = "date_range"
	EntityRiskLevel      EntityKind = "risk_level"
	EntityFeatureName    EntityKind = "feature_name"
	EntityModelParameter EntityKind = "model_parameter"
	EntityCutoffValue    EntityKind = "cutoff_value"
)

// Entity is a typed span extracted from an utterance.
type Entity struct {
	Kind       EntityKind `json:"kind"`
	Value      string     `json:"value"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Confidence float64    `json:"confidence"`
}

// IntentResult is the classifier output for one utterance.
type IntentResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// SlotName identifies a piece of conversational memory persisted across turns.
// model_parameter and cutoff_value are deliberately absent: they are turn-scoped
// parameters, never carried between turns.
type SlotName string

const (
	SlotUserID      SlotName = "user_id"
	SlotDateRange   SlotName = "date_range"
	SlotRiskLevel   SlotName = "risk_level"
	SlotFeatureName SlotName = "feature_name"
)

// SlotForEntity maps an entity kind to its session slot, if it has one.
func SlotForEntity(kind EntityKind) (SlotName, bool) {
	switch kind {
	case EntityUserID:
		return SlotUserID, true
	case EntityDateRange:
		return SlotDateRange, true
	case EntityRiskLevel:
		return SlotRiskLevel, true
	case EntityFeatureName:
		return SlotFeatureName, true
	}
	return "", false
}
