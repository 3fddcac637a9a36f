// internal/models/conversation.go
package models

// ActionType tags the variant carried by an Action.
type ActionType string

const (
	ActionUtter  ActionType = "utter"
	ActionInvoke ActionType = "invoke"
)

// Capability names an external business operation the engine can invoke.
type Capability string

const (
	CapAnalyzeUserRisk       Capability = "analyze_user_risk"
	CapGetModelPerformance   Capability = "get_model_performance"
	CapGetFeatureImportance  Capability = "get_feature_importance"
	CapExplainRiskScore      Capability = "explain_risk_score"
	CapAdjustModelParameters Capability = "adjust_model_parameters"
	CapExplainModelDecision  Capability = "explain_model_decision"
	CapGetApprovalRate       Capability = "get_approval_rate"
)

// Action is the tagged variant resolved by the policy engine: either a
// templated utterance or a capability invocation with named parameters.
type Action struct {
	Type        ActionType        `json:"type"`
	TemplateKey string            `json:"templateKey,omitempty"`
	Capability  Capability        `json:"capability,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

// Utter builds a static/templated reply action.
func Utter(templateKey string) Action {
	return Action{Type: ActionUtter, TemplateKey: templateKey}
}

// Invoke builds a capability invocation action.
func Invoke(capability Capability, params map[string]string) Action {
	return Action{Type: ActionInvoke, Capability: capability, Params: params}
}

// Button is a suggested follow-up the client may render under a reply.
type Button struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Reply is one outbound message. An ordered sequence of replies is the
// observable output of a turn.
type Reply struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
	Image   string   `json:"image,omitempty"`
}
