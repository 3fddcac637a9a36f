// internal/dialogue/policy/policy.go

// Package policy decides the next action for a turn. It is a rule table over
// (intent, missing required slots) plus one piece of genuine state: the
// pending intent remembered while the engine is asking for a required slot.
package policy

import (
	"riskbot-engine/internal/common/logger"
	"riskbot-engine/internal/dialogue/slots"
	"riskbot-engine/internal/dialogue/templates"
	"riskbot-engine/internal/models"
)

type Config struct {
	// Classifications strictly below this are treated as unknown. The
	// threshold itself is acceptable.
	MinIntentConfidence float64
	// Extracted entities below this are ignored during the slot merge.
	MinEntityConfidence float64
	// Consecutive ask turns a pending intent survives before the engine
	// gives up and falls back to the default utterance.
	MaxPendingTurns int
}

// State is the per-session memory the policy engine owns beyond the slots:
// the intent waiting on a required slot and how long it has been waiting.
type State struct {
	PendingIntent models.Intent `json:"pendingIntent,omitempty"`
	AskTurns      int           `json:"askTurns,omitempty"`
}

func (s *State) reset() {
	s.PendingIntent = ""
	s.AskTurns = 0
}

// Decision is the outcome of one turn: the effective intent after the
// confidence gate and resume logic, and the action to execute.
type Decision struct {
	Intent models.Intent
	Action models.Action
}

type Engine struct {
	config *Config
	logger logger.Logger
}

func NewEngine(config *Config, log logger.Logger) *Engine {
	return &Engine{
		config: config,
		logger: log.With(map[string]interface{}{"component": "policy"}),
	}
}

var smallTalkTemplates = map[models.Intent]string{
	models.IntentGreet:        templates.KeyGreet,
	models.IntentGoodbye:      templates.KeyGoodbye,
	models.IntentAffirm:       templates.KeyAffirm,
	models.IntentDeny:         templates.KeyDeny,
	models.IntentThanks:       templates.KeyThanks,
	models.IntentBotChallenge: templates.KeyBotChallenge,
}

// requiredSlots lists the mandatory slots per business intent. Intents absent
// from the map require nothing; their other entities are optional refinements.
var requiredSlots = map[models.Intent][]models.SlotName{
	models.IntentRequestRiskAnalysis: {models.SlotUserID},
	models.IntentGetUserRiskDetails:  {models.SlotUserID},
}

var intentCapabilities = map[models.Intent]models.Capability{
	models.IntentRequestRiskAnalysis:   models.CapAnalyzeUserRisk,
	models.IntentGetUserRiskDetails:    models.CapAnalyzeUserRisk,
	models.IntentGetModelPerformance:   models.CapGetModelPerformance,
	models.IntentGetFeatureImportance:  models.CapGetFeatureImportance,
	models.IntentExplainRiskScore:      models.CapExplainRiskScore,
	models.IntentAdjustModelParameters: models.CapAdjustModelParameters,
	models.IntentExplainModelDecision:  models.CapExplainModelDecision,
	models.IntentGetApprovalRate:       models.CapGetApprovalRate,
}

// askTemplates maps a missing required slot to the utterance that requests it.
var askTemplates = map[models.SlotName]string{
	models.SlotUserID: templates.KeyAskUserID,
}

// Decide runs the per-turn algorithm: merge entities into slots, gate the
// classification, honor the pending intent, check required slots, and resolve
// the action. Only this method writes slots.
func (e *Engine) Decide(result models.IntentResult, entities []models.Entity, store *slots.Store, state *State) Decision {
	merged := e.mergeEntities(entities, store)

	intent := result.Intent
	if result.Confidence < e.config.MinIntentConfidence {
		intent = models.IntentUnknown
	}

	// Small talk resolves to a fixed utterance and never touches the
	// pending-intent memory.
	if intent.IsSmallTalk() {
		return Decision{Intent: intent, Action: models.Utter(smallTalkTemplates[intent])}
	}

	// A bare entity-only (or unintelligible) turn resumes the pending intent
	// when it contributed a slot value.
	if intent == models.IntentUnknown {
		if state.PendingIntent != "" && merged > 0 {
			intent = state.PendingIntent
		} else {
			return Decision{Intent: models.IntentUnknown, Action: models.Utter(templates.KeyDefault)}
		}
	}

	if !intent.IsBusiness() {
		return Decision{Intent: models.IntentUnknown, Action: models.Utter(templates.KeyDefault)}
	}

	// A topic change resets the waiting counter.
	if state.PendingIntent != "" && state.PendingIntent != intent {
		state.reset()
	}

	for _, slot := range requiredSlots[intent] {
		if _, ok := store.Get(slot); ok {
			continue
		}
		if state.AskTurns >= e.config.MaxPendingTurns {
			e.logger.Warn("pending intent abandoned", map[string]interface{}{
				"intent":   string(intent),
				"askTurns": state.AskTurns,
			})
			state.reset()
			return Decision{Intent: intent, Action: models.Utter(templates.KeyDefault)}
		}
		state.PendingIntent = intent
		state.AskTurns++
		return Decision{Intent: intent, Action: models.Utter(askTemplates[slot])}
	}

	state.reset()
	return Decision{
		Intent: intent,
		Action: models.Invoke(intentCapabilities[intent], e.buildParams(intent, entities, store)),
	}
}

// mergeEntities writes slot-bound entities into the store, last span per kind
// winning, and returns how many slots were written.
func (e *Engine) mergeEntities(entities []models.Entity, store *slots.Store) int {
	latest := make(map[models.SlotName]string)
	for _, ent := range entities {
		if ent.Confidence < e.config.MinEntityConfidence {
			continue
		}
		if slot, ok := models.SlotForEntity(ent.Kind); ok {
			latest[slot] = ent.Value
		}
	}
	// fixed write order keeps the change log deterministic
	for _, slot := range []models.SlotName{models.SlotUserID, models.SlotDateRange, models.SlotRiskLevel, models.SlotFeatureName} {
		if v, ok := latest[slot]; ok {
			store.Set(slot, v)
		}
	}
	return len(latest)
}

// buildParams assembles the capability parameter map from sticky slots plus
// the turn-scoped entities (model_parameter, cutoff_value).
func (e *Engine) buildParams(intent models.Intent, entities []models.Entity, store *slots.Store) map[string]string {
	snapshot := store.Snapshot()
	params := make(map[string]string)

	include := func(key string, slot models.SlotName) {
		if v, ok := snapshot[slot]; ok {
			params[key] = v
		}
	}

	switch intent {
	case models.IntentRequestRiskAnalysis, models.IntentGetUserRiskDetails:
		include("user_id", models.SlotUserID)
		include("date_range", models.SlotDateRange)
	case models.IntentGetModelPerformance:
		include("date_range", models.SlotDateRange)
	case models.IntentGetFeatureImportance:
		include("feature_name", models.SlotFeatureName)
	case models.IntentExplainRiskScore:
		include("user_id", models.SlotUserID)
		include("risk_level", models.SlotRiskLevel)
	case models.IntentExplainModelDecision:
		include("user_id", models.SlotUserID)
	case models.IntentGetApprovalRate:
		include("risk_level", models.SlotRiskLevel)
		include("date_range", models.SlotDateRange)
	case models.IntentAdjustModelParameters:
		// turn-scoped only: a stale cutoff from an earlier turn must never
		// silently re-apply
		for _, ent := range entities {
			switch ent.Kind {
			case models.EntityModelParameter:
				params["model_parameter"] = ent.Value
			case models.EntityCutoffValue:
				params["cutoff_value"] = ent.Value
			}
		}
	}

	return params
}
