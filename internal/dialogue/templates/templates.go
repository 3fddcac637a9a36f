// internal/dialogue/templates/templates.go

// Package templates holds the canned response registry. Each key maps to one
// or more phrasing variants; selection is "first variant" for determinism
// unless random rotation is configured.
package templates

import (
	"math/rand"
	"sync"

	"riskbot-engine/internal/models"
)

// SelectionPolicy controls which phrasing variant a lookup returns.
type SelectionPolicy string

const (
	SelectFirst  SelectionPolicy = "first"
	SelectRandom SelectionPolicy = "random"
)

// Template is one response definition.
type Template struct {
	Variants []string
	Buttons  []models.Button
	Image    string
}

// Registry resolves template keys to replies. Lookups are safe for
// concurrent use; the seeded rng is shared across sessions.
type Registry struct {
	templates map[string]Template
	policy    SelectionPolicy

	mu  sync.Mutex
	rng *rand.Rand
}

// Keys known to the policy engine.
const (
	KeyGreet        = "utter_greet"
	KeyGoodbye      = "utter_goodbye"
	KeyAffirm       = "utter_affirm"
	KeyDeny         = "utter_deny"
	KeyThanks       = "utter_thanks"
	KeyBotChallenge = "utter_iamabot"
	KeyDefault      = "utter_default"
	KeyAskUserID    = "utter_ask_user_id"
)

func defaults() map[string]Template {
	return map[string]Template{
		KeyGreet: {
			Variants: []string{
				"Hello! I can help you with risk analysis, model performance, and approval metrics. What would you like to know?",
				"Hi there! Ask me about user risk, feature importance, or model metrics.",
			},
			Buttons: []models.Button{
				{Title: "Model performance", Payload: "how is the model performing?"},
				{Title: "Approval rate", Payload: "what's the approval rate?"},
			},
		},
		KeyGoodbye: {
			Variants: []string{"Goodbye! Come back anytime you need risk insights.", "Bye! Happy to help again later."},
		},
		KeyAffirm: {
			Variants: []string{"Great. What would you like to look at next?"},
		},
		KeyDeny: {
			Variants: []string{"Alright. Let me know if there is anything else I can check for you."},
		},
		KeyThanks: {
			Variants: []string{"You're welcome!", "Glad I could help."},
		},
		KeyBotChallenge: {
			Variants: []string{"I am a risk-analysis assistant bot. I answer questions about user risk, model performance, and approvals."},
		},
		KeyDefault: {
			Variants: []string{
				"I'm sorry, I didn't understand that. You can ask me about user risk, model performance, feature importance, or approval rates.",
			},
		},
		KeyAskUserID: {
			Variants: []string{"I need a user ID to analyze risk. Could you provide one?"},
		},
	}
}

// NewRegistry builds the default registry with the given selection policy.
// A seed keeps random rotation reproducible in tests.
func NewRegistry(policy SelectionPolicy, seed int64) *Registry {
	if policy != SelectRandom {
		policy = SelectFirst
	}
	return &Registry{
		templates: defaults(),
		policy:    policy,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Register adds or replaces a template.
func (r *Registry) Register(key string, t Template) {
	r.templates[key] = t
}

// Lookup resolves a key to a reply. Unknown keys fall back to the default
// template so a turn always produces at least one reply.
func (r *Registry) Lookup(key string) models.Reply {
	t, ok := r.templates[key]
	if !ok || len(t.Variants) == 0 {
		t = r.templates[KeyDefault]
	}
	idx := 0
	if r.policy == SelectRandom && len(t.Variants) > 1 {
		r.mu.Lock()
		idx = r.rng.Intn(len(t.Variants))
		r.mu.Unlock()
	}
	return models.Reply{Text: t.Variants[idx], Buttons: t.Buttons, Image: t.Image}
}
