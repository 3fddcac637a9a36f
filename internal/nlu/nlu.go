// internal/nlu/nlu.go

// Package nlu defines the pluggable language-understanding contracts consumed
// by the dialogue engine. The engine never depends on a specific backend: the
// rule-based implementations in this package are the deterministic default,
// and a statistical/learned backend can be swapped in behind the same
// interfaces.
package nlu

import (
	"context"

	"riskbot-engine/internal/models"
)

// Classifier returns the most likely intent for an utterance with a
// confidence score. Confidence filtering is the policy engine's job, not the
// classifier's.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.IntentResult, error)
}

// Extractor returns the typed spans found in an utterance, in order of
// occurrence. It has no side effects and never touches slot state.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]models.Entity, error)
}
