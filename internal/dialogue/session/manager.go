// internal/dialogue/session/manager.go

// Package session owns the per-conversation lifecycle: it keys state by
// session ID, serializes turns within a session, evicts idle sessions, and
// runs the turn pipeline of classify, extract, decide, dispatch.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"riskbot-engine/internal/common/errors"
	"riskbot-engine/internal/common/logger"
	"riskbot-engine/internal/common/metrics"
	"riskbot-engine/internal/common/observability"
	"riskbot-engine/internal/dialogue/dispatch"
	"riskbot-engine/internal/dialogue/policy"
	"riskbot-engine/internal/dialogue/slots"
	"riskbot-engine/internal/models"
	"riskbot-engine/internal/nlu"
)

const maxSessionIDLength = 128

type Config struct {
	IdleTimeout    time.Duration
	SweepInterval  time.Duration
	CarryOverSlots bool
}

type session struct {
	mu    sync.Mutex
	slots *slots.Store
	state policy.State
	// unix nanoseconds, read by acquire/sweep without holding mu
	lastActive atomic.Int64
}

func (s *session) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}

func (s *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastActive.Load()))
}

type Manager struct {
	classifier    nlu.Classifier
	extractor     nlu.Extractor
	engine        *policy.Engine
	dispatcher    *dispatch.Dispatcher
	snapshots     SnapshotStore
	observability *observability.Observability
	config        Config
	logger        logger.Logger

	mu       sync.RWMutex
	sessions map[string]*session

	now       func() time.Time
	stop      chan struct{}
	closeOnce sync.Once
}

func NewManager(
	classifier nlu.Classifier,
	extractor nlu.Extractor,
	engine *policy.Engine,
	dispatcher *dispatch.Dispatcher,
	snapshots SnapshotStore,
	obs *observability.Observability,
	config Config,
	log logger.Logger,
) *Manager {
	m := &Manager{
		classifier:    classifier,
		extractor:     extractor,
		engine:        engine,
		dispatcher:    dispatcher,
		snapshots:     snapshots,
		observability: obs,
		config:        config,
		logger:        log.With(map[string]interface{}{"component": "session"}),
		sessions:      make(map[string]*session),
		now:           time.Now,
		stop:          make(chan struct{}),
	}
	if config.SweepInterval > 0 {
		go m.sweepLoop()
	}
	return m
}

// HandleTurn processes one user message for the given session and returns the
// ordered replies. Turns within a session are serialized; turns across
// sessions run concurrently.
func (m *Manager) HandleTurn(ctx context.Context, sessionID, text string) ([]models.Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		return nil, errors.NewInvalidSessionIDError(sessionID)
	}

	sess := m.acquire(ctx, sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := m.now()
	sess.touch(start)
	turn := sess.slots.BeginTurn()

	result, err := m.classifier.Classify(ctx, text)
	if err != nil {
		m.logger.WithError(err).Warn("classification failed, treating turn as unknown", map[string]interface{}{
			"sessionId": sessionID,
		})
		result = models.IntentResult{Intent: models.IntentUnknown}
	}

	entities, err := m.extractor.Extract(ctx, text)
	if err != nil {
		m.logger.WithError(err).Warn("entity extraction failed", map[string]interface{}{
			"sessionId": sessionID,
		})
		entities = nil
	}

	decision := m.engine.Decide(result, entities, sess.slots, &sess.state)
	replies := m.dispatcher.Execute(ctx, decision.Action)

	end := m.now()
	sess.touch(end)
	elapsed := end.Sub(start)
	metrics.TurnsProcessed.WithLabelValues(string(decision.Intent)).Inc()
	metrics.TurnDuration.WithLabelValues(string(decision.Intent)).Observe(elapsed.Seconds())
	if m.observability != nil {
		m.observability.RecordTurnProcessed(ctx, string(decision.Intent))
		m.observability.RecordTurnDuration(ctx, elapsed, string(decision.Intent))
	}

	if m.config.CarryOverSlots && m.snapshots != nil {
		if err := m.snapshots.Save(ctx, sessionID, sess.slots.Snapshot()); err != nil {
			m.logger.WithError(err).Warn("failed to persist slot snapshot", map[string]interface{}{
				"sessionId": sessionID,
			})
		}
	}

	m.logger.Debug("turn processed", map[string]interface{}{
		"sessionId": sessionID,
		"turn":      turn,
		"intent":    string(decision.Intent),
		"durationMs": elapsed.Milliseconds(),
	})

	return replies, nil
}

// acquire returns the live session for the ID, evicting it first when it has
// been idle past the timeout. A session with a turn in flight is never
// evicted. A fresh session starts with carried-over slots when a snapshot
// exists, but never with a pending intent.
func (m *Manager) acquire(ctx context.Context, sessionID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[sessionID]; ok {
		if sess.idleSince(m.now()) < m.config.IdleTimeout {
			return sess
		}
		if !sess.mu.TryLock() {
			// a turn is still running; the caller queues behind it
			return sess
		}
		sess.mu.Unlock()
		delete(m.sessions, sessionID)
		metrics.ActiveSessions.Dec()
		m.logger.Info("session expired", map[string]interface{}{"sessionId": sessionID})
	}

	sess := &session{slots: slots.NewStore()}
	sess.touch(m.now())
	if m.config.CarryOverSlots && m.snapshots != nil {
		snapshot, found, err := m.snapshots.Load(ctx, sessionID)
		if err != nil {
			m.logger.WithError(err).Warn("failed to load slot snapshot", map[string]interface{}{
				"sessionId": sessionID,
			})
		} else if found {
			sess.slots.Restore(snapshot)
		}
	}

	m.sessions[sessionID] = sess
	metrics.ActiveSessions.Inc()
	return sess
}

// ActiveSessionCount reports how many sessions are currently held in memory.
func (m *Manager) ActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, sess := range m.sessions {
		if sess.idleSince(now) < m.config.IdleTimeout {
			continue
		}
		// never evict a session with a turn in flight
		if !sess.mu.TryLock() {
			continue
		}
		sess.mu.Unlock()
		delete(m.sessions, id)
		metrics.ActiveSessions.Dec()
		m.logger.Info("session swept", map[string]interface{}{"sessionId": id})
	}
}

// Close stops the background sweeper.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.stop) })
}
