// internal/transport/rest/server.go

// Package rest exposes the dialogue engine over HTTP using the same webhook
// shape the original bot's REST channel used.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"

	"riskbot-engine/internal/common/errors"
	"riskbot-engine/internal/common/logger"
	"riskbot-engine/internal/dialogue/session"
	"riskbot-engine/internal/models"
)

// WebhookRequest is one inbound user message.
type WebhookRequest struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// WebhookReply is one outbound bot message.
type WebhookReply struct {
	RecipientID string          `json:"recipient_id"`
	Text        string          `json:"text,omitempty"`
	Buttons     []models.Button `json:"buttons,omitempty"`
	Image       string          `json:"image,omitempty"`
}

var webhookSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"sender", "message"},
	"properties": map[string]interface{}{
		"sender": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"maxLength": 128,
		},
		"message": map[string]interface{}{
			"type":      "string",
			"maxLength": 4096,
		},
	},
}

type Server struct {
	manager *session.Manager
	logger  logger.Logger
	mux     *http.ServeMux
}

func NewServer(manager *session.Manager, log logger.Logger) *Server {
	s := &Server{
		manager: manager,
		logger:  log.With(map[string]interface{}{"component": "rest"}),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/webhooks/rest/webhook", s.handleWebhook)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()
	log := s.logger.With(map[string]interface{}{"requestId": requestID})

	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("malformed webhook body", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := validateWebhookRequest(req); err != nil {
		log.Warn("webhook request rejected", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	replies, err := s.manager.HandleTurn(r.Context(), req.Sender, req.Message)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInvalidSessionID) {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		log.WithError(err).Error("turn processing failed", map[string]interface{}{
			"sender": req.Sender,
		})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]WebhookReply, 0, len(replies))
	for _, reply := range replies {
		out = append(out, WebhookReply{
			RecipientID: req.Sender,
			Text:        reply.Text,
			Buttons:     reply.Buttons,
			Image:       reply.Image,
		})
	}

	log.Info("webhook handled", map[string]interface{}{
		"sender":     req.Sender,
		"replies":    len(out),
		"durationMs": time.Since(start).Milliseconds(),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func validateWebhookRequest(req WebhookRequest) error {
	schemaLoader := gojsonschema.NewGoLoader(webhookSchema)
	documentLoader := gojsonschema.NewGoLoader(map[string]interface{}{
		"sender":  req.Sender,
		"message": req.Message,
	})

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid request: %s", result.Errors()[0].String())
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":          "ok",
		"active_sessions": s.manager.ActiveSessionCount(),
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
