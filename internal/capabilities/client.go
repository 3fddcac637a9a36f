// internal/capabilities/client.go

// Package capabilities is the outbound client for the risk-analysis backend.
// Every business capability the dialogue engine can invoke resolves to one of
// the methods here. Calls carry a timeout; idempotent GETs retry with backoff,
// the model-adjustment POST never does.
package capabilities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	apperrors "riskbot-engine/internal/common/errors"
	"riskbot-engine/internal/common/logger"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.With(map[string]interface{}{
			"component": "capabilities",
		}),
	}
}

// AnalyzeUserRisk fetches the risk summary for one user over a period like
// "30d", "90d", "7d" or "1y".
func (c *Client) AnalyzeUserRisk(ctx context.Context, userID, period string) (*RiskAnalysis, error) {
	var out RiskAnalysis
	path := fmt.Sprintf("/api/risk-analysis/%s?period=%s", url.PathEscape(userID), url.QueryEscape(period))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	out.UserID = userID
	return &out, nil
}

// RiskFactors fetches the per-user factor contributions behind a risk score.
func (c *Client) RiskFactors(ctx context.Context, userID string) (*RiskFactors, error) {
	var out RiskFactors
	path := fmt.Sprintf("/api/risk-analysis/%s/factors", url.PathEscape(userID))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExplainDecision fetches the approval/rejection decision for one user.
func (c *Client) ExplainDecision(ctx context.Context, userID string) (*Decision, error) {
	var out Decision
	path := fmt.Sprintf("/api/risk-analysis/%s/decision", url.PathEscape(userID))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetModelPerformance fetches current and historical model metrics.
func (c *Client) GetModelPerformance(ctx context.Context) (*ModelMetrics, error) {
	var out ModelMetrics
	if err := c.getJSON(ctx, "/api/model/metrics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFeatureImportance fetches the ranked feature importance list.
func (c *Client) GetFeatureImportance(ctx context.Context) (*FeatureImportance, error) {
	var out FeatureImportance
	if err := c.getJSON(ctx, "/api/features/importance", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetApprovalRate fetches approval rates for a period, optionally filtered by
// risk level.
func (c *Client) GetApprovalRate(ctx context.Context, period, riskLevel string) (*ApprovalRate, error) {
	path := fmt.Sprintf("/api/metrics/approval-rate?period=%s", url.QueryEscape(period))
	if riskLevel != "" {
		path += "&risk_level=" + url.QueryEscape(riskLevel)
	}
	var out ApprovalRate
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdjustModelCutoff submits a cutoff adjustment. This is non-idempotent and is
// sent exactly once regardless of the retry budget.
func (c *Client) AdjustModelCutoff(ctx context.Context, cutoff float64) error {
	body, _ := json.Marshal(AdjustmentRequest{
		Type:      "cutoff",
		NewValue:  map[string]float64{"cutoff": cutoff},
		Rationale: "Adjusted via conversational interface",
		CreatedBy: "chatbot",
	})

	const op = "model adjustment"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/model/adjustments", bytes.NewBuffer(body))
	if err != nil {
		return apperrors.NewCapabilityUnavailableError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return apperrors.NewCapabilityTimeoutError(op)
		}
		return apperrors.NewCapabilityUnavailableError(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewCapabilityNotFoundError(op, fmt.Sprintf("status %d", resp.StatusCode))
	default:
		return apperrors.NewCapabilityUnavailableError(op, fmt.Errorf("status %d", resp.StatusCode))
	}
}

// getJSON performs a GET with bounded retries and exponential backoff, and
// decodes the response body into out. Only failures whose error code is
// retryable consume the retry budget; application answers return immediately.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	var lastErr *apperrors.StandardError

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return apperrors.NewCapabilityTimeoutError(path)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
		if err != nil {
			return apperrors.NewCapabilityUnavailableError(path, err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// timeouts never retry; the call budget is already spent
			if isTimeout(ctx, err) {
				return apperrors.NewCapabilityTimeoutError(path)
			}
			lastErr = apperrors.NewCapabilityUnavailableError(path, err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return apperrors.NewCapabilityUnavailableError(path, fmt.Errorf("decode error: %v", err))
			}
			c.logger.Debug("capability call completed", map[string]interface{}{
				"path": path,
			})
			return nil
		}
		resp.Body.Close()

		// 404 is an application answer, not a transport failure: no retry.
		if resp.StatusCode == http.StatusNotFound {
			return apperrors.NewCapabilityNotFoundError(path, fmt.Sprintf("status %d", resp.StatusCode))
		}

		lastErr = apperrors.NewCapabilityUnavailableError(path, fmt.Errorf("status %d", resp.StatusCode))
		if !apperrors.IsRetryableErrorCode(lastErr.Code) {
			return lastErr
		}
	}

	return lastErr
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
