// internal/dialogue/dispatch/dispatcher_test.go
package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskbot-engine/internal/capabilities"
	"riskbot-engine/internal/common/logger"
	"riskbot-engine/internal/dialogue/templates"
	"riskbot-engine/internal/models"
)

func newTestDispatcher(t *testing.T, backend http.Handler) (*Dispatcher, *httptest.Server) {
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	client := capabilities.NewClient(&capabilities.Config{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 0,
	}, logger.NewTestLogger(t))
	registry := templates.NewRegistry(templates.SelectFirst, 0)

	return NewDispatcher(registry, client, logger.NewTestLogger(t)), server
}

func TestDispatcher_Utter(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t, http.NotFoundHandler())

	replies := dispatcher.Execute(context.Background(), models.Utter(templates.KeyGreet))
	require.Len(t, replies, 1)
	assert.NotEmpty(t, replies[0].Text)
	assert.NotEmpty(t, replies[0].Buttons)
}

func TestDispatcher_UtterUnknownKeyStillReplies(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t, http.NotFoundHandler())

	replies := dispatcher.Execute(context.Background(), models.Utter("utter_missing"))
	require.Len(t, replies, 1)
	assert.NotEmpty(t, replies[0].Text)
}

func TestDispatcher_AnalyzeUserRisk(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/risk-analysis/12345", r.URL.Path)
		assert.Equal(t, "30d", r.URL.Query().Get("period"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"risk_score":               72.5,
			"risk_level":               "high",
			"transactions_summary":     map[string]int{"count": 42},
			"credit_inquiries_summary": map[string]int{"count": 3},
		})
	}))

	replies := dispatcher.Execute(context.Background(), models.Invoke(
		models.CapAnalyzeUserRisk,
		map[string]string{"user_id": "12345"},
	))

	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Risk analysis for user 12345")
	assert.Contains(t, replies[0].Text, "Risk Score: 72.5")
	assert.Contains(t, replies[0].Text, "Risk Level: HIGH")
	assert.Contains(t, replies[0].Text, "Transactions: 42")
	assert.NotEmpty(t, replies[0].Buttons)
}

func TestDispatcher_DateRangeMapsToPeriod(t *testing.T) {
	var gotPeriod string
	dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPeriod = r.URL.Query().Get("period")
		json.NewEncoder(w).Encode(map[string]interface{}{"risk_score": 10.0, "risk_level": "low"})
	}))

	dispatcher.Execute(context.Background(), models.Invoke(
		models.CapAnalyzeUserRisk,
		map[string]string{"user_id": "1", "date_range": "last quarter"},
	))
	assert.Equal(t, "90d", gotPeriod)
}

func TestDispatcher_ModelPerformanceTrend(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"current": map[string]float64{
				"auc": 0.85, "accuracy": 0.82, "precision": 0.79, "recall": 0.91,
			},
			"historical": []map[string]float64{
				{"value": 0.80},
				{"value": 0.85},
			},
		})
	}))

	replies := dispatcher.Execute(context.Background(), models.Invoke(models.CapGetModelPerformance, nil))

	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "AUC Score: 0.850")
	assert.Contains(t, replies[0].Text, "improved by")
}

func TestDispatcher_FeatureImportance(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"features": []map[string]interface{}{
				{"name": "payment_history", "importance": 0.35, "rank": 1, "description": "On-time payment record"},
				{"name": "credit_utilization", "importance": 0.30, "rank": 2},
				{"name": "credit_age", "importance": 0.15, "rank": 3},
				{"name": "inquiries", "importance": 0.10, "rank": 4},
				{"name": "account_mix", "importance": 0.06, "rank": 5},
				{"name": "misc", "importance": 0.04, "rank": 6},
			},
		})
	})

	t.Run("top five list", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, backend)
		replies := dispatcher.Execute(context.Background(), models.Invoke(models.CapGetFeatureImportance, nil))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "Top 5")
		assert.Contains(t, replies[0].Text, "1. payment_history")
		assert.NotContains(t, replies[0].Text, "misc")
	})

	t.Run("named feature detail", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, backend)
		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapGetFeatureImportance,
			map[string]string{"feature_name": "payment"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "payment_history")
		assert.Contains(t, replies[0].Text, "Rank: 1 out of 6")
	})

	t.Run("unknown feature", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, backend)
		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapGetFeatureImportance,
			map[string]string{"feature_name": "astrology"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "couldn't find information about the 'astrology' feature")
	})
}

func TestDispatcher_ExplainRiskScore(t *testing.T) {
	t.Run("general explanation without user", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.NotFoundHandler())
		replies := dispatcher.Execute(context.Background(), models.Invoke(models.CapExplainRiskScore, nil))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "Payment history (35%)")
	})

	t.Run("per-user factors", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/risk-analysis/12345/factors", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"risk_factors": []map[string]interface{}{
					{"name": "Late payments", "contribution": 45.0},
					{"name": "High utilization", "contribution": 30.0},
				},
			})
		}))

		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapExplainRiskScore,
			map[string]string{"user_id": "12345"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "For user 12345")
		assert.Contains(t, replies[0].Text, "Late payments: 45.0%")
	})

	t.Run("factor lookup failure falls back to general text", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapExplainRiskScore,
			map[string]string{"user_id": "12345"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "Payment history (35%)")
	})

	t.Run("risk level explanation", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.NotFoundHandler())
		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapExplainRiskScore,
			map[string]string{"risk_level": "high"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "High risk classifications")
	})
}

func TestDispatcher_AdjustModelParameters(t *testing.T) {
	t.Run("successful cutoff adjustment", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				assert.Equal(t, "/api/model/adjustments", r.URL.Path)
				w.WriteHeader(http.StatusCreated)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"current": map[string]float64{"auc": 0.86, "precision": 0.80, "recall": 0.90},
			})
		}))

		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapAdjustModelParameters,
			map[string]string{"model_parameter": "cutoff", "cutoff_value": "0.75"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "adjusted the model cutoff to 0.75")
		assert.Contains(t, replies[0].Text, "AUC: 0.860")
	})

	t.Run("missing parameter gives usage help", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.NotFoundHandler())
		replies := dispatcher.Execute(context.Background(), models.Invoke(models.CapAdjustModelParameters, nil))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "set cutoff to 0.75")
	})

	t.Run("out of range value is rejected before any call", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("backend must not be called for an invalid value")
		}))

		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapAdjustModelParameters,
			map[string]string{"model_parameter": "cutoff", "cutoff_value": "1.5"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "between 0 and 1")
	})

	t.Run("unsupported parameter points to the web interface", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.NotFoundHandler())
		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapAdjustModelParameters,
			map[string]string{"model_parameter": "learning_rate", "cutoff_value": "0.5"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "web interface")
	})
}

func TestDispatcher_ExplainModelDecision(t *testing.T) {
	t.Run("missing user id asks for one", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.NotFoundHandler())
		replies := dispatcher.Execute(context.Background(), models.Invoke(models.CapExplainModelDecision, nil))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "need a user ID")
	})

	t.Run("rejected decision", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/risk-analysis/12345/decision", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"decision":   "rejected",
				"risk_score": 0.82,
				"threshold":  0.70,
				"key_factors": []map[string]string{
					{"name": "Late payments", "impact": "high"},
				},
			})
		}))

		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapExplainModelDecision,
			map[string]string{"user_id": "12345"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "REJECTED")
		assert.Contains(t, replies[0].Text, "threshold: 0.70")
		assert.Contains(t, replies[0].Text, "Late payments: high")
	})
}

func TestDispatcher_ApprovalRate(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"overall_approval_rate": 0.62,
			"by_risk_level":         map[string]float64{"low": 0.91, "medium": 0.55, "high": 0.21},
		})
	})

	t.Run("overall breakdown", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, backend)
		replies := dispatcher.Execute(context.Background(), models.Invoke(models.CapGetApprovalRate, nil))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "62.0%")
		assert.Contains(t, replies[0].Text, "LOW: 91.0%")
		assert.Contains(t, replies[0].Text, "HIGH: 21.0%")
	})

	t.Run("filtered by risk level", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, backend)
		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapGetApprovalRate,
			map[string]string{"risk_level": "high", "date_range": "past week"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "HIGH risk users")
		assert.Contains(t, replies[0].Text, "the past week")
		assert.Contains(t, replies[0].Text, "21.0%")
	})
}

func TestDispatcher_FailureReplies(t *testing.T) {
	t.Run("timeout reply", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		t.Cleanup(server.Close)

		client := capabilities.NewClient(&capabilities.Config{
			BaseURL:    server.URL,
			Timeout:    50 * time.Millisecond,
			MaxRetries: 0,
		}, logger.NewTestLogger(t))
		dispatcher := NewDispatcher(templates.NewRegistry(templates.SelectFirst, 0), client, logger.NewTestLogger(t))

		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapAnalyzeUserRisk,
			map[string]string{"user_id": "12345"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "timed out")
	})

	t.Run("not found reply", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.NotFoundHandler())
		replies := dispatcher.Execute(context.Background(), models.Invoke(
			models.CapAnalyzeUserRisk,
			map[string]string{"user_id": "99999"},
		))

		require.Len(t, replies, 1)
		assert.Contains(t, replies[0].Text, "couldn't find any risk data for user 99999")
	})

	t.Run("unavailable reply", func(t *testing.T) {
		dispatcher, _ := newTestDispatcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		replies := dispatcher.Execute(context.Background(), models.Invoke(models.CapGetModelPerformance, nil))

		require.Len(t, replies, 1)
		assert.True(t, strings.Contains(replies[0].Text, "unavailable"), "got: %s", replies[0].Text)
	})
}

func TestMapDateRangeToPeriod(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"last month", "30d"},
		{"Last Month", "30d"},
		{"past quarter", "90d"},
		{"q3", "90d"},
		{"past week", "7d"},
		{"this year", "1y"},
		{"2025", "1y"},
		{"", "30d"},
		{"whenever", "30d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, mapDateRangeToPeriod(tt.in), "input %q", tt.in)
	}
}
