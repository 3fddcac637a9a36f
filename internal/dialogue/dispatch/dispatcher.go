// internal/dialogue/dispatch/dispatcher.go

// Package dispatch executes the action a turn resolved to: canned utterances
// via the template registry, business actions via the capabilities client.
// Every failure is absorbed into a user-facing reply; a turn always produces
// at least one reply and never mutates slots from here.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"riskbot-engine/internal/capabilities"
	apperrors "riskbot-engine/internal/common/errors"
	"riskbot-engine/internal/common/logger"
	"riskbot-engine/internal/common/metrics"
	"riskbot-engine/internal/dialogue/templates"
	"riskbot-engine/internal/models"
)

type Dispatcher struct {
	templates *templates.Registry
	client    *capabilities.Client
	logger    logger.Logger
}

func NewDispatcher(reg *templates.Registry, client *capabilities.Client, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		templates: reg,
		client:    client,
		logger:    log.With(map[string]interface{}{"component": "dispatch"}),
	}
}

// Execute runs one action and returns the ordered replies for the turn.
func (d *Dispatcher) Execute(ctx context.Context, action models.Action) []models.Reply {
	if action.Type == models.ActionUtter {
		return []models.Reply{d.templates.Lookup(action.TemplateKey)}
	}

	start := time.Now()
	replies, failed := d.invoke(ctx, action.Capability, action.Params)
	status := "ok"
	if failed {
		status = "error"
	}
	metrics.CapabilityCalls.WithLabelValues(string(action.Capability), status).Inc()
	metrics.CapabilityDuration.WithLabelValues(string(action.Capability)).Observe(time.Since(start).Seconds())

	if len(replies) == 0 {
		replies = []models.Reply{d.templates.Lookup(templates.KeyDefault)}
	}
	return replies
}

func (d *Dispatcher) invoke(ctx context.Context, capability models.Capability, params map[string]string) ([]models.Reply, bool) {
	switch capability {
	case models.CapAnalyzeUserRisk:
		return d.analyzeUserRisk(ctx, params)
	case models.CapGetModelPerformance:
		return d.modelPerformance(ctx)
	case models.CapGetFeatureImportance:
		return d.featureImportance(ctx, params)
	case models.CapExplainRiskScore:
		return d.explainRiskScore(ctx, params)
	case models.CapAdjustModelParameters:
		return d.adjustModelParameters(ctx, params)
	case models.CapExplainModelDecision:
		return d.explainModelDecision(ctx, params)
	case models.CapGetApprovalRate:
		return d.approvalRate(ctx, params)
	default:
		d.logger.Error("unknown capability", map[string]interface{}{"capability": string(capability)})
		return nil, true
	}
}

func (d *Dispatcher) analyzeUserRisk(ctx context.Context, params map[string]string) ([]models.Reply, bool) {
	userID := params["user_id"]
	period := mapDateRangeToPeriod(params["date_range"])

	analysis, err := d.client.AnalyzeUserRisk(ctx, userID, period)
	if err != nil {
		return []models.Reply{d.failureReply(err, fmt.Sprintf("risk data for user %s", userID))}, true
	}

	text := fmt.Sprintf(
		"Risk analysis for user %s:\n- Risk Score: %.1f\n- Risk Level: %s\n- Transactions: %d\n- Credit Inquiries: %d",
		userID,
		analysis.RiskScore,
		strings.ToUpper(analysis.RiskLevel),
		analysis.Transactions.Count,
		analysis.CreditInquiries.Count,
	)

	return []models.Reply{{
		Text: text,
		Buttons: []models.Button{
			{Title: "Explain this score", Payload: fmt.Sprintf("explain the risk score for user %s", userID)},
			{Title: "Model decision", Payload: fmt.Sprintf("explain the decision for user %s", userID)},
		},
	}}, false
}

func (d *Dispatcher) modelPerformance(ctx context.Context) ([]models.Reply, bool) {
	data, err := d.client.GetModelPerformance(ctx)
	if err != nil {
		return []models.Reply{d.failureReply(err, "model performance metrics")}, true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current model performance:\n")
	fmt.Fprintf(&b, "- AUC Score: %.3f\n", data.Current.AUC)
	fmt.Fprintf(&b, "- Accuracy: %.3f\n", data.Current.Accuracy)
	fmt.Fprintf(&b, "- Precision: %.3f\n", data.Current.Precision)
	fmt.Fprintf(&b, "- Recall: %.3f\n\n", data.Current.Recall)
	b.WriteString("The model performance has ")

	if n := len(data.Historical); n > 1 {
		current := data.Historical[n-1].Value
		previous := data.Historical[n-2].Value
		switch {
		case previous != 0 && current > previous:
			fmt.Fprintf(&b, "improved by %.1f%% since the last evaluation.", (current-previous)/previous*100)
		case previous != 0 && current < previous:
			fmt.Fprintf(&b, "decreased by %.1f%% since the last evaluation.", (previous-current)/previous*100)
		default:
			b.WriteString("remained stable since the last evaluation.")
		}
	} else {
		b.WriteString("no historical comparison available at this time.")
	}

	return []models.Reply{{Text: b.String()}}, false
}

func (d *Dispatcher) featureImportance(ctx context.Context, params map[string]string) ([]models.Reply, bool) {
	data, err := d.client.GetFeatureImportance(ctx)
	if err != nil {
		return []models.Reply{d.failureReply(err, "feature importance data")}, true
	}

	if name := params["feature_name"]; name != "" {
		for _, f := range data.Features {
			if strings.Contains(strings.ToLower(f.Name), strings.ToLower(name)) {
				text := fmt.Sprintf(
					"Feature: %s\n- Importance: %.2f\n- Rank: %d out of %d\n- Description: %s",
					f.Name, f.Importance, f.Rank, len(data.Features), orDefault(f.Description, "No description available"),
				)
				return []models.Reply{{Text: text}}, false
			}
		}
		return []models.Reply{{Text: fmt.Sprintf("I couldn't find information about the '%s' feature.", name)}}, false
	}

	sorted := make([]capabilities.Feature, len(data.Features))
	copy(sorted, data.Features)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Importance > sorted[j].Importance })
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	var b strings.Builder
	b.WriteString("Top 5 most important features for risk assessment:\n")
	for i, f := range sorted {
		fmt.Fprintf(&b, "%d. %s - %.2f\n", i+1, f.Name, f.Importance)
	}
	return []models.Reply{{Text: b.String()}}, false
}

const generalScoreExplanation = "The risk score is calculated based on several factors including:\n" +
	"1. Payment history (35%)\n" +
	"2. Credit utilization (30%)\n" +
	"3. Length of credit history (15%)\n" +
	"4. Recent credit inquiries (10%)\n" +
	"5. Types of credit accounts (10%)\n\n" +
	"Scores typically range from 300-850, with higher scores indicating lower risk."

var levelExplanations = map[string]string{
	"high": "High risk classifications typically result from multiple negative factors such as:\n" +
		"- Missed payments\n- High credit utilization\n- Numerous recent credit applications\n- Short credit history\n\n",
	"medium": "Medium risk classifications usually indicate:\n" +
		"- Generally good credit behavior with some concerns\n- Occasional late payments\n- Moderate credit utilization\n- Some recent credit applications\n\n",
	"low": "Low risk classifications indicate:\n" +
		"- Consistent on-time payments\n- Low credit utilization\n- Established credit history\n- Few recent credit applications\n\n",
}

func (d *Dispatcher) explainRiskScore(ctx context.Context, params map[string]string) ([]models.Reply, bool) {
	// Per-user factors are best effort: any failure falls back to the
	// general explanation rather than an apology.
	if userID := params["user_id"]; userID != "" {
		factors, err := d.client.RiskFactors(ctx, userID)
		if err == nil && len(factors.RiskFactors) > 0 {
			var b strings.Builder
			fmt.Fprintf(&b, "For user %s, the main risk factors are:\n", userID)
			for _, f := range factors.RiskFactors {
				fmt.Fprintf(&b, "- %s: %.1f%%\n", f.Name, f.Contribution)
			}
			b.WriteString("\n" + generalScoreExplanation)
			return []models.Reply{{Text: b.String()}}, false
		}
		if err != nil {
			d.logger.Warn("risk factor lookup failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
	}

	if level := strings.ToLower(params["risk_level"]); level != "" {
		if explanation, ok := levelExplanations[level]; ok {
			return []models.Reply{{Text: explanation + generalScoreExplanation}}, false
		}
	}

	return []models.Reply{{Text: generalScoreExplanation}}, false
}

var adjustableParams = map[string]bool{"cutoff": true, "threshold": true, "sensitivity": true}

func (d *Dispatcher) adjustModelParameters(ctx context.Context, params map[string]string) ([]models.Reply, bool) {
	param := strings.ToLower(params["model_parameter"])
	if param == "" {
		return []models.Reply{{Text: "I can help you adjust model parameters like the risk cutoff threshold. " +
			"You can specify a parameter name and value, for example: " +
			"'set cutoff to 0.75' or 'adjust threshold to 0.8'."}}, false
	}

	rawValue, hasValue := params["cutoff_value"]
	if !hasValue || !adjustableParams[param] {
		return []models.Reply{{Text: fmt.Sprintf("The %s parameter requires more specific configuration. "+
			"Please use the web interface for advanced model adjustments.", param)}}, false
	}

	cutoff, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return []models.Reply{{Text: fmt.Sprintf("Invalid cutoff value: %s. Please provide a number between 0 and 1.", rawValue)}}, false
	}
	if cutoff < 0 || cutoff > 1 {
		return []models.Reply{{Text: "The cutoff value must be between 0 and 1."}}, false
	}

	if err := d.client.AdjustModelCutoff(ctx, cutoff); err != nil {
		return []models.Reply{d.failureReply(err, "model parameter adjustment")}, true
	}

	text := fmt.Sprintf("I've successfully adjusted the model cutoff to %g.", cutoff)
	if data, err := d.client.GetModelPerformance(ctx); err == nil {
		text += fmt.Sprintf(
			"\nThe updated model performance is:\n- AUC: %.3f\n- Precision: %.3f\n- Recall: %.3f",
			data.Current.AUC, data.Current.Precision, data.Current.Recall,
		)
	}
	return []models.Reply{{Text: text}}, false
}

func (d *Dispatcher) explainModelDecision(ctx context.Context, params map[string]string) ([]models.Reply, bool) {
	userID := params["user_id"]
	if userID == "" {
		return []models.Reply{{Text: "I need a user ID to explain a specific model decision. " +
			"Could you provide one like 'explain decision for user 12345'?"}}, false
	}

	data, err := d.client.ExplainDecision(ctx, userID)
	if err != nil {
		return []models.Reply{d.failureReply(err, fmt.Sprintf("decision data for user %s", userID))}, true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Decision explanation for user %s:\n", userID)
	switch strings.ToLower(data.Decision) {
	case "approved":
		fmt.Fprintf(&b, "The user was APPROVED with a risk score of %.2f (threshold: %.2f).\n\n", data.RiskScore, data.Threshold)
	case "rejected":
		fmt.Fprintf(&b, "The user was REJECTED with a risk score of %.2f (threshold: %.2f).\n\n", data.RiskScore, data.Threshold)
	default:
		fmt.Fprintf(&b, "The decision was %s with a risk score of %.2f.\n\n", strings.ToUpper(data.Decision), data.RiskScore)
	}

	b.WriteString("Key factors influencing this decision:\n")
	for _, f := range data.KeyFactors {
		fmt.Fprintf(&b, "- %s: %s\n", f.Name, f.Impact)
	}

	return []models.Reply{{Text: b.String()}}, false
}

func (d *Dispatcher) approvalRate(ctx context.Context, params map[string]string) ([]models.Reply, bool) {
	period := mapDateRangeToPeriod(params["date_range"])
	riskLevel := strings.ToLower(params["risk_level"])

	data, err := d.client.GetApprovalRate(ctx, period, riskLevel)
	if err != nil {
		return []models.Reply{d.failureReply(err, "approval rate data")}, true
	}

	if riskLevel != "" {
		rate := data.ByRiskLevel[riskLevel] * 100
		text := fmt.Sprintf("For %s risk users during %s, the approval rate is %.1f%%.",
			strings.ToUpper(riskLevel), periodText(period), rate)
		return []models.Reply{{Text: text}}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Overall approval rate for %s: %.1f%%\n\n", periodText(period), data.OverallApprovalRate*100)
	b.WriteString("Approval rates by risk level:\n")
	for _, level := range []string{"low", "medium", "high"} {
		if rate, ok := data.ByRiskLevel[level]; ok {
			fmt.Fprintf(&b, "- %s: %.1f%%\n", strings.ToUpper(level), rate*100)
		}
	}
	return []models.Reply{{Text: b.String()}}, false
}

// failureReply maps a capability error code to the user-facing apology,
// keeping the timeout, not-found, and unavailable cases distinguishable.
func (d *Dispatcher) failureReply(err error, what string) models.Reply {
	switch {
	case apperrors.HasCode(err, apperrors.ErrCodeCapabilityTimeout):
		return models.Reply{Text: fmt.Sprintf("The request for %s timed out. Please try again in a moment.", what)}
	case apperrors.HasCode(err, apperrors.ErrCodeCapabilityNotFound):
		return models.Reply{Text: fmt.Sprintf("I couldn't find any %s. Please check the details and try again.", what)}
	default:
		d.logger.Error("capability call failed", map[string]interface{}{"error": err.Error()})
		return models.Reply{Text: fmt.Sprintf("I couldn't retrieve %s. The service might be unavailable.", what)}
	}
}

// mapDateRangeToPeriod converts free-text ranges to the backend's period
// parameter, defaulting to 30 days.
func mapDateRangeToPeriod(dateRange string) string {
	mapping := map[string]string{
		"last month":   "30d",
		"this month":   "30d",
		"past quarter": "90d",
		"last quarter": "90d",
		"q1":           "90d",
		"q2":           "90d",
		"q3":           "90d",
		"q4":           "90d",
		"past week":    "7d",
		"last week":    "7d",
		"this year":    "1y",
		"last year":    "1y",
	}
	dr := strings.ToLower(strings.TrimSpace(dateRange))
	if p, ok := mapping[dr]; ok {
		return p
	}
	if len(dr) == 4 && strings.HasPrefix(dr, "20") {
		return "1y"
	}
	return "30d"
}

func periodText(period string) string {
	switch period {
	case "7d":
		return "the past week"
	case "90d":
		return "the past quarter"
	case "1y":
		return "the past year"
	default:
		return "the past 30 days"
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
