// internal/nlu/rules.go
package nlu

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"riskbot-engine/internal/models"
)

// intentRule pairs a compiled pattern with the intent it signals. Rules are
// evaluated in order; the first match wins.
type intentRule struct {
	intent     models.Intent
	pattern    *regexp.Regexp
	confidence float64
}

var intentRules = []intentRule{
	{models.IntentBotChallenge, regexp.MustCompile(`(?i)\b(are you a (bot|robot|human)|am i talking to a (bot|human))\b`), 0.95},
	{models.IntentThanks, regexp.MustCompile(`(?i)\b(thanks|thank you|appreciated?)\b`), 0.95},
	{models.IntentGoodbye, regexp.MustCompile(`(?i)\b(bye|goodbye|see you|good night)\b`), 0.95},
	{models.IntentGreet, regexp.MustCompile(`(?i)\b(hi|hello|hey|good (morning|afternoon|evening))\b`), 0.95},
	{models.IntentAffirm, regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|sure|correct|right|of course)\b`), 0.9},
	{models.IntentDeny, regexp.MustCompile(`(?i)^\s*(no|nope|never|not really|i don'?t think so)\b`), 0.9},

	{models.IntentAdjustModelParameters, regexp.MustCompile(`(?i)\b(set|adjust|change|update|tune)\b.*\b(cutoff|threshold|sensitivity|parameter)`), 0.9},
	{models.IntentGetFeatureImportance, regexp.MustCompile(`(?i)(feature importance|important features?|which features|top features|importance of)`), 0.9},
	{models.IntentGetModelPerformance, regexp.MustCompile(`(?i)(model (performance|metrics|doing)|how (is|well).*(model|performing)|model'?s (auc|accuracy))`), 0.9},
	{models.IntentExplainModelDecision, regexp.MustCompile(`(?i)(why was .*(approved|rejected|denied)|explain .*decision|decision for)`), 0.9},
	{models.IntentExplainRiskScore, regexp.MustCompile(`(?i)((how|why).*(risk )?score.*(calculated|computed|derived|high|low)|explain .*(risk )?score|what (makes up|goes into) .*score)`), 0.85},
	{models.IntentGetApprovalRate, regexp.MustCompile(`(?i)(approval rate|rate of approvals?|how many .*(approved|approvals)|percentage .*approved)`), 0.9},
	{models.IntentGetUserRiskDetails, regexp.MustCompile(`(?i)(risk (level|details?|profile) for|what'?s the risk|show .*risk details?)`), 0.88},
	{models.IntentRequestRiskAnalysis, regexp.MustCompile(`(?i)(analy[sz]e .*risk|risk analysis|check .*risk|assess .*(user|customer|risk)|run .*risk)`), 0.9},
}

// RuleClassifier is the deterministic regex-backed Classifier used in tests
// and as the default production stub.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier { return &RuleClassifier{} }

func (c *RuleClassifier) Classify(ctx context.Context, text string) (models.IntentResult, error) {
	for _, rule := range intentRules {
		if rule.pattern.MatchString(text) {
			return models.IntentResult{Intent: rule.intent, Confidence: rule.confidence}, nil
		}
	}
	return models.IntentResult{Intent: models.IntentUnknown, Confidence: 0}, nil
}

// entityRule pairs a pattern with the kind of span its first capture group
// yields. One pattern may match several times in a single utterance.
type entityRule struct {
	kind    models.EntityKind
	pattern *regexp.Regexp
}

var entityRules = []entityRule{
	// "user 12345", "customer id 67890", an id-format token like CUS-789, or a
	// bare numeric turn used to answer an ask_user_id prompt.
	{models.EntityUserID, regexp.MustCompile(`(?i)\b(?:user|customer)\s*(?:id)?\s*[:#]?\s*(\d{3,})\b`)},
	{models.EntityUserID, regexp.MustCompile(`\b([A-Z]{2,5}-\d+)\b`)},
	{models.EntityUserID, regexp.MustCompile(`^\s*(\d{3,})\s*$`)},

	{models.EntityDateRange, regexp.MustCompile(`(?i)\b(last month|this month|past quarter|last quarter|q[1-4]|past week|last week|this year|last year|20\d{2})\b`)},

	{models.EntityRiskLevel, regexp.MustCompile(`(?i)\b(high|medium|low)[\s-]+risk\b`)},
	{models.EntityRiskLevel, regexp.MustCompile(`(?i)\brisk\s*(?:level)?\s*(?:is|of)?\s*(high|medium|low)\b`)},

	{models.EntityFeatureName, regexp.MustCompile(`(?i)\b([a-z][a-z0-9_]{2,})\s+feature\b`)},
	{models.EntityFeatureName, regexp.MustCompile(`(?i)\bfeature\s+"?([a-z][a-z0-9_]{2,})"?`)},

	{models.EntityModelParameter, regexp.MustCompile(`(?i)\b(cutoff|threshold|sensitivity)\b`)},

	{models.EntityCutoffValue, regexp.MustCompile(`\b(\d+\.\d+)\b`)},
}

// feature-name captures that are really part of another phrase.
var featureStopwords = map[string]bool{
	"the": true, "importance": true, "important": true, "which": true, "that": true,
}

// RuleExtractor is the deterministic regex-backed Extractor. It returns every
// span it finds in order of occurrence; the policy engine applies the
// last-span-wins rule per kind when merging into slots.
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor { return &RuleExtractor{} }

func (e *RuleExtractor) Extract(ctx context.Context, text string) ([]models.Entity, error) {
	var out []models.Entity
	for _, rule := range entityRules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
			// loc[2],loc[3] bound the first capture group
			if len(loc) < 4 || loc[2] < 0 {
				continue
			}
			value := text[loc[2]:loc[3]]
			if rule.kind == models.EntityFeatureName && featureStopwords[strings.ToLower(value)] {
				continue
			}
			out = append(out, models.Entity{
				Kind:       rule.kind,
				Value:      value,
				Start:      loc[2],
				End:        loc[3],
				Confidence: 1.0,
			})
		}
	}
	// order by position so later spans of the same kind come last
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}
