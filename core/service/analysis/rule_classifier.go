package analysis

import (
	"fmt"
	"strings"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
)

// ruleConfidence is reported by the rule-based path. Kept below the AI
// path's confidence so downstream consumers can tell the strategies apart.
const ruleConfidence = 0.6

// keywordVocabulary is the fixed vocabulary tested for keyword extraction.
var keywordVocabulary = []string{"project", "meeting", "budget", "timeline", "resource"}

// RuleClassifier is the deterministic classification strategy. It needs no
// network access and always succeeds; for a fixed input it always returns
// the same output.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify applies an ordered keyword cascade over the lower-cased subject
// and body. Within each dimension only the first matching rule fires.
//
// Check order is load-bearing: "report" is tested before "project", so a
// body mentioning both classifies as Report. Reordering these checks
// changes observable behavior.
func (c *RuleClassifier) Classify(msg *domain.EmailMessage) *domain.Classification {
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(msg.BodyText)
	text := subject + " " + body

	result := &domain.Classification{
		Priority:   domain.PriorityNormal,
		Category:   domain.CategoryGeneral,
		Sentiment:  domain.SentimentNeutral,
		Confidence: ruleConfidence,
		Source:     domain.ClassificationSourceRule,
	}

	switch {
	case containsAny(text, "urgent", "asap", "immediately", "critical"):
		result.Priority = domain.PriorityUrgent
	case containsAny(text, "important", "meeting"):
		result.Priority = domain.PriorityHigh
		if strings.Contains(text, "meeting") {
			result.Category = domain.CategoryMeeting
		}
	case strings.Contains(text, "report"):
		result.Category = domain.CategoryReport
	case strings.Contains(text, "project"):
		result.Category = domain.CategoryProject
	case strings.Contains(text, "decision"):
		result.Category = domain.CategoryDecision
	case strings.Contains(text, "action"):
		result.Category = domain.CategoryAction
		result.ContainsActionItems = true
	}

	switch {
	case containsAny(body, "thank you", "great", "excellent"):
		result.Sentiment = domain.SentimentPositive
	case containsAny(body, "concern", "issue", "problem"):
		result.Sentiment = domain.SentimentNegative
	}

	if containsAny(body, "please", "need", "should") {
		result.ContainsActionItems = true
	}

	if containsAny(body, "please confirm", "let me know", "your thoughts", "feedback") {
		result.RequiresResponse = true
	}

	for _, word := range keywordVocabulary {
		if strings.Contains(text, word) {
			result.Keywords = append(result.Keywords, word)
		}
	}

	result.Summary = buildSummary(result)
	return result
}

func buildSummary(c *domain.Classification) string {
	response := "no response required"
	if c.RequiresResponse {
		response = "response required"
	}
	return fmt.Sprintf("%s email with %s priority, %s sentiment, %s",
		c.Category, c.Priority, c.Sentiment, response)
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
