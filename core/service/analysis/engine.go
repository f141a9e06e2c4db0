// Package analysis classifies synced emails by priority, category and
// sentiment using an AI strategy with a deterministic rule fallback.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

// =============================================================================
// Analysis Engine
// =============================================================================

const systemPrompt = `You are an email analysis assistant. Analyze the email and respond with a single JSON object, no prose, with exactly these fields:
{"priority":"low|normal|high|urgent","category":"general|meeting|project|decision|action|report|fyi|newsletter","sentiment":"very_negative|negative|neutral|positive|very_positive","contains_action_items":bool,"requires_response":bool,"summary":"one sentence","keywords":["..."],"action_items":["..."],"confidence":0.0-1.0}`

// maxBodyChars caps the body excerpt sent to the backend.
const maxBodyChars = 4000

// Engine selects between the AI strategy and the rule-based strategy. A nil
// backend means the rule strategy always runs; backend failures of any kind
// degrade to the rule strategy and are never surfaced to the caller.
type Engine struct {
	backend out.ClassificationBackend
	rules   *RuleClassifier
}

func NewEngine(backend out.ClassificationBackend) *Engine {
	return &Engine{
		backend: backend,
		rules:   NewRuleClassifier(),
	}
}

// Classify never fails: the AI strategy's error variant selects the rule
// fallback instead of propagating.
func (e *Engine) Classify(ctx context.Context, msg *domain.EmailMessage) *domain.Classification {
	result, err := e.classifyAI(ctx, msg)
	if err == nil {
		return result
	}

	var cerr *domain.ClassificationError
	if errors.As(err, &cerr) && cerr.Kind != domain.ClassificationErrBackendUnavailable {
		logger.Warn("[Engine.Classify] AI strategy degraded (%s), using rule fallback: msg=%d", cerr.Kind, msg.ID)
	}

	return e.rules.Classify(msg)
}

// classifyAI runs the AI strategy. Every failure mode comes back as a
// *domain.ClassificationError so the fallback decision is explicit.
func (e *Engine) classifyAI(ctx context.Context, msg *domain.EmailMessage) (*domain.Classification, error) {
	if e.backend == nil {
		return nil, &domain.ClassificationError{Kind: domain.ClassificationErrBackendUnavailable}
	}

	body := truncateBody(msg.BodyText, maxBodyChars)
	userPrompt := "Subject: " + msg.Subject + "\n\n" + body

	raw, err := e.backend.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, &domain.ClassificationError{Kind: domain.ClassificationErrTransport, Err: err}
	}

	payload, err := decodePayload(raw)
	if err != nil {
		return nil, &domain.ClassificationError{Kind: domain.ClassificationErrMalformedResponse, Err: err}
	}

	return payload.toClassification(), nil
}

// truncateBody caps body at max bytes, backing off to a rune boundary so a
// multibyte character is never split.
func truncateBody(body string, max int) string {
	if len(body) <= max {
		return body
	}
	for max > 0 && !utf8.RuneStart(body[max]) {
		max--
	}
	return body[:max]
}

// =============================================================================
// Response Decoding
// =============================================================================

// aiPayload is the strict schema the backend must return. Any shape
// violation is a single malformed-response error, not a partial result.
type aiPayload struct {
	Priority            string   `json:"priority"`
	Category            string   `json:"category"`
	Sentiment           string   `json:"sentiment"`
	ContainsActionItems bool     `json:"contains_action_items"`
	RequiresResponse    bool     `json:"requires_response"`
	SuggestedResponseBy string   `json:"suggested_response_by"`
	Summary             string   `json:"summary"`
	Keywords            []string `json:"keywords"`
	ActionItems         []string `json:"action_items"`
	Confidence          float64  `json:"confidence"`
}

func decodePayload(raw string) (*aiPayload, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payload aiPayload
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *aiPayload) toClassification() *domain.Classification {
	c := &domain.Classification{
		Priority:            domain.ParsePriority(p.Priority),
		Category:            domain.ParseCategory(p.Category),
		Sentiment:           domain.ParseSentiment(p.Sentiment),
		ContainsActionItems: p.ContainsActionItems,
		RequiresResponse:    p.RequiresResponse,
		Summary:             p.Summary,
		Keywords:            p.Keywords,
		ActionItems:         p.ActionItems,
		Confidence:          p.Confidence,
		Source:              domain.ClassificationSourceAI,
	}
	if c.Confidence <= 0 || c.Confidence > 1 {
		c.Confidence = 0.9
	}
	if p.SuggestedResponseBy != "" {
		if t, err := time.Parse(time.RFC3339, p.SuggestedResponseBy); err == nil {
			c.SuggestedResponseBy = &t
		}
	}
	return c
}
