package domain

import (
	"fmt"
	"time"
)

// ClassificationSource identifies which strategy produced a result.
type ClassificationSource string

const (
	ClassificationSourceAI   ClassificationSource = "ai"
	ClassificationSourceRule ClassificationSource = "rule"
)

// Classification is the bundle of analysis results for one message.
type Classification struct {
	Priority            Priority             `json:"priority"`
	Category            Category             `json:"category"`
	Sentiment           Sentiment            `json:"sentiment"`
	ContainsActionItems bool                 `json:"contains_action_items"`
	RequiresResponse    bool                 `json:"requires_response"`
	SuggestedResponseBy *time.Time           `json:"suggested_response_by,omitempty"`
	Summary             string               `json:"summary"`
	Keywords            []string             `json:"keywords,omitempty"`
	ActionItems         []string             `json:"action_items,omitempty"`
	Confidence          float64              `json:"confidence"`
	Source              ClassificationSource `json:"source"`
}

// ClassificationErrorKind partitions AI-strategy failures. All kinds are
// absorbed by falling back to the rule strategy; the kind exists so the
// fallback path is explicit and testable, not exception-shaped.
type ClassificationErrorKind string

const (
	ClassificationErrBackendUnavailable ClassificationErrorKind = "backend_unavailable"
	ClassificationErrTransport          ClassificationErrorKind = "transport"
	ClassificationErrMalformedResponse  ClassificationErrorKind = "malformed_response"
)

// ClassificationError is returned by the AI strategy instead of a panic or
// a silently swallowed failure.
type ClassificationError struct {
	Kind ClassificationErrorKind
	Err  error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("classification %s", e.Kind)
}

func (e *ClassificationError) Unwrap() error { return e.Err }
