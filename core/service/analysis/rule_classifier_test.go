package analysis

import (
	"reflect"
	"testing"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
)

func msg(subject, body string) *domain.EmailMessage {
	return &domain.EmailMessage{ID: 1, Subject: subject, BodyText: body}
}

func TestRuleClassifierCascade(t *testing.T) {
	c := NewRuleClassifier()

	tests := []struct {
		name            string
		subject         string
		body            string
		wantPriority    domain.Priority
		wantCategory    domain.Category
		wantSentiment   domain.Sentiment
		wantActionItems bool
		wantResponse    bool
	}{
		{
			name:            "urgent subject wins the priority cascade",
			subject:         "URGENT: server down",
			body:            "please fix immediately",
			wantPriority:    domain.PriorityUrgent,
			wantCategory:    domain.CategoryGeneral,
			wantSentiment:   domain.SentimentNeutral,
			wantActionItems: true, // "please"
			wantResponse:    false,
		},
		{
			name:          "report is checked before project",
			subject:       "Weekly status",
			body:          "Attached is the report for this project",
			wantPriority:  domain.PriorityNormal,
			wantCategory:  domain.CategoryReport,
			wantSentiment: domain.SentimentNeutral,
		},
		{
			name:          "meeting sets high priority and meeting category",
			subject:       "Team meeting tomorrow",
			body:          "agenda attached",
			wantPriority:  domain.PriorityHigh,
			wantCategory:  domain.CategoryMeeting,
			wantSentiment: domain.SentimentNeutral,
		},
		{
			name:          "important alone sets high priority, category stays general",
			subject:       "Important update",
			body:          "policy change",
			wantPriority:  domain.PriorityHigh,
			wantCategory:  domain.CategoryGeneral,
			wantSentiment: domain.SentimentNeutral,
		},
		{
			name:            "action category also flags action items",
			subject:         "Action required",
			body:            "complete the form",
			wantPriority:    domain.PriorityNormal,
			wantCategory:    domain.CategoryAction,
			wantSentiment:   domain.SentimentNeutral,
			wantActionItems: true,
		},
		{
			name:          "decision category",
			subject:       "Vendor decision",
			body:          "we went with option B",
			wantPriority:  domain.PriorityNormal,
			wantCategory:  domain.CategoryDecision,
			wantSentiment: domain.SentimentNeutral,
		},
		{
			name:          "positive sentiment from body",
			subject:       "Re: launch",
			body:          "thank you for the excellent work",
			wantPriority:  domain.PriorityNormal,
			wantCategory:  domain.CategoryGeneral,
			wantSentiment: domain.SentimentPositive,
		},
		{
			name:          "negative sentiment from body",
			subject:       "Re: deploy",
			body:          "there is a problem with the build",
			wantPriority:  domain.PriorityNormal,
			wantCategory:  domain.CategoryGeneral,
			wantSentiment: domain.SentimentNegative,
		},
		{
			name:          "positive beats negative when both present",
			subject:       "Re: deploy",
			body:          "great work, but one issue remains",
			wantPriority:  domain.PriorityNormal,
			wantCategory:  domain.CategoryGeneral,
			wantSentiment: domain.SentimentPositive,
		},
		{
			name:          "response phrases set requires_response",
			subject:       "Draft",
			body:          "let me know what you think",
			wantPriority:  domain.PriorityNormal,
			wantCategory:  domain.CategoryGeneral,
			wantSentiment: domain.SentimentNeutral,
			wantResponse:  true,
		},
		{
			name:          "no rule matches falls through to general/normal/neutral",
			subject:       "Hello",
			body:          "just saying hi",
			wantPriority:  domain.PriorityNormal,
			wantCategory:  domain.CategoryGeneral,
			wantSentiment: domain.SentimentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(msg(tt.subject, tt.body))

			if got.Priority != tt.wantPriority {
				t.Errorf("priority = %s, want %s", got.Priority, tt.wantPriority)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("category = %s, want %s", got.Category, tt.wantCategory)
			}
			if got.Sentiment != tt.wantSentiment {
				t.Errorf("sentiment = %s, want %s", got.Sentiment, tt.wantSentiment)
			}
			if got.ContainsActionItems != tt.wantActionItems {
				t.Errorf("containsActionItems = %v, want %v", got.ContainsActionItems, tt.wantActionItems)
			}
			if got.RequiresResponse != tt.wantResponse {
				t.Errorf("requiresResponse = %v, want %v", got.RequiresResponse, tt.wantResponse)
			}
			if got.Source != domain.ClassificationSourceRule {
				t.Errorf("source = %s, want rule", got.Source)
			}
			if got.Confidence != ruleConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, ruleConfidence)
			}
			if got.Summary == "" {
				t.Error("summary is empty")
			}
		})
	}
}

func TestRuleClassifierKeywords(t *testing.T) {
	c := NewRuleClassifier()

	got := c.Classify(msg("Budget meeting", "timeline for the project and resource plan"))
	want := []string{"project", "meeting", "budget", "timeline", "resource"}
	if !reflect.DeepEqual(got.Keywords, want) {
		t.Errorf("keywords = %v, want %v", got.Keywords, want)
	}

	got = c.Classify(msg("Hello", "nothing relevant"))
	if len(got.Keywords) != 0 {
		t.Errorf("keywords = %v, want none", got.Keywords)
	}
}

func TestRuleClassifierDeterminism(t *testing.T) {
	c := NewRuleClassifier()
	m := msg("Important: project feedback", "please review, let me know your thoughts on the budget issue")

	first := c.Classify(m)
	for i := 0; i < 10; i++ {
		if got := c.Classify(m); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}
