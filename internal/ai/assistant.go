package ai

import (
	"context"
)

// ReviewRequest is everything the reviewer sees about one resume.
type ReviewRequest struct {
	Role           string
	JobDescription string
	Guidance       []string
	Resume         string
}

// Feedback is the structured part of a review. Fields the model leaves out stay empty.
type Feedback struct {
	FeedbackBySection     map[string]any `mapstructure:"feedback_by_section" json:"feedback_by_section,omitempty"`
	MissingKeywords       []string       `mapstructure:"missing_keywords" json:"missing_keywords,omitempty"`
	BulletRewrites        []string       `mapstructure:"bullet_rewrites" json:"bullet_rewrites,omitempty"`
	LanguageFixes         []string       `mapstructure:"language_fixes" json:"language_fixes,omitempty"`
	FormattingSuggestions []string       `mapstructure:"formatting_suggestions" json:"formatting_suggestions,omitempty"`
	TailoredSummary       string         `mapstructure:"tailored_summary" json:"tailored_summary,omitempty"`
}

// Review is the reviewer output. Raw always holds the model text; Feedback is
// nil when that text could not be decoded.
type Review struct {
	Raw      string
	Feedback *Feedback
	ParseErr error
}

type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (*Review, error)
}
