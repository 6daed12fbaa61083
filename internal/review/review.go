// Package review combines the job-description index, the ATS scorer and the
// LLM reviewer into one resume review.
package review

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/ai"
	"github.com/spigell/resume-reviewer/internal/ats"
	"github.com/spigell/resume-reviewer/internal/jdindex"
	"github.com/spigell/resume-reviewer/internal/logger"
)

const defaultGuidanceRows = 3

var (
	ErrEmptyResume = errors.New("resume text is empty")
	ErrUnknownRole = errors.New("role is not known to the index")
)

// ModelSource yields the current ready index model.
type ModelSource interface {
	Model() (*jdindex.Model, error)
}

// Request is one resume to review. An empty Role is inferred from the resume.
type Request struct {
	ResumeText     string `json:"resume_text"`
	Role           string `json:"role"`
	JobDescription string `json:"jd_text"`
}

// Result is the outcome of a review.
type Result struct {
	Role           string       `json:"role"`
	MatchedRole    string       `json:"matched_role"`
	RoleConfidence float64      `json:"role_confidence"`
	ATS            ats.Result   `json:"ats"`
	LLMFeedbackRaw string       `json:"llm_feedback_raw"`
	Feedback       *ai.Feedback `json:"feedback,omitempty"`
	Guidance       []string     `json:"guidance"`
	RequiredSkills []string     `json:"required_skills,omitempty"`
}

// Service runs reviews. The reviewer is optional; without it only the ATS
// part is produced.
type Service struct {
	models       ModelSource
	reviewer     ai.Reviewer
	logger       *zap.Logger
	guidanceRows int
}

func NewService(models ModelSource, reviewer ai.Reviewer, log *zap.Logger) *Service {
	return &Service{
		models:       models,
		reviewer:     reviewer,
		logger:       logger.OrNop(log),
		guidanceRows: defaultGuidanceRows,
	}
}

// Review scores the resume and asks the LLM for feedback, using the corpus rows
// of the role nearest to the resume as guidance.
func (s *Service) Review(ctx context.Context, req Request) (*Result, error) {
	resume := strings.TrimSpace(req.ResumeText)
	if resume == "" {
		return nil, ErrEmptyResume
	}

	m, err := s.models.Model()
	if err != nil {
		return nil, err
	}

	matched, conf, err := m.MatchRole(resume)
	if err != nil {
		return nil, fmt.Errorf("match role: %w", err)
	}

	res := &Result{
		Role:           strings.TrimSpace(req.Role),
		MatchedRole:    matched,
		RoleConfidence: conf,
	}
	if res.Role == "" {
		res.Role = matched
	}
	if !slices.Contains(m.Classes(), res.Role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, res.Role)
	}

	rows, err := s.guidance(m, res.Role, resume+"\n"+req.JobDescription)
	if err != nil {
		return nil, err
	}
	skillTexts := make([]string, 0, len(rows))
	for _, r := range rows {
		res.Guidance = append(res.Guidance, r.Skills)
		skillTexts = append(skillTexts, r.Skills)
	}
	if len(res.Guidance) == 0 {
		res.Guidance = []string{fmt.Sprintf("Guidance for %s based on classifier knowledge.", res.Role)}
	}
	res.RequiredSkills = ats.SplitSkills(skillTexts...)

	res.ATS = ats.Score(resume+"\n"+req.JobDescription, res.RequiredSkills)

	log := s.logger.With(zap.String("role", res.Role), zap.String("matched_role", matched))
	log.Info("resume scored",
		zap.Float64("ats_score", res.ATS.Score),
		zap.Int("guidance", len(rows)),
		zap.Int("required_skills", len(res.RequiredSkills)),
	)

	if s.reviewer == nil {
		return res, nil
	}

	review, err := s.reviewer.Review(ctx, ai.ReviewRequest{
		Role:           res.Role,
		JobDescription: req.JobDescription,
		Guidance:       res.Guidance,
		Resume:         resume,
	})
	if err != nil {
		return nil, fmt.Errorf("llm review: %w", err)
	}
	res.LLMFeedbackRaw = review.Raw
	res.Feedback = review.Feedback
	log.Debug("llm review received", zap.Bool("structured", review.Feedback != nil))

	return res, nil
}

// guidance returns the rows labelled role, nearest to text first.
func (s *Service) guidance(m *jdindex.Model, role, text string) ([]jdindex.Match, error) {
	matches, err := m.Query(text, m.Rows())
	if err != nil {
		return nil, fmt.Errorf("query guidance: %w", err)
	}
	var out []jdindex.Match
	for _, match := range matches {
		if len(out) >= s.guidanceRows {
			break
		}
		if match.JobPosition == role && strings.TrimSpace(match.Skills) != "" {
			out = append(out, match)
		}
	}
	return out, nil
}
