package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/artifacts"
	"github.com/spigell/resume-reviewer/internal/jdindex"
	"github.com/spigell/resume-reviewer/internal/report"
	"github.com/spigell/resume-reviewer/internal/review"
)

const (
	defaultK = 5
	maxK     = 50
)

// Index is what the handlers need from the job-description index.
type Index interface {
	Model() (*jdindex.Model, error)
	Roles(ctx context.Context) (artifacts.RoleSet, error)
}

// Reviewer runs full resume reviews.
type Reviewer interface {
	Review(ctx context.Context, req review.Request) (*review.Result, error)
}

type Handlers struct {
	index   Index
	reviews Reviewer
	report  report.Options
	logger  *zap.Logger
}

type textReq struct {
	Text string `json:"text"`
}

type queryReq struct {
	Text string `json:"text"`
	K    int    `json:"k"`
}

// GET /healthz
func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/roles
func (h *Handlers) Roles(c *gin.Context) {
	set, err := h.index.Roles(c.Request.Context())
	if err != nil {
		if respondNotReady(c, err) {
			return
		}
		h.internal(c, "list roles", err)
		return
	}
	RespondOK(c, gin.H{"roles": set.Roles, "source": set.Source})
}

// POST /api/match
func (h *Handlers) Match(c *gin.Context) {
	var req textReq
	if !bindText(c, &req, &req.Text) {
		return
	}
	m, ok := h.model(c)
	if !ok {
		return
	}
	role, conf, err := m.MatchRole(req.Text)
	if err != nil {
		h.internal(c, "match role", err)
		return
	}
	RespondOK(c, gin.H{"role": role, "confidence": conf})
}

// POST /api/query
func (h *Handlers) Query(c *gin.Context) {
	var req queryReq
	if !bindText(c, &req, &req.Text) {
		return
	}
	switch {
	case req.K <= 0:
		req.K = defaultK
	case req.K > maxK:
		req.K = maxK
	}
	m, ok := h.model(c)
	if !ok {
		return
	}
	matches, err := m.Query(req.Text, req.K)
	if err != nil {
		h.internal(c, "query index", err)
		return
	}
	RespondOK(c, gin.H{"matches": matches})
}

// POST /api/review
func (h *Handlers) Review(c *gin.Context) {
	res, ok := h.runReview(c)
	if !ok {
		return
	}
	RespondOK(c, res)
}

// POST /api/review/report
func (h *Handlers) Report(c *gin.Context) {
	res, ok := h.runReview(c)
	if !ok {
		return
	}
	pdf, err := report.Bytes(report.Input{
		Role:        res.Role,
		ATS:         res.ATS,
		FeedbackRaw: res.LLMFeedbackRaw,
		Feedback:    res.Feedback,
	}, h.report)
	if err != nil {
		h.internal(c, "render report", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="resume_analysis.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handlers) runReview(c *gin.Context) (*review.Result, bool) {
	var req review.Request
	if !bindText(c, &req, &req.ResumeText) {
		return nil, false
	}
	res, err := h.reviews.Review(c.Request.Context(), req)
	switch {
	case err == nil:
		return res, true
	case respondNotReady(c, err):
	case errors.Is(err, review.ErrEmptyResume):
		RespondError(c, http.StatusBadRequest, CodeInvalidRequest, err)
	case errors.Is(err, review.ErrUnknownRole):
		RespondError(c, http.StatusBadRequest, CodeUnknownRole, err)
	default:
		c.Error(err)
		h.logger.Error("review failed", zap.Error(err))
		RespondError(c, http.StatusBadGateway, CodeReviewFailed, errors.New("review failed"))
	}
	return nil, false
}

func (h *Handlers) model(c *gin.Context) (*jdindex.Model, bool) {
	m, err := h.index.Model()
	if err == nil {
		return m, true
	}
	if !respondNotReady(c, err) {
		h.internal(c, "load model", err)
	}
	return nil, false
}

func (h *Handlers) internal(c *gin.Context, op string, err error) {
	c.Error(err)
	h.logger.Error(op+" failed", zap.Error(err))
	RespondError(c, http.StatusInternalServerError, CodeInternal, errors.New(op+" failed"))
}

// bindText decodes the JSON body into req and requires the text field to be non-blank.
func bindText(c *gin.Context, req any, text *string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeInvalidRequest, err)
		return false
	}
	if strings.TrimSpace(*text) == "" {
		RespondError(c, http.StatusBadRequest, CodeInvalidRequest, errors.New("text must not be empty"))
		return false
	}
	return true
}
