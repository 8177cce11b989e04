package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hplatform/homework-api/internal/models"
	"github.com/hplatform/homework-api/internal/service"
	appErrors "github.com/hplatform/homework-api/pkg/errors"
	"github.com/hplatform/homework-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, req service.SubmitRequest, claims *models.JWTClaims) (*models.SubmissionDetail, error)
	List(ctx context.Context, filter models.SubmissionFilter, claims *models.JWTClaims) ([]models.SubmissionDetail, error)
	Grade(ctx context.Context, id string, req service.GradeSubmissionRequest, claims *models.JWTClaims) (*models.SubmissionDetail, error)
	Export(ctx context.Context, filter models.SubmissionFilter, format service.ExportFormat, claims *models.JWTClaims) (*service.ExportResult, error)
}

// SubmissionHandler exposes submission endpoints.
type SubmissionHandler struct {
	submissions submissionService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(submissions submissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// Create godoc
// @Summary Submit homework
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body service.SubmitRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	submission, err := h.submissions.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// List godoc
// @Summary List submissions visible to the caller
// @Tags Submissions
// @Produce json
// @Param final_grade query string false "Exact grade match"
// @Param assignment query string false "Assignment ID"
// @Param start_date query string false "Inclusive lower bound (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive upper bound (YYYY-MM-DD)"
// @Param student_name query string false "Student username substring"
// @Param search query string false "Assignment title substring"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter, err := submissionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	submissions, err := h.submissions.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions)
}

// Grade godoc
// @Summary Grade a submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body service.GradeSubmissionRequest true "Grading payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /submissions/{id} [patch]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	var req service.GradeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grading payload"))
		return
	}
	submission, err := h.submissions.Grade(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission)
}

// Export godoc
// @Summary Export filtered submissions as CSV or PDF
// @Tags Submissions
// @Produce octet-stream
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /submissions/export [get]
func (h *SubmissionHandler) Export(c *gin.Context) {
	filter, err := submissionFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.submissions.Export(c.Request.Context(), filter, service.ExportFormat(c.Query("format")), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

func submissionFilterFromQuery(c *gin.Context) (models.SubmissionFilter, error) {
	filter := models.SubmissionFilter{
		AssignmentID: c.Query("assignment"),
		StudentName:  c.Query("student_name"),
		Search:       c.Query("search"),
	}
	if raw := c.Query("final_grade"); raw != "" {
		grade := models.Grade(raw)
		if !models.ValidGrade(grade) {
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid final_grade %q: must be A-F, incomplete, or ungraded", raw))
		}
		filter.FinalGrade = grade
	}
	if raw := c.Query("start_date"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "start_date must be an ISO date (YYYY-MM-DD)")
		}
		filter.StartDate = &ts
	}
	if raw := c.Query("end_date"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "end_date must be an ISO date (YYYY-MM-DD)")
		}
		// Inclusive upper bound over the whole calendar day.
		end := ts.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &end
	}
	return filter, nil
}
