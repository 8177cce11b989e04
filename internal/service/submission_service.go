package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hplatform/homework-api/internal/models"
	appErrors "github.com/hplatform/homework-api/pkg/errors"
	"github.com/hplatform/homework-api/pkg/export"
)

type submissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, error)
	UpdateGrade(ctx context.Context, id string, grade models.Grade, notes *string, gradedAt time.Time) error
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
}

type studentReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type submissionMetrics interface {
	IncSubmissionCreated()
	IncGraded(grade string)
}

// SubmitRequest holds payload for handing in homework.
type SubmitRequest struct {
	AssignmentID string  `json:"assignment" validate:"required"`
	HomeworkText *string `json:"homework_text"`
}

// GradeSubmissionRequest carries a grading decision. Pointer fields
// distinguish absent keys from explicit values: a field omitted from the
// request leaves the stored value unchanged, while an explicit null or
// empty teacher_notes clears the notes.
type GradeSubmissionRequest struct {
	FinalGrade   *models.Grade `json:"final_grade"`
	TeacherNotes *string       `json:"teacher_notes"`
}

// ExportFormat names a supported submission export encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult is a rendered submission export.
type ExportResult struct {
	ContentType string
	Filename    string
	Payload     []byte
}

// SubmissionService implements the submission and grading workflows.
type SubmissionService struct {
	repo        submissionRepository
	assignments assignmentReader
	students    studentReader
	metrics     submissionMetrics
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	maxExport   int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(repo submissionRepository, assignments assignmentReader, students studentReader, metrics submissionMetrics, maxExport int, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxExport <= 0 {
		maxExport = 5000
	}
	return &SubmissionService{
		repo:        repo,
		assignments: assignments,
		students:    students,
		metrics:     metrics,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		maxExport:   maxExport,
		validator:   validate,
		logger:      logger,
	}
}

// Submit hands in homework for an assignment. Only students may submit;
// the owning student is always resolved from the caller's profile, so a
// request cannot attach a submission to another student.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest, claims *models.JWTClaims) (*models.SubmissionDetail, error) {
	if claims == nil || claims.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit homework")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "assignment is required")
	}

	student, err := s.students.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile for caller")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	if _, err := s.assignments.FindByID(ctx, req.AssignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	submission := &models.Submission{
		AssignmentID: req.AssignmentID,
		StudentID:    student.ID,
		HomeworkText: req.HomeworkText,
		FinalGrade:   models.GradeUngraded,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	if s.metrics != nil {
		s.metrics.IncSubmissionCreated()
	}

	detail, err := s.repo.FindByID(ctx, submission.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return detail, nil
}

// List returns the submissions visible to the caller after applying the
// role scope: students see their own rows, teachers see everything, and
// a principal with no matching profile gets an empty result set rather
// than an error.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter, claims *models.JWTClaims) ([]models.SubmissionDetail, error) {
	scoped, visible, err := s.scope(ctx, filter, claims)
	if err != nil {
		return nil, err
	}
	if !visible {
		return []models.SubmissionDetail{}, nil
	}

	submissions, err := s.repo.List(ctx, scoped)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	if submissions == nil {
		submissions = []models.SubmissionDetail{}
	}
	return submissions, nil
}

// Grade applies a grading decision to a submission. Any teacher may
// grade any submission; grades can move freely between the permitted
// values, including back to ungraded. The grading date is stamped on
// every successful call, re-grades included.
func (s *SubmissionService) Grade(ctx context.Context, id string, req GradeSubmissionRequest, claims *models.JWTClaims) (*models.SubmissionDetail, error) {
	if claims == nil || claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can grade submissions")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	grade := current.FinalGrade
	if req.FinalGrade != nil {
		grade = *req.FinalGrade
		if !models.ValidGrade(grade) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid grade %q: must be A-F, incomplete, or ungraded", grade))
		}
	}

	notes := current.TeacherNotes
	if req.TeacherNotes != nil {
		if *req.TeacherNotes == "" {
			notes = nil
		} else {
			notes = req.TeacherNotes
		}
	}

	gradedAt := time.Now().UTC()
	if err := s.repo.UpdateGrade(ctx, id, grade, notes, gradedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}

	if s.metrics != nil {
		s.metrics.IncGraded(string(grade))
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload submission")
	}
	return detail, nil
}

// Export renders the caller's filtered submission view as CSV or PDF.
// Teacher only; the same filter semantics as List apply.
func (s *SubmissionService) Export(ctx context.Context, filter models.SubmissionFilter, format ExportFormat, claims *models.JWTClaims) (*ExportResult, error) {
	if claims == nil || claims.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can export submissions")
	}

	submissions, err := s.List(ctx, filter, claims)
	if err != nil {
		return nil, err
	}
	if len(submissions) > s.maxExport {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export exceeds the %d row limit, narrow the filters", s.maxExport))
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Assignment", "Submitted", "Grade", "Graded", "Notes"},
	}
	for _, sub := range submissions {
		row := map[string]string{
			"Student":    sub.StudentName,
			"Assignment": sub.AssignmentTitle,
			"Submitted":  sub.SubmissionDate.Format(time.RFC3339),
			"Grade":      string(sub.FinalGrade),
		}
		if sub.GradingDate != nil {
			row["Graded"] = sub.GradingDate.Format(time.RFC3339)
		}
		if sub.TeacherNotes != nil {
			row["Notes"] = *sub.TeacherNotes
		}
		dataset.Append(row)
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch ExportFormat(strings.ToLower(string(format))) {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{ContentType: "text/csv", Filename: fmt.Sprintf("submissions-%s.csv", stamp), Payload: payload}, nil
	case ExportPDF:
		payload, err := s.pdf.Render(dataset, "Homework Submissions")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{ContentType: "application/pdf", Filename: fmt.Sprintf("submissions-%s.pdf", stamp), Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// scope narrows the filter to the caller's visibility. The second return
// value is false when the caller can see nothing at all.
func (s *SubmissionService) scope(ctx context.Context, filter models.SubmissionFilter, claims *models.JWTClaims) (models.SubmissionFilter, bool, error) {
	if claims == nil {
		return filter, false, nil
	}
	switch claims.Role {
	case models.RoleTeacher:
		filter.StudentID = ""
		return filter, true, nil
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return filter, false, nil
			}
			return filter, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		filter.StudentID = student.ID
		return filter, true, nil
	default:
		return filter, false, nil
	}
}
