package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hplatform/homework-api/internal/models"
	appErrors "github.com/hplatform/homework-api/pkg/errors"
)

type mockSubmissionRepo struct {
	submissions map[string]models.SubmissionDetail
	lastFilter  models.SubmissionFilter
	listCalled  bool
	err         error
}

func (m *mockSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if m.err != nil {
		return m.err
	}
	if m.submissions == nil {
		m.submissions = make(map[string]models.SubmissionDetail)
	}
	if submission.ID == "" {
		submission.ID = "generated"
	}
	if submission.SubmissionDate.IsZero() {
		submission.SubmissionDate = time.Now().UTC()
	}
	m.submissions[submission.ID] = models.SubmissionDetail{Submission: *submission}
	return nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	if detail, ok := m.submissions[id]; ok {
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, error) {
	m.listCalled = true
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	var result []models.SubmissionDetail
	for _, detail := range m.submissions {
		if filter.StudentID != "" && detail.StudentID != filter.StudentID {
			continue
		}
		if filter.FinalGrade != "" && detail.FinalGrade != filter.FinalGrade {
			continue
		}
		result = append(result, detail)
	}
	return result, nil
}

func (m *mockSubmissionRepo) UpdateGrade(ctx context.Context, id string, grade models.Grade, notes *string, gradedAt time.Time) error {
	detail, ok := m.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	detail.FinalGrade = grade
	detail.TeacherNotes = notes
	detail.GradingDate = &gradedAt
	m.submissions[id] = detail
	return nil
}

type mockAssignmentReader struct {
	assignments map[string]models.AssignmentDetail
}

func (m *mockAssignmentReader) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

type mockStudentReader struct {
	students map[string]models.Student // keyed by user ID
}

func (m *mockStudentReader) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := m.students[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockMetrics struct {
	submitted int
	graded    []string
}

func (m *mockMetrics) IncSubmissionCreated() { m.submitted++ }
func (m *mockMetrics) IncGraded(grade string) {
	m.graded = append(m.graded, grade)
}

func studentClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func teacherClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleTeacher}
}

func newSubmissionFixture() (*SubmissionService, *mockSubmissionRepo, *mockMetrics) {
	repo := &mockSubmissionRepo{submissions: map[string]models.SubmissionDetail{}}
	assignments := &mockAssignmentReader{assignments: map[string]models.AssignmentDetail{
		"math-hw": {Assignment: models.Assignment{ID: "math-hw", Title: "Math Homework"}},
	}}
	students := &mockStudentReader{students: map[string]models.Student{
		"user-1": {ID: "student-1", UserID: "user-1", Username: "student1"},
		"user-2": {ID: "student-2", UserID: "user-2", Username: "student2"},
	}}
	metrics := &mockMetrics{}
	svc := NewSubmissionService(repo, assignments, students, metrics, 0, nil, nil)
	return svc, repo, metrics
}

func TestSubmitCreatesUngradedSubmission(t *testing.T) {
	svc, _, metrics := newSubmissionFixture()

	text := "my answers"
	detail, err := svc.Submit(context.Background(), SubmitRequest{AssignmentID: "math-hw", HomeworkText: &text}, studentClaims("user-1"))
	require.NoError(t, err)

	assert.Equal(t, "student-1", detail.StudentID)
	assert.Equal(t, models.GradeUngraded, detail.FinalGrade)
	assert.Nil(t, detail.GradingDate)
	assert.False(t, detail.SubmissionDate.IsZero())
	assert.Equal(t, 1, metrics.submitted)
}

func TestSubmitBindsStudentFromClaims(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()

	_, err := svc.Submit(context.Background(), SubmitRequest{AssignmentID: "math-hw"}, studentClaims("user-2"))
	require.NoError(t, err)

	for _, detail := range repo.submissions {
		assert.Equal(t, "student-2", detail.StudentID)
	}
}

func TestSubmitRequiresStudentRole(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()

	_, err := svc.Submit(context.Background(), SubmitRequest{AssignmentID: "math-hw"}, teacherClaims("user-9"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.submissions)

	_, err = svc.Submit(context.Background(), SubmitRequest{AssignmentID: "math-hw"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmitUnknownAssignment(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	_, err := svc.Submit(context.Background(), SubmitRequest{AssignmentID: "missing"}, studentClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListScopesStudentToOwnSubmissions(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1", FinalGrade: models.GradeUngraded}}
	repo.submissions["sub-2"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-2", StudentID: "student-2", FinalGrade: models.GradeA}}

	result, err := svc.List(context.Background(), models.SubmissionFilter{}, studentClaims("user-1"))
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "sub-1", result[0].ID)
	assert.Equal(t, "student-1", repo.lastFilter.StudentID)
}

func TestListTeacherSeesAllSubmissions(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1"}}
	repo.submissions["sub-2"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-2", StudentID: "student-2"}}

	result, err := svc.List(context.Background(), models.SubmissionFilter{}, teacherClaims("user-9"))
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Empty(t, repo.lastFilter.StudentID)
}

func TestListStudentCannotWidenScope(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.submissions["sub-2"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-2", StudentID: "student-2"}}

	// student1 lists while student2's submission exists: zero rows visible
	result, err := svc.List(context.Background(), models.SubmissionFilter{StudentID: "student-2"}, studentClaims("user-1"))
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Equal(t, "student-1", repo.lastFilter.StudentID)
}

func TestListWithoutRoleReturnsEmptySet(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1"}}

	result, err := svc.List(context.Background(), models.SubmissionFilter{}, &models.JWTClaims{UserID: "user-9", Role: "AUDITOR"})
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.False(t, repo.listCalled)

	result, err = svc.List(context.Background(), models.SubmissionFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestListStudentWithoutProfileReturnsEmptySet(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1"}}

	result, err := svc.List(context.Background(), models.SubmissionFilter{}, studentClaims("user-without-profile"))
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.False(t, repo.listCalled)
}

func TestListPassesFiltersThrough(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	filter := models.SubmissionFilter{
		FinalGrade: models.GradeUngraded,
		Search:     "Math",
		StartDate:  &start,
	}
	_, err := svc.List(context.Background(), filter, teacherClaims("user-9"))
	require.NoError(t, err)
	assert.Equal(t, models.GradeUngraded, repo.lastFilter.FinalGrade)
	assert.Equal(t, "Math", repo.lastFilter.Search)
	require.NotNil(t, repo.lastFilter.StartDate)
	assert.True(t, start.Equal(*repo.lastFilter.StartDate))
}

func TestGradeRequiresTeacherRole(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1", FinalGrade: models.GradeUngraded}}

	grade := models.GradeA
	_, err := svc.Grade(context.Background(), "sub-1", GradeSubmissionRequest{FinalGrade: &grade}, studentClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.GradeUngraded, repo.submissions["sub-1"].FinalGrade)
}

func TestGradeRejectsInvalidValueAndLeavesSubmissionUnchanged(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1", FinalGrade: models.GradeUngraded}}

	bad := models.Grade("A+")
	_, err := svc.Grade(context.Background(), "sub-1", GradeSubmissionRequest{FinalGrade: &bad}, teacherClaims("user-9"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.GradeUngraded, repo.submissions["sub-1"].FinalGrade)
	assert.Nil(t, repo.submissions["sub-1"].GradingDate)
}

func TestGradeAppliesGradeNotesAndTimestamp(t *testing.T) {
	svc, repo, metrics := newSubmissionFixture()
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1", FinalGrade: models.GradeUngraded}}

	grade := models.GradeA
	notes := "Excellent work!"
	detail, err := svc.Grade(context.Background(), "sub-1", GradeSubmissionRequest{FinalGrade: &grade, TeacherNotes: &notes}, teacherClaims("user-9"))
	require.NoError(t, err)

	assert.Equal(t, models.GradeA, detail.FinalGrade)
	require.NotNil(t, detail.TeacherNotes)
	assert.Equal(t, "Excellent work!", *detail.TeacherNotes)
	require.NotNil(t, detail.GradingDate)
	assert.Equal(t, []string{"A"}, metrics.graded)
}

func TestGradeAllowsRegradeIncludingBackToUngraded(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	graded := time.Now().UTC().Add(-time.Hour)
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1", FinalGrade: models.GradeB, GradingDate: &graded}}

	back := models.GradeUngraded
	detail, err := svc.Grade(context.Background(), "sub-1", GradeSubmissionRequest{FinalGrade: &back}, teacherClaims("user-9"))
	require.NoError(t, err)
	assert.Equal(t, models.GradeUngraded, detail.FinalGrade)
	require.NotNil(t, detail.GradingDate)
	assert.True(t, detail.GradingDate.After(graded))
}

func TestGradeAbsentFieldsLeaveValuesUnchanged(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	notes := "keep me"
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1", FinalGrade: models.GradeC, TeacherNotes: &notes}}

	detail, err := svc.Grade(context.Background(), "sub-1", GradeSubmissionRequest{}, teacherClaims("user-9"))
	require.NoError(t, err)
	assert.Equal(t, models.GradeC, detail.FinalGrade)
	require.NotNil(t, detail.TeacherNotes)
	assert.Equal(t, "keep me", *detail.TeacherNotes)
	require.NotNil(t, detail.GradingDate)
}

func TestGradeEmptyNotesClearsThem(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	notes := "stale"
	repo.submissions["sub-1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", StudentID: "student-1", FinalGrade: models.GradeC, TeacherNotes: &notes}}

	empty := ""
	detail, err := svc.Grade(context.Background(), "sub-1", GradeSubmissionRequest{TeacherNotes: &empty}, teacherClaims("user-9"))
	require.NoError(t, err)
	assert.Nil(t, detail.TeacherNotes)
}

func TestGradeUnknownSubmission(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	grade := models.GradeA
	_, err := svc.Grade(context.Background(), "missing", GradeSubmissionRequest{FinalGrade: &grade}, teacherClaims("user-9"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportRequiresTeacherRole(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	_, err := svc.Export(context.Background(), models.SubmissionFilter{}, ExportCSV, studentClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportRendersCSV(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	notes := "Good"
	repo.submissions["sub-1"] = models.SubmissionDetail{
		Submission:      models.Submission{ID: "sub-1", StudentID: "student-1", FinalGrade: models.GradeA, SubmissionDate: time.Now().UTC(), TeacherNotes: &notes},
		AssignmentTitle: "Math Homework",
		StudentName:     "student1",
	}

	result, err := svc.Export(context.Background(), models.SubmissionFilter{}, ExportCSV, teacherClaims("user-9"))
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	body := string(result.Payload)
	assert.True(t, strings.Contains(body, "student1"))
	assert.True(t, strings.Contains(body, "Math Homework"))
	assert.True(t, strings.Contains(body, "Good"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	_, err := svc.Export(context.Background(), models.SubmissionFilter{}, ExportFormat("xlsx"), teacherClaims("user-9"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
