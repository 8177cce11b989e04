package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hplatform/homework-api/internal/middleware"
	"github.com/hplatform/homework-api/internal/models"
	"github.com/hplatform/homework-api/internal/service"
	appErrors "github.com/hplatform/homework-api/pkg/errors"
)

type submissionServiceMock struct {
	submitResp *models.SubmissionDetail
	submitErr  error
	listResp   []models.SubmissionDetail
	listErr    error
	gradeResp  *models.SubmissionDetail
	gradeErr   error
	exportResp *service.ExportResult
	exportErr  error

	lastFilter models.SubmissionFilter
	lastGrade  service.GradeSubmissionRequest
	lastID     string
	listCalled bool
}

func (m *submissionServiceMock) Submit(ctx context.Context, req service.SubmitRequest, claims *models.JWTClaims) (*models.SubmissionDetail, error) {
	return m.submitResp, m.submitErr
}

func (m *submissionServiceMock) List(ctx context.Context, filter models.SubmissionFilter, claims *models.JWTClaims) ([]models.SubmissionDetail, error) {
	m.listCalled = true
	m.lastFilter = filter
	return m.listResp, m.listErr
}

func (m *submissionServiceMock) Grade(ctx context.Context, id string, req service.GradeSubmissionRequest, claims *models.JWTClaims) (*models.SubmissionDetail, error) {
	m.lastID = id
	m.lastGrade = req
	return m.gradeResp, m.gradeErr
}

func (m *submissionServiceMock) Export(ctx context.Context, filter models.SubmissionFilter, format service.ExportFormat, claims *models.JWTClaims) (*service.ExportResult, error) {
	m.lastFilter = filter
	return m.exportResp, m.exportErr
}

func submissionTestContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestSubmissionHandlerCreate(t *testing.T) {
	mockSvc := &submissionServiceMock{
		submitResp: &models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", FinalGrade: models.GradeUngraded}},
	}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(service.SubmitRequest{AssignmentID: "assignment-1"})
	c, w := submissionTestContext(t, http.MethodPost, "/submissions", payload, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSubmissionHandlerCreateInvalidBody(t *testing.T) {
	handler := NewSubmissionHandler(&submissionServiceMock{})

	c, w := submissionTestContext(t, http.MethodPost, "/submissions", []byte(`{"assignment":`), &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmissionHandlerCreateForbidden(t *testing.T) {
	mockSvc := &submissionServiceMock{submitErr: appErrors.ErrForbidden}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(service.SubmitRequest{AssignmentID: "assignment-1"})
	c, w := submissionTestContext(t, http.MethodPost, "/submissions", payload, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})

	handler.Create(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmissionHandlerListParsesFilters(t *testing.T) {
	mockSvc := &submissionServiceMock{listResp: []models.SubmissionDetail{}}
	handler := NewSubmissionHandler(mockSvc)

	c, w := submissionTestContext(t, http.MethodGet,
		"/submissions?final_grade=A&assignment=assignment-1&student_name=dent&search=math&start_date=2026-01-01&end_date=2026-01-31",
		nil, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listCalled)
	assert.Equal(t, models.GradeA, mockSvc.lastFilter.FinalGrade)
	assert.Equal(t, "assignment-1", mockSvc.lastFilter.AssignmentID)
	assert.Equal(t, "dent", mockSvc.lastFilter.StudentName)
	assert.Equal(t, "math", mockSvc.lastFilter.Search)
	require.NotNil(t, mockSvc.lastFilter.StartDate)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), mockSvc.lastFilter.StartDate.UTC())
	require.NotNil(t, mockSvc.lastFilter.EndDate)
	// the upper bound covers the whole end day
	assert.True(t, mockSvc.lastFilter.EndDate.After(time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC).Add(-time.Second)))
}

func TestSubmissionHandlerListRejectsInvalidGradeFilter(t *testing.T) {
	mockSvc := &submissionServiceMock{}
	handler := NewSubmissionHandler(mockSvc)

	c, w := submissionTestContext(t, http.MethodGet, "/submissions?final_grade=A%2B", nil, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.listCalled)
}

func TestSubmissionHandlerListRejectsBadDate(t *testing.T) {
	mockSvc := &submissionServiceMock{}
	handler := NewSubmissionHandler(mockSvc)

	c, w := submissionTestContext(t, http.MethodGet, "/submissions?start_date=31-01-2026", nil, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.listCalled)
}

func TestSubmissionHandlerGrade(t *testing.T) {
	grade := models.GradeA
	mockSvc := &submissionServiceMock{
		gradeResp: &models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", FinalGrade: grade}},
	}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(service.GradeSubmissionRequest{FinalGrade: &grade})
	c, w := submissionTestContext(t, http.MethodPatch, "/submissions/sub-1", payload, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}

	handler.Grade(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sub-1", mockSvc.lastID)
	require.NotNil(t, mockSvc.lastGrade.FinalGrade)
	assert.Equal(t, models.GradeA, *mockSvc.lastGrade.FinalGrade)
}

func TestSubmissionHandlerGradeInvalidValue(t *testing.T) {
	mockSvc := &submissionServiceMock{gradeErr: appErrors.ErrValidation}
	handler := NewSubmissionHandler(mockSvc)

	payload := []byte(`{"final_grade":"A+"}`)
	c, w := submissionTestContext(t, http.MethodPatch, "/submissions/sub-1", payload, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}

	handler.Grade(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmissionHandlerExport(t *testing.T) {
	mockSvc := &submissionServiceMock{
		exportResp: &service.ExportResult{ContentType: "text/csv", Filename: "submissions.csv", Payload: []byte("Student\n")},
	}
	handler := NewSubmissionHandler(mockSvc)

	c, w := submissionTestContext(t, http.MethodGet, "/submissions/export?format=csv", nil, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "submissions.csv")
}

func TestSubmissionHandlerExportForbidden(t *testing.T) {
	mockSvc := &submissionServiceMock{exportErr: appErrors.ErrForbidden}
	handler := NewSubmissionHandler(mockSvc)

	c, w := submissionTestContext(t, http.MethodGet, "/submissions/export?format=csv", nil, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Export(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
