package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hplatform/homework-api/internal/models"
)

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.Assignment{Title: "Math Homework", CreatedByID: "teacher-1"}
	err := repo.Create(context.Background(), assignment)
	require.NoError(t, err)
	assert.NotEmpty(t, assignment.ID)
	assert.False(t, assignment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "created_by", "created_at", "created_by_name"}).
		AddRow("assignment-1", "Math Homework", nil, "teacher-1", time.Now(), "teacher1")
	mock.ExpectQuery("SELECT a.id, a.title, a.description, a.created_by, a.created_at").
		WithArgs("assignment-1").
		WillReturnRows(rows)

	detail, err := repo.FindByID(context.Background(), "assignment-1")
	require.NoError(t, err)
	assert.Equal(t, "Math Homework", detail.Title)
	assert.Equal(t, "teacher1", detail.CreatedByName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("SELECT a.id, a.title, a.description, a.created_by, a.created_at").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAssignmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "created_by", "created_at", "created_by_name"}).
		AddRow("assignment-2", "Essay", nil, "teacher-1", time.Now(), "teacher1").
		AddRow("assignment-1", "Math Homework", nil, "teacher-1", time.Now().Add(-time.Hour), "teacher1")
	mock.ExpectQuery("SELECT a.id, a.title, a.description, a.created_by, a.created_at").
		WillReturnRows(rows)

	assignments, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "Essay", assignments[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
