package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hplatform/homework-api/internal/models"
)

const submissionSelect = `SELECT sub.id, sub.assignment_id, sub.student_id, sub.submission_date, sub.homework_text,
        sub.final_grade, sub.grading_date, sub.teacher_notes,
        a.title AS assignment_title, u.username AS student_name
        FROM submissions sub
        JOIN assignments a ON a.id = sub.assignment_id
        JOIN students st ON st.id = sub.student_id
        JOIN users u ON u.id = st.user_id`

// SubmissionRepository manages persistence for homework submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission row.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmissionDate.IsZero() {
		submission.SubmissionDate = time.Now().UTC()
	}
	if submission.FinalGrade == "" {
		submission.FinalGrade = models.GradeUngraded
	}
	const query = `INSERT INTO submissions (id, assignment_id, student_id, submission_date, homework_text, final_grade, grading_date, teacher_notes)
        VALUES (:id, :assignment_id, :student_id, :submission_date, :homework_text, :final_grade, :grading_date, :teacher_notes)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID fetches a submission with joined display fields.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	query := submissionSelect + " WHERE sub.id = $1"
	var detail models.SubmissionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &detail, nil
}

// List returns submissions matching the filter. Every populated predicate
// is ANDed onto the base scope; empty predicates are skipped.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("sub.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.FinalGrade != "" {
		conditions = append(conditions, fmt.Sprintf("sub.final_grade = $%d", len(args)+1))
		args = append(args, filter.FinalGrade)
	}
	if filter.AssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("sub.assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("sub.submission_date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("sub.submission_date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}
	if filter.StudentName != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(u.username) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.StudentName)+"%")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(a.title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY sub.submission_date DESC", submissionSelect, strings.Join(conditions, " AND "))

	var submissions []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// UpdateGrade applies a grading decision. Last write wins; there is no
// version check on concurrent grades.
func (r *SubmissionRepository) UpdateGrade(ctx context.Context, id string, grade models.Grade, notes *string, gradedAt time.Time) error {
	const query = `UPDATE submissions SET final_grade = $2, teacher_notes = $3, grading_date = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, grade, notes, gradedAt)
	if err != nil {
		return fmt.Errorf("update submission grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission grade: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
