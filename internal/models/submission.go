package models

import "time"

// Grade enumerates the permitted values for a submission's final grade.
type Grade string

const (
	GradeA          Grade = "A"
	GradeB          Grade = "B"
	GradeC          Grade = "C"
	GradeD          Grade = "D"
	GradeE          Grade = "E"
	GradeF          Grade = "F"
	GradeIncomplete Grade = "incomplete"
	GradeUngraded   Grade = "ungraded"
)

// AllGrades lists every permitted grade value.
var AllGrades = []Grade{
	GradeA, GradeB, GradeC, GradeD, GradeE, GradeF,
	GradeIncomplete, GradeUngraded,
}

// ValidGrade reports whether g is one of the permitted grade values.
func ValidGrade(g Grade) bool {
	for _, allowed := range AllGrades {
		if g == allowed {
			return true
		}
	}
	return false
}

// Submission is a student's homework handed in against an assignment.
// A student may submit to the same assignment more than once; each
// submit creates a new row. Grade fields are mutable only through the
// grading workflow.
type Submission struct {
	ID             string     `db:"id" json:"id"`
	AssignmentID   string     `db:"assignment_id" json:"assignment_id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	SubmissionDate time.Time  `db:"submission_date" json:"submission_date"`
	HomeworkText   *string    `db:"homework_text" json:"homework_text,omitempty"`
	FinalGrade     Grade      `db:"final_grade" json:"final_grade"`
	GradingDate    *time.Time `db:"grading_date" json:"grading_date"`
	TeacherNotes   *string    `db:"teacher_notes" json:"teacher_notes,omitempty"`
}

// SubmissionDetail joins assignment and student display fields.
type SubmissionDetail struct {
	Submission
	AssignmentTitle string `db:"assignment_title" json:"assignment_title"`
	StudentName     string `db:"student_name" json:"student_name"`
}

// SubmissionFilter captures the list query criteria. All predicates are
// combined with AND; zero values are ignored. StudentID is the role
// scope applied by the service, not a caller-supplied filter.
type SubmissionFilter struct {
	StudentID    string
	FinalGrade   Grade
	AssignmentID string
	StartDate    *time.Time
	EndDate      *time.Time
	StudentName  string
	Search       string
}
