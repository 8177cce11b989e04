package models

import "time"

// Assignment is a homework assignment published by a teacher.
// Assignments are immutable after creation.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedByID string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AssignmentDetail joins the creator's username for display.
type AssignmentDetail struct {
	Assignment
	CreatedByName string `db:"created_by_name" json:"created_by_name"`
}
