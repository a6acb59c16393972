package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleStatus represents lifecycle phases for generated timetables.
type ScheduleStatus string

const (
	ScheduleStatusDraft      ScheduleStatus = "DRAFT"
	ScheduleStatusGenerating ScheduleStatus = "GENERATING"
	ScheduleStatusPublished  ScheduleStatus = "PUBLISHED"
	ScheduleStatusArchived   ScheduleStatus = "ARCHIVED"
)

// Schedule captures a versioned timetable for a school and term. Failed
// generation runs revert the schedule to DRAFT with the failure reason kept
// in Meta.
type Schedule struct {
	ID        string         `db:"id" json:"id"`
	SchoolID  string         `db:"school_id" json:"school_id"`
	TermID    string         `db:"term_id" json:"term_id"`
	Name      string         `db:"name" json:"name"`
	Version   int            `db:"version" json:"version"`
	Status    ScheduleStatus `db:"status" json:"status"`
	Meta      types.JSONText `db:"meta" json:"meta"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
