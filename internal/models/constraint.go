package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Severity ranks constraint violations.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Rank maps severity to a sortable weight, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Hard constraint identifiers. Registration order in the hard engine follows
// the order listed here.
const (
	ConstraintTeacherConflict     = "teacher-conflict"
	ConstraintRoomConflict        = "room-conflict"
	ConstraintClassConflict       = "class-conflict"
	ConstraintTeacherAvailability = "teacher-availability"
	ConstraintRoomCapacity        = "room-capacity"
	ConstraintTimeSlotValidity    = "time-slot-validity"
)

// Soft constraint identifiers.
const (
	ConstraintTeacherPreference    = "teacher-preference"
	ConstraintTimePreference       = "time-preference"
	ConstraintWorkloadDistribution = "workload-distribution"
	ConstraintRoomPreference       = "room-preference"
	ConstraintSubjectPreference    = "subject-preference"
	ConstraintConsecutivePeriods   = "consecutive-periods"
)

// Preference and rule types interpreted by the soft constraint engine.
const (
	PreferenceTeacherTime  = "TEACHER_TIME"
	PreferenceTimeRange    = "TIME_RANGE"
	PreferenceWorkload     = "WORKLOAD"
	PreferenceRoom         = "ROOM"
	PreferenceSubjectTime  = "SUBJECT_TIME"
	RuleConsecutivePeriods = "CONSECUTIVE_PERIODS"
)

// ConstraintViolation reports a single broken rule. Violations are produced
// fresh on every validation pass and never mutated afterwards.
type ConstraintViolation struct {
	ConstraintID   string   `json:"constraintId"`
	ConstraintType string   `json:"constraintType"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	AffectedIDs    []string `json:"affectedIds"`
	Resolution     string   `json:"suggestedResolution,omitempty"`
	Cost           float64  `json:"cost"`
}

// PreferenceParams is an opaque key/value bag interpreted per constraint
// variant, persisted as JSONB.
type PreferenceParams map[string]any

// Value marshals params to JSON for persistence.
func (p PreferenceParams) Value() (driver.Value, error) {
	if p == nil {
		p = PreferenceParams{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal preference params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params map.
func (p *PreferenceParams) Scan(value interface{}) error {
	if value == nil {
		*p = PreferenceParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for PreferenceParams", value)
	}
	if len(data) == 0 {
		*p = PreferenceParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal preference params: %w", err)
	}
	return nil
}

// StringSlice reads a []string-shaped entry from the bag.
func (p PreferenceParams) StringSlice(key string) []string {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Int reads a numeric entry from the bag, tolerating JSON float decoding.
func (p PreferenceParams) Int(key string) (int, bool) {
	raw, ok := p[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// SchedulePreference is a weighted soft-scheduling wish tied to an entity.
type SchedulePreference struct {
	ID        string           `db:"id" json:"id"`
	SchoolID  string           `db:"school_id" json:"school_id"`
	Type      string           `db:"type" json:"type"`
	EntityID  string           `db:"entity_id" json:"entity_id"`
	Weight    float64          `db:"weight" json:"weight"`
	Params    PreferenceParams `db:"params" json:"params"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// SchedulingRule is a typed hard/soft rule record interpreted per variant.
type SchedulingRule struct {
	ID       string           `db:"id" json:"id"`
	SchoolID string           `db:"school_id" json:"school_id"`
	Type     string           `db:"type" json:"type"`
	EntityID string           `db:"entity_id" json:"entity_id"`
	Weight   float64          `db:"weight" json:"weight"`
	Params   PreferenceParams `db:"params" json:"params"`
	Active   bool             `db:"active" json:"active"`
}
