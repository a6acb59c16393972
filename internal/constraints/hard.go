package constraints

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
)

const (
	costConflict     = 1000
	costAvailability = 800
	costCapacity     = 600
	costMissingSlot  = 1000
	costInactiveSlot = 400
)

// HardConstraint validates a non-negotiable scheduling invariant.
type HardConstraint interface {
	ID() string
	Validate(ctx *Context) []models.ConstraintViolation
}

// HardEngineConfig carries tunables for the hard constraint set.
type HardEngineConfig struct {
	// Default teaching window applied to teachers without availability
	// records, "HH:MM" clock values.
	DefaultAvailabilityStart string
	DefaultAvailabilityEnd   string
}

// HardEngine runs every hard constraint over a context. The engine is
// stateless and safe to share across concurrent solves.
type HardEngine struct {
	constraints []HardConstraint
}

// NewHardEngine registers the hard constraint variants in their fixed order.
func NewHardEngine(cfg HardEngineConfig) *HardEngine {
	if cfg.DefaultAvailabilityStart == "" {
		cfg.DefaultAvailabilityStart = "08:00"
	}
	if cfg.DefaultAvailabilityEnd == "" {
		cfg.DefaultAvailabilityEnd = "18:00"
	}
	return &HardEngine{
		constraints: []HardConstraint{
			&bookingConflictConstraint{id: models.ConstraintTeacherConflict, entity: "teacher", keyOf: func(s models.ScheduledSession) string { return s.TeacherID }},
			&bookingConflictConstraint{id: models.ConstraintRoomConflict, entity: "room", keyOf: func(s models.ScheduledSession) string { return s.RoomID }},
			&bookingConflictConstraint{id: models.ConstraintClassConflict, entity: "class", keyOf: func(s models.ScheduledSession) string { return s.ClassID }},
			&teacherAvailabilityConstraint{defaultStart: cfg.DefaultAvailabilityStart, defaultEnd: cfg.DefaultAvailabilityEnd},
			&roomCapacityConstraint{},
			&timeSlotValidityConstraint{},
		},
	}
}

// ValidateAll runs every constraint and returns the aggregated violations
// sorted by severity descending then cost descending; remaining ties keep
// constraint registration order.
func (e *HardEngine) ValidateAll(ctx *Context) []models.ConstraintViolation {
	violations := make([]models.ConstraintViolation, 0)
	for _, constraint := range e.constraints {
		violations = append(violations, constraint.Validate(ctx)...)
	}
	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].Severity.Rank() != violations[j].Severity.Rank() {
			return violations[i].Severity.Rank() > violations[j].Severity.Rank()
		}
		return violations[i].Cost > violations[j].Cost
	})
	return violations
}

// ValidateConstraint runs a single registered constraint by id.
func (e *HardEngine) ValidateConstraint(id string, ctx *Context) ([]models.ConstraintViolation, error) {
	for _, constraint := range e.constraints {
		if constraint.ID() == id {
			return constraint.Validate(ctx), nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown hard constraint %q", id))
}

// HasViolations reports whether any hard constraint is violated,
// short-circuiting on the first hit.
func (e *HardEngine) HasViolations(ctx *Context) bool {
	for _, constraint := range e.constraints {
		if len(constraint.Validate(ctx)) > 0 {
			return true
		}
	}
	return false
}

// ConstraintIDs lists the registered hard constraint identifiers.
func (e *HardEngine) ConstraintIDs() []string {
	ids := make([]string, 0, len(e.constraints))
	for _, constraint := range e.constraints {
		ids = append(ids, constraint.ID())
	}
	return ids
}

// --- Double booking ---

// bookingConflictConstraint detects two sessions sharing the same
// (entity, time slot, date) triple for one booking dimension.
type bookingConflictConstraint struct {
	id     string
	entity string
	keyOf  func(models.ScheduledSession) string
}

func (c *bookingConflictConstraint) ID() string { return c.id }

func (c *bookingConflictConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	groups := make(map[string][]string)
	order := make([]string, 0)
	for _, session := range ctx.Sessions {
		entityID := c.keyOf(session)
		if entityID == "" {
			continue
		}
		key := entityID + "|" + session.TimeSlotID + "|" + session.Date
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], session.ID)
	}

	var violations []models.ConstraintViolation
	for _, key := range order {
		sessionIDs := groups[key]
		if len(sessionIDs) < 2 {
			continue
		}
		parts := strings.SplitN(key, "|", 3)
		violations = append(violations, models.ConstraintViolation{
			ConstraintID:   c.id,
			ConstraintType: "HARD",
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("%s %s is double-booked in slot %s on %s (%d sessions)", c.entity, parts[0], parts[1], parts[2], len(sessionIDs)),
			AffectedIDs:    append([]string{parts[0]}, sessionIDs...),
			Resolution:     fmt.Sprintf("move all but one session of %s %s out of slot %s on %s", c.entity, parts[0], parts[1], parts[2]),
			Cost:           costConflict,
		})
	}
	return violations
}

// --- Teacher availability ---

type teacherAvailabilityConstraint struct {
	defaultStart string
	defaultEnd   string
}

func (c *teacherAvailabilityConstraint) ID() string { return models.ConstraintTeacherAvailability }

func (c *teacherAvailabilityConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	for _, session := range ctx.Sessions {
		teacher, ok := ctx.TeacherByID(session.TeacherID)
		if !ok {
			continue
		}
		slot, ok := ctx.TimeSlot(session.TimeSlotID)
		if !ok {
			continue
		}
		if c.available(teacher, slot) {
			continue
		}
		violations = append(violations, models.ConstraintViolation{
			ConstraintID:   models.ConstraintTeacherAvailability,
			ConstraintType: "HARD",
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("teacher %s is unavailable during slot %s (%s %s-%s)", teacher.ID, slot.ID, slot.DayOfWeek, slot.StartTime, slot.EndTime),
			AffectedIDs:    []string{teacher.ID, session.ID},
			Resolution:     fmt.Sprintf("reschedule session %s into one of teacher %s's availability windows", session.ID, teacher.ID),
			Cost:           costAvailability,
		})
	}
	return violations
}

func (c *teacherAvailabilityConstraint) available(teacher models.Teacher, slot models.TimeSlot) bool {
	slotStart, okStart := parseClock(slot.StartTime)
	slotEnd, okEnd := parseClock(slot.EndTime)
	if !okStart || !okEnd {
		return true
	}

	if len(teacher.Availability) == 0 {
		start, _ := parseClock(c.defaultStart)
		end, _ := parseClock(c.defaultEnd)
		return slotStart >= start && slotEnd <= end
	}

	for _, window := range teacher.Availability {
		if !strings.EqualFold(window.DayOfWeek, slot.DayOfWeek) {
			continue
		}
		winStart, ok := parseClock(window.StartTime)
		if !ok {
			continue
		}
		winEnd, ok := parseClock(window.EndTime)
		if !ok {
			continue
		}
		if slotStart >= winStart && slotEnd <= winEnd {
			return true
		}
	}
	return false
}

// --- Room capacity ---

type roomCapacityConstraint struct{}

func (roomCapacityConstraint) ID() string { return models.ConstraintRoomCapacity }

func (roomCapacityConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	for _, session := range ctx.Sessions {
		room, ok := ctx.RoomByID(session.RoomID)
		if !ok {
			continue
		}
		class, ok := ctx.ClassByID(session.ClassID)
		if !ok {
			continue
		}
		if room.Capacity >= class.CurrentEnrollment {
			continue
		}
		violations = append(violations, models.ConstraintViolation{
			ConstraintID:   models.ConstraintRoomCapacity,
			ConstraintType: "HARD",
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("room %s (capacity %d) cannot hold class %s (%d students)", room.ID, room.Capacity, class.ID, class.CurrentEnrollment),
			AffectedIDs:    []string{room.ID, class.ID, session.ID},
			Resolution:     fmt.Sprintf("assign class %s to a room with capacity >= %d", class.ID, class.CurrentEnrollment),
			Cost:           costCapacity,
		})
	}
	return violations
}

// --- Time slot validity ---

type timeSlotValidityConstraint struct{}

func (timeSlotValidityConstraint) ID() string { return models.ConstraintTimeSlotValidity }

func (timeSlotValidityConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	for _, session := range ctx.Sessions {
		slot, ok := ctx.TimeSlot(session.TimeSlotID)
		if !ok {
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   models.ConstraintTimeSlotValidity,
				ConstraintType: "HARD",
				Severity:       models.SeverityHigh,
				Description:    fmt.Sprintf("session %s references missing time slot %s", session.ID, session.TimeSlotID),
				AffectedIDs:    []string{session.ID, session.TimeSlotID},
				Resolution:     fmt.Sprintf("reassign session %s to an existing time slot", session.ID),
				Cost:           costMissingSlot,
			})
			continue
		}
		if !slot.Active {
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   models.ConstraintTimeSlotValidity,
				ConstraintType: "HARD",
				Severity:       models.SeverityMedium,
				Description:    fmt.Sprintf("session %s references inactive time slot %s", session.ID, slot.ID),
				AffectedIDs:    []string{session.ID, slot.ID},
				Resolution:     fmt.Sprintf("reassign session %s to an active time slot", session.ID),
				Cost:           costInactiveSlot,
			})
		}
	}
	return violations
}
