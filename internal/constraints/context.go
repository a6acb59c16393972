package constraints

import (
	"strconv"
	"strings"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

// Context is the immutable universe a constraint evaluates against: one
// school's resource snapshot plus the candidate session set. Rebuild it via
// WithSessions whenever the session set changes; never mutate it in place.
type Context struct {
	SchoolID   string
	ScheduleID string

	Sessions    []models.ScheduledSession
	TimeSlots   []models.TimeSlot
	Teachers    []models.Teacher
	Rooms       []models.Room
	Classes     []models.Class
	Subjects    []models.Subject
	Preferences []models.SchedulePreference
	Rules       []models.SchedulingRule

	slotIndex    map[string]models.TimeSlot
	teacherIndex map[string]models.Teacher
	roomIndex    map[string]models.Room
	classIndex   map[string]models.Class
	subjectIndex map[string]models.Subject
	prefIndex    map[string][]models.SchedulePreference
	ruleIndex    map[string][]models.SchedulingRule
}

// ContextInput bundles the raw collections for building a Context.
type ContextInput struct {
	SchoolID    string
	ScheduleID  string
	Sessions    []models.ScheduledSession
	TimeSlots   []models.TimeSlot
	Teachers    []models.Teacher
	Rooms       []models.Room
	Classes     []models.Class
	Subjects    []models.Subject
	Preferences []models.SchedulePreference
	Rules       []models.SchedulingRule
}

// NewContext builds a snapshot with lookup indexes over every resource.
func NewContext(in ContextInput) *Context {
	c := &Context{
		SchoolID:     in.SchoolID,
		ScheduleID:   in.ScheduleID,
		Sessions:     in.Sessions,
		TimeSlots:    in.TimeSlots,
		Teachers:     in.Teachers,
		Rooms:        in.Rooms,
		Classes:      in.Classes,
		Subjects:     in.Subjects,
		Preferences:  in.Preferences,
		Rules:        in.Rules,
		slotIndex:    make(map[string]models.TimeSlot, len(in.TimeSlots)),
		teacherIndex: make(map[string]models.Teacher, len(in.Teachers)),
		roomIndex:    make(map[string]models.Room, len(in.Rooms)),
		classIndex:   make(map[string]models.Class, len(in.Classes)),
		subjectIndex: make(map[string]models.Subject, len(in.Subjects)),
		prefIndex:    make(map[string][]models.SchedulePreference),
		ruleIndex:    make(map[string][]models.SchedulingRule),
	}
	for _, slot := range in.TimeSlots {
		c.slotIndex[slot.ID] = slot
	}
	for _, teacher := range in.Teachers {
		c.teacherIndex[teacher.ID] = teacher
	}
	for _, room := range in.Rooms {
		c.roomIndex[room.ID] = room
	}
	for _, class := range in.Classes {
		c.classIndex[class.ID] = class
	}
	for _, subject := range in.Subjects {
		c.subjectIndex[subject.ID] = subject
	}
	for _, pref := range in.Preferences {
		c.prefIndex[pref.Type] = append(c.prefIndex[pref.Type], pref)
	}
	for _, rule := range in.Rules {
		if !rule.Active {
			continue
		}
		c.ruleIndex[rule.Type] = append(c.ruleIndex[rule.Type], rule)
	}
	return c
}

// WithSessions derives a new snapshot over a different session set, sharing
// the resource collections.
func (c *Context) WithSessions(sessions []models.ScheduledSession) *Context {
	return NewContext(ContextInput{
		SchoolID:    c.SchoolID,
		ScheduleID:  c.ScheduleID,
		Sessions:    sessions,
		TimeSlots:   c.TimeSlots,
		Teachers:    c.Teachers,
		Rooms:       c.Rooms,
		Classes:     c.Classes,
		Subjects:    c.Subjects,
		Preferences: c.Preferences,
		Rules:       c.Rules,
	})
}

// TimeSlot resolves a slot by id.
func (c *Context) TimeSlot(id string) (models.TimeSlot, bool) {
	slot, ok := c.slotIndex[id]
	return slot, ok
}

// TeacherByID resolves a teacher by id.
func (c *Context) TeacherByID(id string) (models.Teacher, bool) {
	teacher, ok := c.teacherIndex[id]
	return teacher, ok
}

// RoomByID resolves a room by id.
func (c *Context) RoomByID(id string) (models.Room, bool) {
	room, ok := c.roomIndex[id]
	return room, ok
}

// ClassByID resolves a class by id.
func (c *Context) ClassByID(id string) (models.Class, bool) {
	class, ok := c.classIndex[id]
	return class, ok
}

// SubjectByID resolves a subject by id.
func (c *Context) SubjectByID(id string) (models.Subject, bool) {
	subject, ok := c.subjectIndex[id]
	return subject, ok
}

// PreferencesOf returns all preferences of one type, in input order.
func (c *Context) PreferencesOf(prefType string) []models.SchedulePreference {
	return c.prefIndex[prefType]
}

// PreferenceFor returns the first preference of a type scoped to an entity.
func (c *Context) PreferenceFor(prefType, entityID string) (models.SchedulePreference, bool) {
	for _, pref := range c.prefIndex[prefType] {
		if pref.EntityID == entityID {
			return pref, true
		}
	}
	return models.SchedulePreference{}, false
}

// RulesOf returns the active rules of one type.
func (c *Context) RulesOf(ruleType string) []models.SchedulingRule {
	return c.ruleIndex[ruleType]
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(raw string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}

// clockRange parses "HH:MM-HH:MM" into start/end minutes.
func clockRange(raw string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok := parseClock(parts[0])
	if !ok {
		return 0, 0, false
	}
	end, ok := parseClock(parts[1])
	if !ok || end < start {
		return 0, 0, false
	}
	return start, end, true
}
