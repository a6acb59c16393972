package solver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

// HeuristicConfig tunes the in-process strategy.
type HeuristicConfig struct {
	// Default teaching window applied to teachers without availability
	// records, "HH:MM" clock values.
	DefaultAvailabilityStart string
	DefaultAvailabilityEnd   string
	RepairIterations         int
	Logger                   *zap.Logger
}

// HeuristicSolver places sessions greedily: heaviest demands first, spread
// across the least loaded days, then a bounded gap-repair pass compacts each
// class's day. It always terminates and never blocks on external processes,
// which makes it the fallback when the solver binary misbehaves.
type HeuristicSolver struct {
	defaultStart     string
	defaultEnd       string
	repairIterations int
	logger           *zap.Logger
}

// NewHeuristicSolver builds the in-process strategy.
func NewHeuristicSolver(cfg HeuristicConfig) *HeuristicSolver {
	if cfg.DefaultAvailabilityStart == "" {
		cfg.DefaultAvailabilityStart = "08:00"
	}
	if cfg.DefaultAvailabilityEnd == "" {
		cfg.DefaultAvailabilityEnd = "18:00"
	}
	if cfg.RepairIterations <= 0 {
		cfg.RepairIterations = 12
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &HeuristicSolver{
		defaultStart:     cfg.DefaultAvailabilityStart,
		defaultEnd:       cfg.DefaultAvailabilityEnd,
		repairIterations: cfg.RepairIterations,
		logger:           cfg.Logger,
	}
}

func (s *HeuristicSolver) Name() string { return "heuristic" }

// Solve seeds existing sessions, places every demand, compacts gaps, then
// re-ranks every session's priority by its preference dissatisfaction.
// Unplaceable demand units become warnings, not errors.
func (s *HeuristicSolver) Solve(ctx context.Context, req *Request) (*Result, error) {
	state := newPlacementState(req, s.defaultStart, s.defaultEnd)

	var warnings []string
	for _, session := range req.ExistingSessions {
		if !state.seed(session) {
			warnings = append(warnings, fmt.Sprintf("existing session %s overlaps another booking and was kept as-is", session.ID))
		}
	}

	demands := make([]demandRef, 0, len(req.Demands))
	for i, demand := range req.Demands {
		demands = append(demands, demandRef{index: i, demand: demand})
	}
	sort.SliceStable(demands, func(i, j int) bool {
		return demands[i].demand.WeeklyCount > demands[j].demand.WeeklyCount
	})

placement:
	for _, ref := range demands {
		for unit := 0; unit < ref.demand.WeeklyCount; unit++ {
			if ctx.Err() != nil {
				warnings = append(warnings, "placement stopped early: time budget exhausted")
				break placement
			}
			if state.assign(ref.index, ref.demand) {
				continue
			}
			warnings = append(warnings, fmt.Sprintf(
				"unable to place session %d/%d of subject %s for class %s",
				unit+1, ref.demand.WeeklyCount, ref.demand.SubjectID, ref.demand.ClassID))
		}
	}

	moves := state.repairGaps(s.repairIterations)
	rankByPreferences(req, state.slotIndex, state.sessions)
	s.logger.Debug("heuristic placement finished",
		zap.String("scheduleId", req.ScheduleID),
		zap.Int("sessions", len(state.sessions)),
		zap.Int("repairMoves", moves),
		zap.Int("warnings", len(warnings)))

	return &Result{Sessions: state.sessions, Warnings: warnings}, nil
}

type demandRef struct {
	index  int
	demand dto.ClassDemand
}

// scheduleDate is one calendar day inside the horizon.
type scheduleDate struct {
	date    string
	weekday string
}

type placementState struct {
	scheduleID string

	dates      []scheduleDate
	slotsByDay map[string][]models.TimeSlot
	slotIndex  map[string]models.TimeSlot
	rooms      []models.Room
	teachers   map[string]models.Teacher
	classes    map[string]models.Class

	teacherBusy  map[string]bool
	roomBusy     map[string]bool
	classBusy    map[string]bool
	classDayLoad map[string]int

	sessions []models.ScheduledSession

	defaultStart int
	defaultEnd   int
}

func newPlacementState(req *Request, defaultStart, defaultEnd string) *placementState {
	state := &placementState{
		scheduleID:   req.ScheduleID,
		slotsByDay:   make(map[string][]models.TimeSlot),
		slotIndex:    make(map[string]models.TimeSlot),
		teachers:     make(map[string]models.Teacher),
		classes:      make(map[string]models.Class),
		teacherBusy:  make(map[string]bool),
		roomBusy:     make(map[string]bool),
		classBusy:    make(map[string]bool),
		classDayLoad: make(map[string]int),
	}
	state.defaultStart, _ = clockMinutes(defaultStart)
	state.defaultEnd, _ = clockMinutes(defaultEnd)

	for day := req.StartDate; !day.After(req.EndDate); day = day.AddDate(0, 0, 1) {
		state.dates = append(state.dates, scheduleDate{
			date:    day.Format("2006-01-02"),
			weekday: strings.ToUpper(day.Weekday().String()),
		})
	}

	for _, slot := range req.Resources.TimeSlots {
		state.slotIndex[slot.ID] = slot
		if !slot.Active {
			continue
		}
		key := strings.ToUpper(slot.DayOfWeek)
		state.slotsByDay[key] = append(state.slotsByDay[key], slot)
	}
	for day := range state.slotsByDay {
		slots := state.slotsByDay[day]
		sort.SliceStable(slots, func(i, j int) bool {
			a, _ := clockMinutes(slots[i].StartTime)
			b, _ := clockMinutes(slots[j].StartTime)
			return a < b
		})
		state.slotsByDay[day] = slots
	}

	for _, room := range req.Resources.Rooms {
		if room.Active {
			state.rooms = append(state.rooms, room)
		}
	}
	sort.SliceStable(state.rooms, func(i, j int) bool {
		return state.rooms[i].Capacity < state.rooms[j].Capacity
	})

	for _, teacher := range req.Resources.Teachers {
		state.teachers[teacher.ID] = teacher
	}
	for _, class := range req.Resources.Classes {
		state.classes[class.ID] = class
	}
	return state
}

// seed registers an existing session's bookings and keeps it in the output.
// Returns false when the session overlaps an already seeded booking.
func (s *placementState) seed(session models.ScheduledSession) bool {
	clean := !s.teacherBusy[bookKey(session.TeacherID, session.TimeSlotID, session.Date)] &&
		!s.roomBusy[bookKey(session.RoomID, session.TimeSlotID, session.Date)] &&
		!s.classBusy[bookKey(session.ClassID, session.TimeSlotID, session.Date)]
	s.reserve(session)
	s.sessions = append(s.sessions, session)
	return clean
}

// assign places one unit of a demand, preferring the least loaded days for
// the class so sessions spread across the horizon.
func (s *placementState) assign(demandIndex int, demand dto.ClassDemand) bool {
	dateOrder := make([]scheduleDate, len(s.dates))
	copy(dateOrder, s.dates)
	sort.SliceStable(dateOrder, func(i, j int) bool {
		return s.classDayLoad[demand.ClassID+"|"+dateOrder[i].date] < s.classDayLoad[demand.ClassID+"|"+dateOrder[j].date]
	})

	for _, day := range dateOrder {
		for _, slot := range s.slotsByDay[day.weekday] {
			if s.classBusy[bookKey(demand.ClassID, slot.ID, day.date)] {
				continue
			}
			if !s.teacherFree(demand.TeacherID, slot, day.date) {
				continue
			}
			room, ok := s.pickRoom(demand, slot.ID, day.date)
			if !ok {
				continue
			}
			s.place(demandIndex, demand, slot, room, day.date)
			return true
		}
	}
	return false
}

func (s *placementState) teacherFree(teacherID string, slot models.TimeSlot, date string) bool {
	if s.teacherBusy[bookKey(teacherID, slot.ID, date)] {
		return false
	}
	teacher, ok := s.teachers[teacherID]
	if !ok {
		return false
	}
	slotStart, okStart := clockMinutes(slot.StartTime)
	slotEnd, okEnd := clockMinutes(slot.EndTime)
	if !okStart || !okEnd {
		return true
	}
	if len(teacher.Availability) == 0 {
		return slotStart >= s.defaultStart && slotEnd <= s.defaultEnd
	}
	for _, window := range teacher.Availability {
		if !strings.EqualFold(window.DayOfWeek, slot.DayOfWeek) {
			continue
		}
		winStart, ok := clockMinutes(window.StartTime)
		if !ok {
			continue
		}
		winEnd, ok := clockMinutes(window.EndTime)
		if !ok {
			continue
		}
		if slotStart >= winStart && slotEnd <= winEnd {
			return true
		}
	}
	return false
}

// pickRoom chooses the smallest free room that fits the class, honoring a
// LAB session's need for a lab-typed room when one exists.
func (s *placementState) pickRoom(demand dto.ClassDemand, slotID, date string) (models.Room, bool) {
	enrollment := 0
	if class, ok := s.classes[demand.ClassID]; ok {
		enrollment = class.CurrentEnrollment
	}
	needsLab := demand.Type == models.SessionTypeLab

	var fallback models.Room
	var haveFallback bool
	for _, room := range s.rooms {
		if room.Capacity < enrollment {
			continue
		}
		if s.roomBusy[bookKey(room.ID, slotID, date)] {
			continue
		}
		if needsLab && strings.EqualFold(room.Type, "LAB") {
			return room, true
		}
		if !haveFallback {
			fallback, haveFallback = room, true
		}
		if !needsLab {
			return room, true
		}
	}
	return fallback, haveFallback
}

func (s *placementState) place(demandIndex int, demand dto.ClassDemand, slot models.TimeSlot, room models.Room, date string) {
	duration := demand.DurationMins
	if duration <= 0 {
		duration = slotDuration(slot)
	}
	sessionType := demand.Type
	if sessionType == "" {
		sessionType = models.SessionTypeLecture
	}
	session := models.ScheduledSession{
		ID:              uuid.NewString(),
		ScheduleID:      s.scheduleID,
		SubjectID:       demand.SubjectID,
		ClassID:         demand.ClassID,
		TeacherID:       demand.TeacherID,
		RoomID:          room.ID,
		TimeSlotID:      slot.ID,
		Date:            date,
		DurationMinutes: duration,
		Type:            sessionType,
		Priority:        demandIndex,
	}
	s.reserve(session)
	s.sessions = append(s.sessions, session)
}

func (s *placementState) reserve(session models.ScheduledSession) {
	s.teacherBusy[bookKey(session.TeacherID, session.TimeSlotID, session.Date)] = true
	s.roomBusy[bookKey(session.RoomID, session.TimeSlotID, session.Date)] = true
	s.classBusy[bookKey(session.ClassID, session.TimeSlotID, session.Date)] = true
	s.classDayLoad[session.ClassID+"|"+session.Date]++
}

func (s *placementState) release(session models.ScheduledSession) {
	delete(s.teacherBusy, bookKey(session.TeacherID, session.TimeSlotID, session.Date))
	delete(s.roomBusy, bookKey(session.RoomID, session.TimeSlotID, session.Date))
	delete(s.classBusy, bookKey(session.ClassID, session.TimeSlotID, session.Date))
	s.classDayLoad[session.ClassID+"|"+session.Date]--
}

// repairGaps compacts each class's day by pulling later sessions into the
// earliest free slot after the previous one, one move per iteration.
func (s *placementState) repairGaps(maxIterations int) int {
	iterations := 0
	for iterations < maxIterations {
		moved := false
		for idx := range s.sessions {
			if s.tryCompact(idx) {
				moved = true
				break
			}
		}
		if !moved {
			break
		}
		iterations++
	}
	return iterations
}

// tryCompact attempts to move session idx one day-slot earlier when it sits
// behind a gap for its class.
func (s *placementState) tryCompact(idx int) bool {
	session := s.sessions[idx]
	slot, ok := s.slotIndex[session.TimeSlotID]
	if !ok {
		return false
	}
	daySlots := s.slotsByDay[strings.ToUpper(slot.DayOfWeek)]

	position := -1
	for i, candidate := range daySlots {
		if candidate.ID == slot.ID {
			position = i
			break
		}
	}
	if position <= 0 {
		return false
	}

	// Walk earlier slots on the same day; stop at the first one the class
	// already occupies, since the day is gapless up to there.
	for i := position - 1; i >= 0; i-- {
		target := daySlots[i]
		if s.classBusy[bookKey(session.ClassID, target.ID, session.Date)] {
			return false
		}
		if !s.teacherFree(session.TeacherID, target, session.Date) {
			continue
		}
		if s.roomBusy[bookKey(session.RoomID, target.ID, session.Date)] {
			continue
		}
		s.release(session)
		session.TimeSlotID = target.ID
		s.reserve(session)
		s.sessions[idx] = session
		return true
	}
	return false
}

// rankByPreferences rewrites each session's priority to its preference
// dissatisfaction score, existing sessions included, so follow-up
// optimization runs pick the worst placements first. A session satisfying
// every matching preference ends up at priority 0. Without preferences the
// placement priorities are left alone.
func rankByPreferences(req *Request, slotIndex map[string]models.TimeSlot, sessions []models.ScheduledSession) {
	if len(req.Preferences) == 0 {
		return
	}
	roomTypes := make(map[string]string, len(req.Resources.Rooms))
	for _, room := range req.Resources.Rooms {
		roomTypes[room.ID] = room.Type
	}
	for i := range sessions {
		sessions[i].Priority = preferenceMismatch(req.Preferences, slotIndex, roomTypes, sessions[i])
	}
}

func preferenceMismatch(prefs []models.SchedulePreference, slotIndex map[string]models.TimeSlot, roomTypes map[string]string, session models.ScheduledSession) int {
	score := 0
	for _, pref := range prefs {
		weight := int(pref.Weight)
		if weight < 1 {
			weight = 1
		}
		switch pref.Type {
		case models.PreferenceTeacherTime:
			if pref.EntityID != session.TeacherID {
				continue
			}
			score += slotMismatch(pref, session.TimeSlotID) * weight
		case models.PreferenceSubjectTime:
			if pref.EntityID != session.SubjectID {
				continue
			}
			score += slotMismatch(pref, session.TimeSlotID) * weight
		case models.PreferenceTimeRange:
			if pref.EntityID != "" && pref.EntityID != session.ClassID {
				continue
			}
			slot, ok := slotIndex[session.TimeSlotID]
			if !ok {
				continue
			}
			start, ok := clockMinutes(slot.StartTime)
			if !ok {
				continue
			}
			for _, raw := range pref.Params.StringSlice("avoidRanges") {
				lo, hi, ok := clockRangeMinutes(raw)
				if ok && start >= lo && start <= hi {
					score += 2 * weight
					break
				}
			}
		case models.PreferenceRoom:
			if pref.EntityID != session.ClassID && pref.EntityID != session.SubjectID {
				continue
			}
			roomType := roomTypes[session.RoomID]
			avoided := pref.Params.StringSlice("avoidRoomTypes")
			preferred := pref.Params.StringSlice("preferredRoomTypes")
			switch {
			case containsString(avoided, roomType):
				score += 2 * weight
			case len(preferred) > 0 && !containsString(preferred, roomType):
				score += weight
			}
		}
	}
	return score
}

// slotMismatch scores a slot against a preference's avoid/preferred lists:
// 2 for an avoided slot, 1 for landing outside a non-empty preferred list.
func slotMismatch(pref models.SchedulePreference, slotID string) int {
	avoided := pref.Params.StringSlice("avoidSlots")
	preferred := pref.Params.StringSlice("preferredSlots")
	switch {
	case containsString(avoided, slotID):
		return 2
	case len(preferred) > 0 && !containsString(preferred, slotID):
		return 1
	}
	return 0
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// clockRangeMinutes parses "HH:MM-HH:MM" into start/end minutes.
func clockRangeMinutes(raw string) (int, int, bool) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, okStart := clockMinutes(parts[0])
	end, okEnd := clockMinutes(parts[1])
	if !okStart || !okEnd || end < start {
		return 0, 0, false
	}
	return start, end, true
}

func bookKey(entityID, slotID, date string) string {
	return entityID + "|" + slotID + "|" + date
}

func slotDuration(slot models.TimeSlot) int {
	start, okStart := clockMinutes(slot.StartTime)
	end, okEnd := clockMinutes(slot.EndTime)
	if !okStart || !okEnd || end <= start {
		return 60
	}
	return end - start
}

// clockMinutes parses "HH:MM" into minutes since midnight.
func clockMinutes(raw string) (int, bool) {
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

