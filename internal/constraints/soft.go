package constraints

import (
	"fmt"
	"math"
	"sort"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

// SoftConstraint scores a weighted scheduling preference. Violations reduce
// the optimization score but never invalidate a schedule.
type SoftConstraint interface {
	ID() string
	Weight() float64
	Validate(ctx *Context) []models.ConstraintViolation
	Penalty(ctx *Context) float64
	// MaxPenalty estimates the worst plausible penalty for the context's
	// resource volume, used to normalise heterogeneous penalty scales.
	MaxPenalty(ctx *Context) float64
	Suggestion() string
}

// SoftEngineConfig exposes the per-variant weights and max-penalty scale
// estimates. The scales are tuning parameters, not correctness requirements.
type SoftEngineConfig struct {
	TeacherPreferenceWeight float64
	TimePreferenceWeight    float64
	WorkloadWeight          float64
	RoomPreferenceWeight    float64
	SubjectPreferenceWeight float64
	ConsecutiveWeight       float64

	TeacherPreferenceScale float64 // per session
	TimePreferenceScale    float64 // per session
	WorkloadScale          float64 // per teacher
	RoomPreferenceScale    float64 // per session
	SubjectPreferenceScale float64 // per session
	ConsecutiveScale       float64 // per session

	// MaxSessionsPerDay caps any teacher's daily load when their workload
	// preference does not set maxSessionsPerDay. Zero disables the cap.
	MaxSessionsPerDay int
}

func (cfg *SoftEngineConfig) applyDefaults() {
	defaultWeight := func(v *float64) {
		if *v <= 0 {
			*v = 1
		}
	}
	defaultWeight(&cfg.TeacherPreferenceWeight)
	defaultWeight(&cfg.TimePreferenceWeight)
	defaultWeight(&cfg.WorkloadWeight)
	defaultWeight(&cfg.RoomPreferenceWeight)
	defaultWeight(&cfg.SubjectPreferenceWeight)
	defaultWeight(&cfg.ConsecutiveWeight)

	if cfg.TeacherPreferenceScale <= 0 {
		cfg.TeacherPreferenceScale = 10
	}
	if cfg.TimePreferenceScale <= 0 {
		cfg.TimePreferenceScale = 8
	}
	if cfg.WorkloadScale <= 0 {
		cfg.WorkloadScale = 20
	}
	if cfg.RoomPreferenceScale <= 0 {
		cfg.RoomPreferenceScale = 8
	}
	if cfg.SubjectPreferenceScale <= 0 {
		cfg.SubjectPreferenceScale = 6
	}
	if cfg.ConsecutiveScale <= 0 {
		cfg.ConsecutiveScale = 10
	}
}

// SoftEngine aggregates the soft constraint variants into a single 0-100
// optimization score plus remediation suggestions. Stateless, safe to share.
type SoftEngine struct {
	constraints []SoftConstraint
}

// NewSoftEngine registers the soft constraint variants.
func NewSoftEngine(cfg SoftEngineConfig) *SoftEngine {
	cfg.applyDefaults()
	return &SoftEngine{
		constraints: []SoftConstraint{
			&teacherPreferenceConstraint{weight: cfg.TeacherPreferenceWeight, scale: cfg.TeacherPreferenceScale},
			&timePreferenceConstraint{weight: cfg.TimePreferenceWeight, scale: cfg.TimePreferenceScale},
			&workloadDistributionConstraint{weight: cfg.WorkloadWeight, scale: cfg.WorkloadScale, maxPerDay: cfg.MaxSessionsPerDay},
			&roomPreferenceConstraint{weight: cfg.RoomPreferenceWeight, scale: cfg.RoomPreferenceScale},
			&subjectPreferenceConstraint{weight: cfg.SubjectPreferenceWeight, scale: cfg.SubjectPreferenceScale},
			&consecutivePeriodsConstraint{weight: cfg.ConsecutiveWeight, scale: cfg.ConsecutiveScale},
		},
	}
}

// ValidateAll returns every soft violation sorted by cost descending; ties
// keep constraint registration order.
func (e *SoftEngine) ValidateAll(ctx *Context) []models.ConstraintViolation {
	violations := make([]models.ConstraintViolation, 0)
	for _, constraint := range e.constraints {
		violations = append(violations, constraint.Validate(ctx)...)
	}
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Cost > violations[j].Cost
	})
	return violations
}

// CalculateOptimizationScore folds the per-constraint penalties into a
// single 0-100 percentage. Each variant contributes max(0, maxPenalty -
// penalty) weighted by its constraint weight; the result is the weighted
// share of achievable score. A zero denominator yields 0.
func (e *SoftEngine) CalculateOptimizationScore(ctx *Context) int {
	var achieved, achievable float64
	for _, constraint := range e.constraints {
		maxPenalty := constraint.MaxPenalty(ctx)
		if maxPenalty <= 0 {
			continue
		}
		penalty := constraint.Penalty(ctx)
		score := math.Max(0, maxPenalty-penalty)
		achieved += score * constraint.Weight()
		achievable += maxPenalty * constraint.Weight()
	}
	if achievable == 0 {
		return 0
	}
	result := int(math.Round(100 * achieved / achievable))
	if result < 0 {
		return 0
	}
	if result > 100 {
		return 100
	}
	return result
}

// GetOptimizationSuggestions emits one remediation hint per constraint type
// with at least one violation, to avoid overwhelming output.
func (e *SoftEngine) GetOptimizationSuggestions(ctx *Context) []string {
	var suggestions []string
	for _, constraint := range e.constraints {
		if len(constraint.Validate(ctx)) > 0 {
			suggestions = append(suggestions, constraint.Suggestion())
		}
	}
	return suggestions
}

// ConstraintIDs lists the registered soft constraint identifiers.
func (e *SoftEngine) ConstraintIDs() []string {
	ids := make([]string, 0, len(e.constraints))
	for _, constraint := range e.constraints {
		ids = append(ids, constraint.ID())
	}
	return ids
}

func totalCost(violations []models.ConstraintViolation) float64 {
	var sum float64
	for _, v := range violations {
		sum += v.Cost
	}
	return sum
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// --- Teacher preference ---

type teacherPreferenceConstraint struct {
	weight float64
	scale  float64
}

func (c *teacherPreferenceConstraint) ID() string      { return models.ConstraintTeacherPreference }
func (c *teacherPreferenceConstraint) Weight() float64 { return c.weight }
func (c *teacherPreferenceConstraint) Suggestion() string {
	return "Review teacher time preferences: move sessions out of avoided slots and into preferred ones where possible."
}
func (c *teacherPreferenceConstraint) Penalty(ctx *Context) float64 {
	return totalCost(c.Validate(ctx))
}
func (c *teacherPreferenceConstraint) MaxPenalty(ctx *Context) float64 {
	return float64(len(ctx.Sessions)) * c.scale
}

func (c *teacherPreferenceConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	for _, session := range ctx.Sessions {
		pref, ok := ctx.PreferenceFor(models.PreferenceTeacherTime, session.TeacherID)
		if !ok {
			continue
		}
		w := effectiveWeight(c.weight, pref.Weight)
		avoided := pref.Params.StringSlice("avoidSlots")
		preferred := pref.Params.StringSlice("preferredSlots")

		switch {
		case contains(avoided, session.TimeSlotID):
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   c.ID(),
				ConstraintType: "SOFT",
				Severity:       models.SeverityMedium,
				Description:    fmt.Sprintf("teacher %s is scheduled in avoided slot %s", session.TeacherID, session.TimeSlotID),
				AffectedIDs:    []string{session.TeacherID, session.ID},
				Resolution:     fmt.Sprintf("move session %s out of slot %s", session.ID, session.TimeSlotID),
				Cost:           w * 10,
			})
		case len(preferred) > 0 && !contains(preferred, session.TimeSlotID):
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   c.ID(),
				ConstraintType: "SOFT",
				Severity:       models.SeverityLow,
				Description:    fmt.Sprintf("teacher %s is scheduled outside preferred slots", session.TeacherID),
				AffectedIDs:    []string{session.TeacherID, session.ID},
				Resolution:     fmt.Sprintf("consider moving session %s into a preferred slot", session.ID),
				Cost:           w * 5,
			})
		}
	}
	return violations
}

// --- Time preference ---

type timePreferenceConstraint struct {
	weight float64
	scale  float64
}

func (c *timePreferenceConstraint) ID() string      { return models.ConstraintTimePreference }
func (c *timePreferenceConstraint) Weight() float64 { return c.weight }
func (c *timePreferenceConstraint) Suggestion() string {
	return "Shift sessions out of avoided time ranges declared by time preferences."
}
func (c *timePreferenceConstraint) Penalty(ctx *Context) float64 {
	return totalCost(c.Validate(ctx))
}
func (c *timePreferenceConstraint) MaxPenalty(ctx *Context) float64 {
	return float64(len(ctx.Sessions)) * c.scale
}

func (c *timePreferenceConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	prefs := ctx.PreferencesOf(models.PreferenceTimeRange)
	if len(prefs) == 0 {
		return nil
	}
	var violations []models.ConstraintViolation
	for _, session := range ctx.Sessions {
		slot, ok := ctx.TimeSlot(session.TimeSlotID)
		if !ok {
			continue
		}
		start, ok := parseClock(slot.StartTime)
		if !ok {
			continue
		}
		for _, pref := range prefs {
			if pref.EntityID != "" && pref.EntityID != session.ClassID {
				continue
			}
			w := effectiveWeight(c.weight, pref.Weight)
			for _, raw := range pref.Params.StringSlice("avoidRanges") {
				rangeStart, rangeEnd, ok := clockRange(raw)
				if !ok || start < rangeStart || start > rangeEnd {
					continue
				}
				violations = append(violations, models.ConstraintViolation{
					ConstraintID:   c.ID(),
					ConstraintType: "SOFT",
					Severity:       models.SeverityMedium,
					Description:    fmt.Sprintf("session %s starts at %s inside avoided range %s", session.ID, slot.StartTime, raw),
					AffectedIDs:    []string{session.ID, slot.ID},
					Resolution:     fmt.Sprintf("move session %s outside %s", session.ID, raw),
					Cost:           w * 8,
				})
			}
		}
	}
	return violations
}

// --- Workload distribution ---

type workloadDistributionConstraint struct {
	weight    float64
	scale     float64
	maxPerDay int // fallback daily cap when a preference sets none, 0 disables
}

func (c *workloadDistributionConstraint) ID() string      { return models.ConstraintWorkloadDistribution }
func (c *workloadDistributionConstraint) Weight() float64 { return c.weight }
func (c *workloadDistributionConstraint) Suggestion() string {
	return "Rebalance daily teaching loads: spread sessions so each teacher stays within the configured per-day bounds."
}
func (c *workloadDistributionConstraint) Penalty(ctx *Context) float64 {
	return totalCost(c.Validate(ctx))
}
func (c *workloadDistributionConstraint) MaxPenalty(ctx *Context) float64 {
	return float64(len(ctx.Teachers)) * c.scale
}

func (c *workloadDistributionConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	type dayCount struct {
		teacherID string
		date      string
		count     int
	}
	counts := make(map[string]*dayCount)
	order := make([]string, 0)
	for _, session := range ctx.Sessions {
		key := session.TeacherID + "|" + session.Date
		entry, ok := counts[key]
		if !ok {
			entry = &dayCount{teacherID: session.TeacherID, date: session.Date}
			counts[key] = entry
			order = append(order, key)
		}
		entry.count++
	}

	var violations []models.ConstraintViolation
	for _, key := range order {
		entry := counts[key]
		pref, hasPref := ctx.PreferenceFor(models.PreferenceWorkload, entry.teacherID)
		if !hasPref && c.maxPerDay <= 0 {
			continue
		}
		w := c.weight
		maxPerDay, hasMax := c.maxPerDay, c.maxPerDay > 0
		if hasPref {
			w = effectiveWeight(c.weight, pref.Weight)
			if v, ok := pref.Params.Int("maxSessionsPerDay"); ok {
				maxPerDay, hasMax = v, true
			}
		}

		if hasMax && entry.count > maxPerDay {
			excess := entry.count - maxPerDay
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   c.ID(),
				ConstraintType: "SOFT",
				Severity:       models.SeverityMedium,
				Description:    fmt.Sprintf("teacher %s has %d sessions on %s, above the maximum of %d", entry.teacherID, entry.count, entry.date, maxPerDay),
				AffectedIDs:    []string{entry.teacherID},
				Resolution:     fmt.Sprintf("move %d session(s) off %s for teacher %s", excess, entry.date, entry.teacherID),
				Cost:           w * 10 * float64(excess),
			})
		}
		if minPerDay, ok := pref.Params.Int("minSessionsPerDay"); ok && entry.count < minPerDay {
			deficit := minPerDay - entry.count
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   c.ID(),
				ConstraintType: "SOFT",
				Severity:       models.SeverityLow,
				Description:    fmt.Sprintf("teacher %s has only %d sessions on %s, below the minimum of %d", entry.teacherID, entry.count, entry.date, minPerDay),
				AffectedIDs:    []string{entry.teacherID},
				Resolution:     fmt.Sprintf("add %d session(s) on %s for teacher %s", deficit, entry.date, entry.teacherID),
				Cost:           w * 5 * float64(deficit),
			})
		}
		if target, ok := pref.Params.Int("targetSessionsPerDay"); ok {
			deviation := entry.count - target
			if deviation < 0 {
				deviation = -deviation
			}
			if deviation > 1 {
				violations = append(violations, models.ConstraintViolation{
					ConstraintID:   c.ID(),
					ConstraintType: "SOFT",
					Severity:       models.SeverityLow,
					Description:    fmt.Sprintf("teacher %s deviates from target load of %d on %s (%d sessions)", entry.teacherID, target, entry.date, entry.count),
					AffectedIDs:    []string{entry.teacherID},
					Resolution:     fmt.Sprintf("bring teacher %s closer to %d sessions on %s", entry.teacherID, target, entry.date),
					Cost:           w * 3 * float64(deviation-1),
				})
			}
		}
	}
	return violations
}

// --- Room preference ---

type roomPreferenceConstraint struct {
	weight float64
	scale  float64
}

func (c *roomPreferenceConstraint) ID() string      { return models.ConstraintRoomPreference }
func (c *roomPreferenceConstraint) Weight() float64 { return c.weight }
func (c *roomPreferenceConstraint) Suggestion() string {
	return "Reassign sessions to preferred room types where availability allows."
}
func (c *roomPreferenceConstraint) Penalty(ctx *Context) float64 {
	return totalCost(c.Validate(ctx))
}
func (c *roomPreferenceConstraint) MaxPenalty(ctx *Context) float64 {
	return float64(len(ctx.Sessions)) * c.scale
}

func (c *roomPreferenceConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	for _, session := range ctx.Sessions {
		pref, ok := ctx.PreferenceFor(models.PreferenceRoom, session.ClassID)
		if !ok {
			if pref, ok = ctx.PreferenceFor(models.PreferenceRoom, session.SubjectID); !ok {
				continue
			}
		}
		room, ok := ctx.RoomByID(session.RoomID)
		if !ok {
			continue
		}
		w := effectiveWeight(c.weight, pref.Weight)
		avoided := pref.Params.StringSlice("avoidRoomTypes")
		preferred := pref.Params.StringSlice("preferredRoomTypes")

		switch {
		case contains(avoided, room.Type):
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   c.ID(),
				ConstraintType: "SOFT",
				Severity:       models.SeverityMedium,
				Description:    fmt.Sprintf("session %s uses avoided room type %q (room %s)", session.ID, room.Type, room.ID),
				AffectedIDs:    []string{session.ID, room.ID},
				Resolution:     fmt.Sprintf("move session %s out of %q rooms", session.ID, room.Type),
				Cost:           w * 8,
			})
		case len(preferred) > 0 && !contains(preferred, room.Type):
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   c.ID(),
				ConstraintType: "SOFT",
				Severity:       models.SeverityLow,
				Description:    fmt.Sprintf("session %s is not in a preferred room type (room %s is %q)", session.ID, room.ID, room.Type),
				AffectedIDs:    []string{session.ID, room.ID},
				Resolution:     fmt.Sprintf("consider a preferred room type for session %s", session.ID),
				Cost:           w * 4,
			})
		}
	}
	return violations
}

// --- Subject preference ---

type subjectPreferenceConstraint struct {
	weight float64
	scale  float64
}

func (c *subjectPreferenceConstraint) ID() string      { return models.ConstraintSubjectPreference }
func (c *subjectPreferenceConstraint) Weight() float64 { return c.weight }
func (c *subjectPreferenceConstraint) Suggestion() string {
	return "Align subject sessions with their preferred time slots."
}
func (c *subjectPreferenceConstraint) Penalty(ctx *Context) float64 {
	return totalCost(c.Validate(ctx))
}
func (c *subjectPreferenceConstraint) MaxPenalty(ctx *Context) float64 {
	return float64(len(ctx.Sessions)) * c.scale
}

func (c *subjectPreferenceConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	for _, session := range ctx.Sessions {
		pref, ok := ctx.PreferenceFor(models.PreferenceSubjectTime, session.SubjectID)
		if !ok {
			continue
		}
		w := effectiveWeight(c.weight, pref.Weight)
		avoided := pref.Params.StringSlice("avoidSlots")
		preferred := pref.Params.StringSlice("preferredSlots")

		switch {
		case contains(avoided, session.TimeSlotID):
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   c.ID(),
				ConstraintType: "SOFT",
				Severity:       models.SeverityMedium,
				Description:    fmt.Sprintf("subject %s is scheduled in avoided slot %s", session.SubjectID, session.TimeSlotID),
				AffectedIDs:    []string{session.SubjectID, session.ID},
				Resolution:     fmt.Sprintf("move session %s out of slot %s", session.ID, session.TimeSlotID),
				Cost:           w * 6,
			})
		case len(preferred) > 0 && !contains(preferred, session.TimeSlotID):
			violations = append(violations, models.ConstraintViolation{
				ConstraintID:   c.ID(),
				ConstraintType: "SOFT",
				Severity:       models.SeverityLow,
				Description:    fmt.Sprintf("subject %s is scheduled outside preferred slots", session.SubjectID),
				AffectedIDs:    []string{session.SubjectID, session.ID},
				Resolution:     fmt.Sprintf("consider moving session %s into a preferred slot", session.ID),
				Cost:           w * 3,
			})
		}
	}
	return violations
}

// --- Consecutive periods ---

type consecutivePeriodsConstraint struct {
	weight float64
	scale  float64
}

func (c *consecutivePeriodsConstraint) ID() string      { return models.ConstraintConsecutivePeriods }
func (c *consecutivePeriodsConstraint) Weight() float64 { return c.weight }
func (c *consecutivePeriodsConstraint) Suggestion() string {
	return "Break up long runs of the same subject or teacher within a day."
}
func (c *consecutivePeriodsConstraint) Penalty(ctx *Context) float64 {
	return totalCost(c.Validate(ctx))
}
func (c *consecutivePeriodsConstraint) MaxPenalty(ctx *Context) float64 {
	return float64(len(ctx.Sessions)) * c.scale
}

func (c *consecutivePeriodsConstraint) Validate(ctx *Context) []models.ConstraintViolation {
	rules := ctx.RulesOf(models.RuleConsecutivePeriods)
	if len(rules) == 0 {
		return nil
	}
	rule := rules[0]
	maxSubject, okSubject := rule.Params.Int("maxConsecutiveSubject")
	maxTeacher, okTeacher := rule.Params.Int("maxConsecutiveTeacher")
	if !okSubject && !okTeacher {
		return nil
	}
	w := effectiveWeight(c.weight, rule.Weight)

	ordered := c.orderByDay(ctx)
	var violations []models.ConstraintViolation
	for _, day := range ordered {
		if okSubject {
			violations = append(violations, c.checkRuns(day, maxSubject,
				func(s models.ScheduledSession) string { return s.ClassID + "|" + s.SubjectID },
				func(s models.ScheduledSession) models.ConstraintViolation {
					return models.ConstraintViolation{
						ConstraintID:   c.ID(),
						ConstraintType: "SOFT",
						Severity:       models.SeverityMedium,
						Description:    fmt.Sprintf("class %s exceeds %d consecutive periods of subject %s", s.ClassID, maxSubject, s.SubjectID),
						AffectedIDs:    []string{s.ClassID, s.SubjectID, s.ID},
						Resolution:     fmt.Sprintf("interleave another subject before session %s", s.ID),
						Cost:           w * 10,
					}
				})...)
		}
		if okTeacher {
			violations = append(violations, c.checkRuns(day, maxTeacher,
				func(s models.ScheduledSession) string { return s.TeacherID },
				func(s models.ScheduledSession) models.ConstraintViolation {
					return models.ConstraintViolation{
						ConstraintID:   c.ID(),
						ConstraintType: "SOFT",
						Severity:       models.SeverityMedium,
						Description:    fmt.Sprintf("teacher %s exceeds %d consecutive periods", s.TeacherID, maxTeacher),
						AffectedIDs:    []string{s.TeacherID, s.ID},
						Resolution:     fmt.Sprintf("insert a break before session %s", s.ID),
						Cost:           w * 8,
					}
				})...)
		}
	}
	return violations
}

// orderByDay groups sessions per date and sorts each group by slot start.
func (c *consecutivePeriodsConstraint) orderByDay(ctx *Context) [][]models.ScheduledSession {
	groups := make(map[string][]models.ScheduledSession)
	order := make([]string, 0)
	for _, session := range ctx.Sessions {
		if _, seen := groups[session.Date]; !seen {
			order = append(order, session.Date)
		}
		groups[session.Date] = append(groups[session.Date], session)
	}

	startOf := func(s models.ScheduledSession) int {
		slot, ok := ctx.TimeSlot(s.TimeSlotID)
		if !ok {
			return 0
		}
		start, _ := parseClock(slot.StartTime)
		return start
	}

	result := make([][]models.ScheduledSession, 0, len(order))
	for _, date := range order {
		day := groups[date]
		sort.SliceStable(day, func(i, j int) bool {
			return startOf(day[i]) < startOf(day[j])
		})
		result = append(result, day)
	}
	return result
}

// checkRuns walks a time-ordered day and emits one violation for every
// session that extends a run beyond the limit. The violation is attributed
// to the breaching session.
func (c *consecutivePeriodsConstraint) checkRuns(
	day []models.ScheduledSession,
	limit int,
	keyOf func(models.ScheduledSession) string,
	build func(models.ScheduledSession) models.ConstraintViolation,
) []models.ConstraintViolation {
	if limit <= 0 {
		return nil
	}
	var violations []models.ConstraintViolation
	runs := make(map[string]int)
	var prevKeys map[string]bool
	for _, session := range day {
		key := keyOf(session)
		if prevKeys != nil && !prevKeys[key] {
			runs[key] = 0
		}
		runs[key]++
		if runs[key] > limit {
			violations = append(violations, build(session))
		}
		prevKeys = map[string]bool{key: true}
	}
	return violations
}

func effectiveWeight(base, pref float64) float64 {
	if pref > 0 {
		return base * pref
	}
	return base
}
