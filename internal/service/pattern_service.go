package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

const (
	defaultDurationTolerance = 0.01
	timeSlotCacheKeyPrefix   = "timeslots:branch:"
)

type draftCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassDraft, error)
	FindCourse(ctx context.Context, id string) (*models.Course, error)
}

type patternSessionStore interface {
	ListByClass(ctx context.Context, classID string) ([]models.Session, error)
	FindByID(ctx context.Context, classID, sessionID string) (*models.Session, error)
	SetTimeSlotForWeekday(ctx context.Context, exec sqlx.ExtContext, classID string, weekday models.Weekday, timeSlotID string, from, to time.Time) (int64, error)
	SetResource(ctx context.Context, exec sqlx.ExtContext, sessionID, resourceID string, override bool) error
	ListResourceBookings(ctx context.Context, excludeClassID string, resourceIDs []string, from, to time.Time) ([]models.ResourceBooking, error)
}

type timeSlotCatalog interface {
	ListByBranch(ctx context.Context, branchID string) ([]models.TimeSlotTemplate, error)
}

type resourceCatalog interface {
	ListByBranch(ctx context.Context, branchID string) ([]models.Resource, error)
	FindByID(ctx context.Context, id string) (*models.Resource, error)
}

// PatternConfig tunes candidate filtering and catalog caching.
type PatternConfig struct {
	DurationTolerance float64
	CatalogCacheTTL   time.Duration
}

// PatternService assigns time slots and resources per weekday and fans them out to sessions.
type PatternService struct {
	drafts    draftCourseReader
	sessions  patternSessionStore
	slots     timeSlotCatalog
	resources resourceCatalog
	tx        txProvider
	audit     auditRecorder
	locker    *DraftLocker
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PatternConfig
}

// NewPatternService wires the pattern assignment engine.
func NewPatternService(drafts draftCourseReader, sessions patternSessionStore, slots timeSlotCatalog, resources resourceCatalog, tx txProvider, audit auditRecorder, locker *DraftLocker, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PatternConfig) *PatternService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewDraftLocker()
	}
	if cfg.DurationTolerance <= 0 {
		cfg.DurationTolerance = defaultDurationTolerance
	}
	return &PatternService{
		drafts:    drafts,
		sessions:  sessions,
		slots:     slots,
		resources: resources,
		tx:        tx,
		audit:     audit,
		locker:    locker,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// DeriveCurrentPattern returns the majority value per active weekday. Ties go to the first value encountered
// in session order and weekdays without any value are omitted.
func DeriveCurrentPattern(weekdays []models.Weekday, sessions []models.Session, dim models.Dimension) models.Pattern {
	active := models.NewWeekdaySet(weekdays...)
	type tally struct {
		order  []string
		counts map[string]int
	}
	tallies := make(map[models.Weekday]*tally)
	for _, session := range sessions {
		if !active.Contains(session.DayOfWeek) {
			continue
		}
		value := session.Assigned(dim)
		if value == "" {
			continue
		}
		t, ok := tallies[session.DayOfWeek]
		if !ok {
			t = &tally{counts: make(map[string]int)}
			tallies[session.DayOfWeek] = t
		}
		if _, seen := t.counts[value]; !seen {
			t.order = append(t.order, value)
		}
		t.counts[value]++
	}

	pattern := make(models.Pattern, len(tallies))
	for wd, t := range tallies {
		best, bestCount := "", 0
		for _, value := range t.order {
			if t.counts[value] > bestCount {
				best, bestCount = value, t.counts[value]
			}
		}
		pattern[wd] = best
	}
	return pattern
}

// ProposePattern keeps the selections made for active weekdays and drops empty ones.
func ProposePattern(weekdays []models.Weekday, selections map[models.Weekday]string) models.Pattern {
	active := models.NewWeekdaySet(weekdays...)
	pattern := make(models.Pattern, len(selections))
	for wd, value := range selections {
		value = strings.TrimSpace(value)
		if value == "" || !active.Contains(wd) {
			continue
		}
		pattern[wd] = value
	}
	return pattern
}

// FilterTimeSlotCandidates keeps templates whose duration matches hoursPerSession within tolerance.
func FilterTimeSlotCandidates(slots []models.TimeSlotTemplate, hoursPerSession, tolerance float64) []models.TimeSlotTemplate {
	out := make([]models.TimeSlotTemplate, 0, len(slots))
	for _, slot := range slots {
		duration, err := slot.DurationHours()
		if err != nil {
			continue
		}
		if math.Abs(duration-hoursPerSession) <= tolerance+1e-9 {
			out = append(out, slot)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime == out[j].StartTime {
			return out[i].Name < out[j].Name
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// BuildCoverage reports which active weekdays lack a pattern value or any candidate.
func BuildCoverage(dim models.Dimension, weekdays []models.Weekday, pattern models.Pattern, nonAssignable []models.Weekday) dto.PatternCoverage {
	coverage := dto.PatternCoverage{
		Dimension:     dim,
		Pattern:       pattern,
		NonAssignable: []models.Weekday{},
		Unassigned:    []models.Weekday{},
	}
	blocked := models.NewWeekdaySet(nonAssignable...)
	for _, wd := range models.NewWeekdaySet(weekdays...) {
		if blocked.Contains(wd) {
			coverage.NonAssignable = append(coverage.NonAssignable, wd)
		}
		if _, ok := pattern[wd]; !ok {
			coverage.Unassigned = append(coverage.Unassigned, wd)
		}
	}
	coverage.AllWeekdaysAssigned = len(coverage.Unassigned) == 0 && len(coverage.NonAssignable) == 0
	return coverage
}

// ListTimeSlotCandidates lists duration-matching templates per active weekday. The bool reports whether the
// branch catalog came from cache.
func (s *PatternService) ListTimeSlotCandidates(ctx context.Context, draftID string) (*dto.TimeSlotCandidatesResponse, bool, error) {
	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, false, err
	}
	course, err := s.loadCourse(ctx, draft.CourseID)
	if err != nil {
		return nil, false, err
	}
	candidates, cacheHit, err := s.candidateSlots(ctx, draft.BranchID, course.HoursPerSession)
	if err != nil {
		return nil, false, err
	}

	resp := &dto.TimeSlotCandidatesResponse{HoursPerSession: course.HoursPerSession, AllAssignable: true}
	for _, wd := range draft.Weekdays {
		entry := models.WeekdayTimeSlots{
			Weekday:    wd,
			Assignable: len(candidates) > 0,
			Candidates: candidates,
		}
		if !entry.Assignable {
			resp.AllAssignable = false
		}
		resp.Weekdays = append(resp.Weekdays, entry)
	}
	return resp, cacheHit, nil
}

// CurrentPattern returns the prefill pattern derived from existing assignments and its coverage.
func (s *PatternService) CurrentPattern(ctx context.Context, draftID string, dim models.Dimension) (*dto.PatternCoverage, error) {
	if !dim.Valid() {
		return nil, fieldError("dimension", "must be one of TIME_SLOT RESOURCE TEACHER")
	}
	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	sessions, err := loadSessions(ctx, s.sessions, draftID)
	if err != nil {
		return nil, err
	}
	pattern := DeriveCurrentPattern(draft.Weekdays, sessions, dim)

	var blocked []models.Weekday
	if dim == models.DimensionTimeSlot {
		resp, _, err := s.ListTimeSlotCandidates(ctx, draftID)
		if err != nil {
			return nil, err
		}
		for _, wd := range resp.Weekdays {
			if !wd.Assignable {
				blocked = append(blocked, wd.Weekday)
			}
		}
	}
	coverage := BuildCoverage(dim, draft.Weekdays, pattern, blocked)
	return &coverage, nil
}

// ApplyTimeSlotPattern fans the time slot chosen per weekday out to every matching session in range.
func (s *PatternService) ApplyTimeSlotPattern(ctx context.Context, actor models.Actor, draftID string, req dto.ApplyTimeSlotPatternRequest) (*dto.ApplyTimeSlotPatternResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid time slot pattern")
	}
	release, err := s.locker.TryLock(draftID)
	if err != nil {
		return nil, err
	}
	defer release()

	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	if err := guardMutation(draft, actor); err != nil {
		return nil, err
	}
	if err := ensureActiveKeys(draft, req.Pattern); err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, draft.CourseID)
	if err != nil {
		return nil, err
	}
	candidates, cacheHit, err := s.candidateSlots(ctx, draft.BranchID, course.HoursPerSession)
	if err != nil {
		return nil, err
	}
	if cacheHit && !slotsCover(candidates, req.Pattern) {
		// The cached catalog may predate a new template; reload it once before rejecting.
		if err := s.cache.Invalidate(ctx, timeSlotCacheKeyPrefix+draft.BranchID); err == nil {
			if candidates, _, err = s.candidateSlots(ctx, draft.BranchID, course.HoursPerSession); err != nil {
				return nil, err
			}
		}
	}
	allowed := make(map[string]struct{}, len(candidates))
	for _, slot := range candidates {
		allowed[slot.ID] = struct{}{}
	}
	for _, wd := range sortedWeekdays(req.Pattern) {
		if _, ok := allowed[req.Pattern[wd]]; !ok {
			return nil, fieldError("pattern", fmt.Sprintf("time slot for %s does not match the course duration", wd))
		}
	}

	var updated int64
	err = withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		for _, wd := range sortedWeekdays(req.Pattern) {
			n, err := s.sessions.SetTimeSlotForWeekday(ctx, exec, draft.ID, wd, req.Pattern[wd], draft.StartDate, draft.PlannedEndDate)
			if err != nil {
				return internalError(err, "failed to apply time slot pattern")
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordFanout(models.DimensionTimeSlot, int(updated), nil)
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionTimeSlotPattern, draft.ID, map[string]interface{}{
		"pattern": req.Pattern,
		"updated": updated,
	})
	return &dto.ApplyTimeSlotPatternResponse{UpdatedSessions: int(updated)}, nil
}

// ApplyResourcePattern fans the resource chosen per weekday out to matching sessions. Sessions without a
// conflict are assigned immediately; the rest are returned as conflicts and keep their previous resource.
func (s *PatternService) ApplyResourcePattern(ctx context.Context, actor models.Actor, draftID string, pattern models.Pattern, forceOverride bool) (*dto.ApplyResourcePatternResponse, error) {
	if len(pattern) == 0 {
		return nil, fieldError("pattern", "is required")
	}
	release, err := s.locker.TryLock(draftID)
	if err != nil {
		return nil, err
	}
	defer release()

	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	if err := guardMutation(draft, actor); err != nil {
		return nil, err
	}
	if err := ensureActiveKeys(draft, pattern); err != nil {
		return nil, err
	}

	chosen := make(map[string]*models.Resource)
	for _, wd := range sortedWeekdays(pattern) {
		id := pattern[wd]
		if _, ok := chosen[id]; ok {
			continue
		}
		resource, err := s.loadResource(ctx, draft, id)
		if err != nil {
			return nil, err
		}
		chosen[id] = resource
	}

	sessions, err := loadSessions(ctx, s.sessions, draft.ID)
	if err != nil {
		return nil, err
	}
	slots, err := s.branchSlots(ctx, draft.BranchID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookingIndex(ctx, draft, keys(chosen))
	if err != nil {
		return nil, err
	}

	type write struct {
		sessionID  string
		resourceID string
	}
	var writes []write
	conflicts := []models.ResourceConflict{}
	for _, session := range sessions {
		resourceID, ok := pattern[session.DayOfWeek]
		if !ok || !draft.InRange(session.Date) {
			continue
		}
		if forceOverride && session.ResourceOverride {
			continue
		}
		conflict, clash := detectResourceConflict(draft, session, chosen[resourceID], slots, bookings, forceOverride)
		if clash {
			conflicts = append(conflicts, conflict)
			continue
		}
		writes = append(writes, write{sessionID: session.ID, resourceID: resourceID})
	}

	err = withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		for _, w := range writes {
			if err := s.sessions.SetResource(ctx, exec, w.sessionID, w.resourceID, false); err != nil {
				return internalError(err, "failed to apply resource pattern")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordFanout(models.DimensionResource, len(writes), conflicts)
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionResourcePattern, draft.ID, map[string]interface{}{
		"pattern":       pattern,
		"forceOverride": forceOverride,
		"assigned":      len(writes),
		"conflicts":     len(conflicts),
	})
	return &dto.ApplyResourcePatternResponse{AssignedSessions: len(writes), Conflicts: conflicts}, nil
}

// ListResourceCandidates lists branch resources large enough for the class, ranked by how many sessions on
// the weekday they are free for.
func (s *PatternService) ListResourceCandidates(ctx context.Context, draftID string, q dto.ResourceCandidatesQuery) ([]models.Resource, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Validation(err, "invalid resource candidate query")
	}
	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	if !draft.Weekdays.Contains(q.Weekday) {
		return nil, fieldError("weekday", "is not an active weekday of the class")
	}
	slots, err := s.branchSlots(ctx, draft.BranchID)
	if err != nil {
		return nil, err
	}
	slot, ok := slots[q.TimeSlotID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	resources, err := s.resources.ListByBranch(ctx, draft.BranchID)
	if err != nil {
		return nil, internalError(err, "failed to list resources")
	}
	fitting := make([]models.Resource, 0, len(resources))
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		if r.Capacity >= draft.MaxCapacity {
			fitting = append(fitting, r)
			ids = append(ids, r.ID)
		}
	}
	if len(fitting) == 0 {
		return fitting, nil
	}

	sessions, err := loadSessions(ctx, s.sessions, draft.ID)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	for _, session := range sessions {
		if session.DayOfWeek == q.Weekday && draft.InRange(session.Date) {
			dates = append(dates, session.Date)
		}
	}
	bookings, err := s.bookingIndex(ctx, draft, ids)
	if err != nil {
		return nil, err
	}
	for i := range fitting {
		free := 0
		for _, date := range dates {
			if len(overlappingBookings(bookings[bookingKey(fitting[i].ID, date)], slot)) == 0 {
				free++
			}
		}
		rate := 100.0
		if len(dates) > 0 {
			rate = roundTo2(float64(free) / float64(len(dates)) * 100)
		}
		fitting[i].AvailabilityRate = &rate
	}
	sort.SliceStable(fitting, func(i, j int) bool {
		ri, rj := *fitting[i].AvailabilityRate, *fitting[j].AvailabilityRate
		if ri != rj {
			return ri > rj
		}
		return fitting[i].Name < fitting[j].Name
	})
	return fitting, nil
}

// ListResourceSuggestions lists resources that are free at the session's date and time with enough capacity.
func (s *PatternService) ListResourceSuggestions(ctx context.Context, draftID, sessionID string) ([]models.ResourceOption, error) {
	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	session, err := s.loadSession(ctx, draftID, sessionID)
	if err != nil {
		return nil, err
	}
	slots, err := s.branchSlots(ctx, draft.BranchID)
	if err != nil {
		return nil, err
	}
	slot, ok := sessionSlot(session, slots)
	if !ok {
		return nil, fieldError("sessionId", "session has no time slot")
	}
	resources, err := s.resources.ListByBranch(ctx, draft.BranchID)
	if err != nil {
		return nil, internalError(err, "failed to list resources")
	}
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID)
	}
	bookings, err := s.bookingIndex(ctx, draft, ids)
	if err != nil {
		return nil, err
	}

	options := []models.ResourceOption{}
	for _, r := range resources {
		if r.Capacity < draft.MaxCapacity {
			continue
		}
		if session.ResourceID != nil && *session.ResourceID == r.ID {
			continue
		}
		if len(overlappingBookings(bookings[bookingKey(r.ID, session.Date)], slot)) > 0 {
			continue
		}
		options = append(options, models.ResourceOption{ResourceID: r.ID, Name: r.Name, Type: r.Type, Capacity: r.Capacity})
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options, nil
}

// AssignSessionResource assigns one resource to one session and marks it as an override. Repeating the same
// assignment is a no-op.
func (s *PatternService) AssignSessionResource(ctx context.Context, actor models.Actor, draftID, sessionID, resourceID string) (*models.Session, error) {
	if strings.TrimSpace(resourceID) == "" {
		return nil, fieldError("resourceId", "is required")
	}
	release, err := s.locker.TryLock(draftID)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.assignSessionResourceHeld(ctx, actor, draftID, sessionID, resourceID)
}

// lockDraft takes the draft operation lock for callers that run several held assignments in a row.
func (s *PatternService) lockDraft(draftID string) (func(), error) {
	return s.locker.TryLock(draftID)
}

// assignSessionResourceHeld is AssignSessionResource for a caller already holding the draft lock.
func (s *PatternService) assignSessionResourceHeld(ctx context.Context, actor models.Actor, draftID, sessionID, resourceID string) (*models.Session, error) {
	if strings.TrimSpace(resourceID) == "" {
		return nil, fieldError("resourceId", "is required")
	}
	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	if err := guardMutation(draft, actor); err != nil {
		return nil, err
	}
	session, err := s.loadSession(ctx, draftID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ResourceOverride && session.ResourceID != nil && *session.ResourceID == resourceID {
		return session, nil
	}
	slots, err := s.branchSlots(ctx, draft.BranchID)
	if err != nil {
		return nil, err
	}
	slot, ok := sessionSlot(session, slots)
	if !ok {
		return nil, fieldError("sessionId", "session has no time slot")
	}
	resource, err := s.loadResource(ctx, draft, resourceID)
	if err != nil {
		return nil, err
	}
	if resource.Capacity < draft.MaxCapacity {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s holds %d, the class needs %d", resource.Name, resource.Capacity, draft.MaxCapacity))
	}
	bookings, err := s.bookingIndex(ctx, draft, []string{resourceID})
	if err != nil {
		return nil, err
	}
	if clashes := overlappingBookings(bookings[bookingKey(resourceID, session.Date)], slot); len(clashes) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s is already booked by %s", resource.Name, strings.Join(classNames(clashes), ", ")))
	}

	if err := s.sessions.SetResource(ctx, nil, session.ID, resourceID, true); err != nil {
		return nil, internalError(err, "failed to assign resource")
	}
	session.ResourceID = strPtr(resourceID)
	session.ResourceOverride = true

	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionSessionResource, draft.ID, map[string]interface{}{
		"sessionId":  session.ID,
		"resourceId": resourceID,
	})
	return session, nil
}

func (s *PatternService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.drafts.FindCourse(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to load course")
	}
	return course, nil
}

func (s *PatternService) loadSession(ctx context.Context, draftID, sessionID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, draftID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, internalError(err, "failed to load session")
	}
	return session, nil
}

func (s *PatternService) loadResource(ctx context.Context, draft *models.ClassDraft, id string) (*models.Resource, error) {
	resource, err := s.resources.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, internalError(err, "failed to load resource")
	}
	if resource.BranchID != draft.BranchID {
		return nil, fieldError("resourceId", "belongs to another branch")
	}
	return resource, nil
}

func (s *PatternService) listBranchSlots(ctx context.Context, branchID string) ([]models.TimeSlotTemplate, bool, error) {
	key := timeSlotCacheKeyPrefix + branchID
	var cached []models.TimeSlotTemplate
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}
	slots, err := s.slots.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, false, internalError(err, "failed to list time slots")
	}
	_ = s.cache.Set(ctx, key, slots, s.cfg.CatalogCacheTTL)
	return slots, false, nil
}

func (s *PatternService) branchSlots(ctx context.Context, branchID string) (map[string]models.TimeSlotTemplate, error) {
	slots, _, err := s.listBranchSlots(ctx, branchID)
	if err != nil {
		return nil, err
	}
	index := make(map[string]models.TimeSlotTemplate, len(slots))
	for _, slot := range slots {
		index[slot.ID] = slot
	}
	return index, nil
}

func (s *PatternService) candidateSlots(ctx context.Context, branchID string, hours float64) ([]models.TimeSlotTemplate, bool, error) {
	slots, hit, err := s.listBranchSlots(ctx, branchID)
	if err != nil {
		return nil, false, err
	}
	return FilterTimeSlotCandidates(slots, hours, s.cfg.DurationTolerance), hit, nil
}

func slotsCover(slots []models.TimeSlotTemplate, pattern models.Pattern) bool {
	known := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		known[slot.ID] = struct{}{}
	}
	for _, id := range pattern {
		if _, ok := known[id]; !ok {
			return false
		}
	}
	return true
}

func (s *PatternService) bookingIndex(ctx context.Context, draft *models.ClassDraft, resourceIDs []string) (map[string][]models.ResourceBooking, error) {
	index := make(map[string][]models.ResourceBooking)
	if len(resourceIDs) == 0 {
		return index, nil
	}
	bookings, err := s.sessions.ListResourceBookings(ctx, draft.ID, resourceIDs, draft.StartDate, draft.PlannedEndDate)
	if err != nil {
		return nil, internalError(err, "failed to load resource bookings")
	}
	for _, b := range bookings {
		key := bookingKey(b.ResourceID, b.Date)
		index[key] = append(index[key], b)
	}
	return index, nil
}

func detectResourceConflict(draft *models.ClassDraft, session models.Session, resource *models.Resource, slots map[string]models.TimeSlotTemplate, bookings map[string][]models.ResourceBooking, force bool) (models.ResourceConflict, bool) {
	conflict := models.ResourceConflict{
		SessionID:          session.ID,
		Date:               session.Date,
		DayOfWeek:          session.DayOfWeek,
		ResourceID:         resource.ID,
		Alternatives:       []models.ResourceOption{},
		ConflictingClasses: []string{},
	}
	slot, ok := sessionSlot(&session, slots)
	if !ok {
		conflict.Reason = models.ReasonTimeSlotMissing
		return conflict, true
	}
	if !force && resource.Capacity < draft.MaxCapacity {
		conflict.Reason = models.ReasonCapacityExceeded
		return conflict, true
	}
	clashes := overlappingBookings(bookings[bookingKey(resource.ID, session.Date)], slot)
	if len(clashes) == 0 {
		return conflict, false
	}
	conflict.Reason = models.ReasonBookingConflict
	for _, b := range clashes {
		if b.ApprovalStatus != nil && *b.ApprovalStatus == models.ApprovalApproved {
			conflict.Reason = models.ReasonClassBooking
			break
		}
	}
	conflict.ConflictingClasses = classNames(clashes)
	return conflict, true
}

func ensureActiveKeys(draft *models.ClassDraft, pattern models.Pattern) error {
	for wd, value := range pattern {
		if !draft.Weekdays.Contains(wd) {
			return fieldError("pattern", fmt.Sprintf("%s is not an active weekday of the class", wd))
		}
		if strings.TrimSpace(value) == "" {
			return fieldError("pattern", fmt.Sprintf("selection for %s is empty", wd))
		}
	}
	return nil
}

func sessionSlot(session *models.Session, slots map[string]models.TimeSlotTemplate) (models.TimeSlotTemplate, bool) {
	if session.TimeSlotID == nil {
		return models.TimeSlotTemplate{}, false
	}
	slot, ok := slots[*session.TimeSlotID]
	return slot, ok
}

func overlappingBookings(bookings []models.ResourceBooking, slot models.TimeSlotTemplate) []models.ResourceBooking {
	var out []models.ResourceBooking
	for _, b := range bookings {
		if slot.OverlapsClock(b.StartTime, b.EndTime) {
			out = append(out, b)
		}
	}
	return out
}

func classNames(bookings []models.ResourceBooking) []string {
	seen := make(map[string]struct{}, len(bookings))
	names := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.ClassName]; ok {
			continue
		}
		seen[b.ClassName] = struct{}{}
		names = append(names, b.ClassName)
	}
	sort.Strings(names)
	return names
}

func bookingKey(resourceID string, date time.Time) string {
	return resourceID + "|" + date.Format(dto.DateLayout)
}

func keys(m map[string]*models.Resource) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
