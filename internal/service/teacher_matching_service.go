package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

const defaultAttemptTTL = 30 * time.Minute

type teacherDirectory interface {
	ListActiveByBranch(ctx context.Context, branchID string) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListUnavailability(ctx context.Context, teacherIDs []string) ([]models.TeacherUnavailability, error)
}

type teacherSessionStore interface {
	ListByClass(ctx context.Context, classID string) ([]models.Session, error)
	SetTeacher(ctx context.Context, exec sqlx.ExtContext, sessionIDs []string, teacherID *string) error
	ListTeacherBookings(ctx context.Context, excludeClassID string, teacherIDs []string, from, to time.Time) ([]models.TeacherBooking, error)
}

type rankingAttempt struct {
	classID   string
	createdAt time.Time
	teachers  map[string]string
	details   map[string]*models.TeacherAvailability
}

// TeacherMatchingService ranks teachers against a class's sessions and commits assignments.
type TeacherMatchingService struct {
	drafts   draftReader
	sessions teacherSessionStore
	teachers teacherDirectory
	slots    timeSlotCatalog
	tx       txProvider
	audit    auditRecorder
	locker   *DraftLocker
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]*rankingAttempt
}

// NewTeacherMatchingService wires teacher matching dependencies. Ranking attempts expire after ttl.
func NewTeacherMatchingService(drafts draftReader, sessions teacherSessionStore, teachers teacherDirectory, slots timeSlotCatalog, tx txProvider, audit auditRecorder, locker *DraftLocker, logger *zap.Logger, ttl time.Duration) *TeacherMatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewDraftLocker()
	}
	if ttl <= 0 {
		ttl = defaultAttemptTTL
	}
	return &TeacherMatchingService{
		drafts:   drafts,
		sessions: sessions,
		teachers: teachers,
		slots:    slots,
		tx:       tx,
		audit:    audit,
		locker:   locker,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
		attempts: make(map[string]*rankingAttempt),
	}
}

// EvaluateTeacher computes the availability of one teacher over the class's session set.
func EvaluateTeacher(teacher models.Teacher, sessions []models.Session, slots map[string]models.TimeSlotTemplate, bookings []models.TeacherBooking, blocks []models.TeacherUnavailability) models.TeacherAvailability {
	out := models.TeacherAvailability{
		TeacherID: teacher.ID,
		Name:      teacher.Name,
		Conflicts: []models.TeacherConflict{},
	}
	byDate := make(map[string][]models.TeacherBooking)
	for _, b := range bookings {
		key := b.Date.Format(dto.DateLayout)
		byDate[key] = append(byDate[key], b)
	}
	breakdown := make(map[models.Weekday]*models.WeekdayAvailability)

	for _, session := range sessions {
		out.TotalSessions++
		day, ok := breakdown[session.DayOfWeek]
		if !ok {
			day = &models.WeekdayAvailability{DayOfWeek: session.DayOfWeek}
			breakdown[session.DayOfWeek] = day
		}
		day.TotalSessions++

		conflict := teacherConflictFor(session, slots, byDate[session.Date.Format(dto.DateLayout)], blocks)
		if conflict != nil {
			out.Conflicts = append(out.Conflicts, *conflict)
			continue
		}
		out.AvailableSessions++
		day.AvailableSessions++
	}

	out.ConflictCount = len(out.Conflicts)
	if out.TotalSessions > 0 {
		out.AvailabilityRate = roundTo2(float64(out.AvailableSessions) / float64(out.TotalSessions) * 100)
	}
	out.IsRecommended = out.TotalSessions > 0 && out.AvailableSessions == out.TotalSessions
	for _, day := range breakdown {
		out.WeekdayBreakdown = append(out.WeekdayBreakdown, *day)
	}
	sort.Slice(out.WeekdayBreakdown, func(i, j int) bool {
		return out.WeekdayBreakdown[i].DayOfWeek < out.WeekdayBreakdown[j].DayOfWeek
	})
	return out
}

func teacherConflictFor(session models.Session, slots map[string]models.TimeSlotTemplate, bookings []models.TeacherBooking, blocks []models.TeacherUnavailability) *models.TeacherConflict {
	conflict := &models.TeacherConflict{SessionID: session.ID, Date: session.Date, DayOfWeek: session.DayOfWeek}
	slot, ok := sessionSlot(&session, slots)
	if !ok {
		conflict.Reason = models.TeacherConflictNoTimeSlot
		return conflict
	}
	for _, b := range bookings {
		if slot.OverlapsClock(b.StartTime, b.EndTime) {
			conflict.Reason = models.TeacherConflictDoubleBooked
			conflict.ConflictingClass = b.ClassName
			return conflict
		}
	}
	for _, block := range blocks {
		if block.DayOfWeek == session.DayOfWeek && slot.OverlapsClock(block.StartTime, block.EndTime) {
			conflict.Reason = models.TeacherConflictUnavailable
			return conflict
		}
	}
	return nil
}

// RankCandidates evaluates every active teacher of the branch and partitions them into recommended and
// conflicted. Conflict details are left out; LoadConflictDetail fetches them per attempt.
func (s *TeacherMatchingService) RankCandidates(ctx context.Context, draftID string) (*models.TeacherRanking, error) {
	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	teachers, err := s.teachers.ListActiveByBranch(ctx, draft.BranchID)
	if err != nil {
		return nil, internalError(err, "failed to list teachers")
	}
	evaluations, err := s.evaluate(ctx, draft, teachers)
	if err != nil {
		return nil, err
	}

	attempt := &rankingAttempt{
		classID:   draft.ID,
		createdAt: s.now(),
		teachers:  make(map[string]string, len(teachers)),
		details:   make(map[string]*models.TeacherAvailability),
	}
	ranking := &models.TeacherRanking{
		AttemptID:   uuid.NewString(),
		Recommended: []models.TeacherAvailability{},
		Conflicted:  []models.TeacherAvailability{},
	}
	for _, teacher := range teachers {
		attempt.teachers[teacher.ID] = teacher.Name
		summary := evaluations[teacher.ID]
		summary.Conflicts = nil
		summary.WeekdayBreakdown = nil
		if summary.IsRecommended {
			ranking.Recommended = append(ranking.Recommended, summary)
		} else {
			ranking.Conflicted = append(ranking.Conflicted, summary)
		}
	}

	s.mu.Lock()
	s.purgeLocked()
	s.attempts[ranking.AttemptID] = attempt
	s.mu.Unlock()
	return ranking, nil
}

// LoadConflictDetail returns the per-session conflicts and weekday breakdown of one candidate. The result is
// fetched once per attempt and served from memory afterwards.
func (s *TeacherMatchingService) LoadConflictDetail(ctx context.Context, draftID, attemptID, teacherID string) (*models.TeacherAvailability, error) {
	s.mu.Lock()
	s.purgeLocked()
	attempt, ok := s.attempts[attemptID]
	if ok {
		if cached, hit := attempt.details[teacherID]; hit {
			s.mu.Unlock()
			detail := *cached
			return &detail, nil
		}
	}
	s.mu.Unlock()
	if !ok || attempt.classID != draftID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "ranking attempt not found or expired")
	}
	if _, known := attempt.teachers[teacherID]; !known {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher is not a candidate in this attempt")
	}

	draft, err := loadDraft(ctx, s.drafts, draftID)
	if err != nil {
		return nil, err
	}
	teacher := models.Teacher{ID: teacherID, Name: attempt.teachers[teacherID]}
	evaluations, err := s.evaluate(ctx, draft, []models.Teacher{teacher})
	if err != nil {
		return nil, err
	}
	detail := evaluations[teacherID]

	s.mu.Lock()
	attempt.details[teacherID] = &detail
	s.mu.Unlock()
	out := detail
	return &out, nil
}

// AssignTeacher commits the teacher to every session they are free for and clears the teacher elsewhere.
func (s *TeacherMatchingService) AssignTeacher(ctx context.Context, actor models.Actor, draftID, teacherID string) (*models.TeacherAssignment, error) {
	return s.assign(ctx, actor, draftID, teacherID, false)
}

// AssignSubstitute covers sessions still without a teacher using a second teacher where they are free.
func (s *TeacherMatchingService) AssignSubstitute(ctx context.Context, actor models.Actor, draftID, teacherID string) (*models.TeacherAssignment, error) {
	return s.assign(ctx, actor, draftID, teacherID, true)
}

func (s *TeacherMatchingService) assign(ctx context.Context, actor models.Actor, draftID, teacherID string, substitute bool) (*models.TeacherAssignment, error) {
	if strings.TrimSpace(teacherID) == "" {
		return nil, fieldError("teacherId", "is required")
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
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, internalError(err, "failed to load teacher")
	}
	if !teacher.Active || teacher.BranchID != draft.BranchID {
		return nil, fieldError("teacherId", "is not an active teacher of the class branch")
	}

	sessions, err := loadSessions(ctx, s.sessions, draft.ID)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.evaluateSessions(ctx, draft, sessions, []models.Teacher{*teacher})
	if err != nil {
		return nil, err
	}
	blocked := make(map[string]struct{})
	for _, c := range evaluations[teacher.ID].Conflicts {
		blocked[c.SessionID] = struct{}{}
	}

	var assign, clear []string
	uncovered := 0
	for _, session := range sessions {
		_, unavailable := blocked[session.ID]
		if substitute {
			if session.TeacherID != nil {
				continue
			}
			if unavailable {
				uncovered++
				continue
			}
			assign = append(assign, session.ID)
			continue
		}
		if unavailable {
			uncovered++
			if session.TeacherID != nil {
				clear = append(clear, session.ID)
			}
			continue
		}
		assign = append(assign, session.ID)
	}

	err = withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		if len(assign) > 0 {
			if err := s.sessions.SetTeacher(ctx, exec, assign, &teacher.ID); err != nil {
				return internalError(err, "failed to assign teacher")
			}
		}
		if len(clear) > 0 {
			if err := s.sessions.SetTeacher(ctx, exec, clear, nil); err != nil {
				return internalError(err, "failed to clear replaced teacher")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &models.TeacherAssignment{
		TeacherID:        teacher.ID,
		AssignedSessions: len(assign),
		UncoveredCount:   uncovered,
		NeedsSubstitute:  uncovered > 0,
	}
	action := models.AuditActionTeacherAssign
	if substitute {
		action = models.AuditActionSubstituteAssign
	}
	emitAudit(ctx, s.audit, s.logger, actor, action, draft.ID, out)
	return out, nil
}

func (s *TeacherMatchingService) evaluate(ctx context.Context, draft *models.ClassDraft, teachers []models.Teacher) (map[string]models.TeacherAvailability, error) {
	sessions, err := loadSessions(ctx, s.sessions, draft.ID)
	if err != nil {
		return nil, err
	}
	return s.evaluateSessions(ctx, draft, sessions, teachers)
}

func (s *TeacherMatchingService) evaluateSessions(ctx context.Context, draft *models.ClassDraft, sessions []models.Session, teachers []models.Teacher) (map[string]models.TeacherAvailability, error) {
	out := make(map[string]models.TeacherAvailability, len(teachers))
	if len(teachers) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(teachers))
	for _, t := range teachers {
		ids = append(ids, t.ID)
	}

	slotList, err := s.slots.ListByBranch(ctx, draft.BranchID)
	if err != nil {
		return nil, internalError(err, "failed to list time slots")
	}
	slots := make(map[string]models.TimeSlotTemplate, len(slotList))
	for _, slot := range slotList {
		slots[slot.ID] = slot
	}
	bookings, err := s.sessions.ListTeacherBookings(ctx, draft.ID, ids, draft.StartDate, draft.PlannedEndDate)
	if err != nil {
		return nil, internalError(err, "failed to load teacher bookings")
	}
	blocks, err := s.teachers.ListUnavailability(ctx, ids)
	if err != nil {
		return nil, internalError(err, "failed to load teacher unavailability")
	}

	bookingsBy := make(map[string][]models.TeacherBooking)
	for _, b := range bookings {
		bookingsBy[b.TeacherID] = append(bookingsBy[b.TeacherID], b)
	}
	blocksBy := make(map[string][]models.TeacherUnavailability)
	for _, b := range blocks {
		blocksBy[b.TeacherID] = append(blocksBy[b.TeacherID], b)
	}
	for _, t := range teachers {
		out[t.ID] = EvaluateTeacher(t, sessions, slots, bookingsBy[t.ID], blocksBy[t.ID])
	}
	return out, nil
}

func (s *TeacherMatchingService) purgeLocked() {
	now := s.now()
	for id, attempt := range s.attempts {
		if now.Sub(attempt.createdAt) > s.ttl {
			delete(s.attempts, id)
		}
	}
}
