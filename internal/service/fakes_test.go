package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/internal/repository"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

const testBranch = "br-1"

var (
	owner    = models.Actor{UserID: "user-1", Role: models.RoleAcademicAffairs}
	stranger = models.Actor{UserID: "user-2", Role: models.RoleAcademicAffairs}
	head     = models.Actor{UserID: "head-1", Role: models.RoleCenterHead}
)

// world is an in-memory branch backing every repository port used by the scheduling services. Bookings of
// other classes are derived from their sessions, so conflicts come from real data.
type world struct {
	mu        sync.Mutex
	seq       int
	drafts    map[string]*models.ClassDraft
	courses   map[string]*models.Course
	sessions  map[string][]models.Session
	slots     []models.TimeSlotTemplate
	resources []models.Resource
	teachers  []models.Teacher
	blocks    []models.TeacherUnavailability
	audits    []*models.AuditLog

	unavailabilityCalls int
}

func newWorld() *world {
	return &world{
		drafts:   map[string]*models.ClassDraft{},
		sessions: map[string][]models.Session{},
		courses: map[string]*models.Course{
			"course-en":    {ID: "course-en", Name: "English B1", HoursPerSession: 1.5, TotalSessions: 8},
			"course-short": {ID: "course-short", Name: "Workshop", HoursPerSession: 1.5, TotalSessions: 2},
			"course-empty": {ID: "course-empty", Name: "Placeholder", HoursPerSession: 1.5, TotalSessions: 0},
		},
		slots: []models.TimeSlotTemplate{
			{ID: "slot-am", BranchID: testBranch, Name: "Morning", StartTime: "09:00", EndTime: "10:30"},
			{ID: "slot-pm", BranchID: testBranch, Name: "Afternoon", StartTime: "13:00", EndTime: "14:30"},
			{ID: "slot-long", BranchID: testBranch, Name: "Long Morning", StartTime: "09:00", EndTime: "11:00"},
		},
		resources: []models.Resource{
			{ID: "R1", BranchID: testBranch, Type: models.ResourceRoom, Name: "Room 1", Capacity: 20},
			{ID: "R2", BranchID: testBranch, Type: models.ResourceRoom, Name: "Room 2", Capacity: 20},
			{ID: "R3", BranchID: testBranch, Type: models.ResourceRoom, Name: "Room 3", Capacity: 25},
			{ID: "R-small", BranchID: testBranch, Type: models.ResourceRoom, Name: "Booth", Capacity: 5},
			{ID: "R-far", BranchID: "br-2", Type: models.ResourceRoom, Name: "Remote Hall", Capacity: 80},
		},
		teachers: []models.Teacher{
			{ID: "T1", BranchID: testBranch, Name: "Ana", Active: true},
			{ID: "T2", BranchID: testBranch, Name: "Budi", Active: true},
			{ID: "T3", BranchID: testBranch, Name: "Citra", Active: true},
			{ID: "T-off", BranchID: testBranch, Name: "Dewi", Active: false},
		},
	}
}

func date(raw string) time.Time {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		panic(err)
	}
	return t
}

// addDraft seeds a draft with generated sessions, bypassing the services.
func (w *world) addDraft(id, name, courseID string, start time.Time, weekdays ...models.Weekday) *models.ClassDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	set := models.NewWeekdaySet(weekdays...)
	sessions := GenerateSessions(start, set, w.courses[courseID].TotalSessions)
	draft := &models.ClassDraft{
		ID:             id,
		Code:           "C-" + id,
		Name:           name,
		BranchID:       testBranch,
		CourseID:       courseID,
		Modality:       models.ModalityOffline,
		StartDate:      start,
		PlannedEndDate: sessions[len(sessions)-1].Date,
		Weekdays:       set,
		MaxCapacity:    15,
		Status:         models.ClassStatusDraft,
		CreatedBy:      owner.UserID,
	}
	w.drafts[id] = draft
	w.replaceLocked(id, sessions)
	return draft
}

func (w *world) replaceLocked(classID string, sessions []models.Session) {
	out := make([]models.Session, len(sessions))
	for i, session := range sessions {
		session.ID = fmt.Sprintf("%s-s%d", classID, session.Sequence)
		session.ClassID = classID
		out[i] = session
	}
	w.sessions[classID] = out
}

// assignAll sets the dimension on every session of the class.
func (w *world) assignAll(classID string, dim models.Dimension, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.sessions[classID] {
		setDimension(&w.sessions[classID][i], dim, value)
	}
}

// assignOn sets the dimension on the sessions of the class held on the given dates.
func (w *world) assignOn(classID string, dim models.Dimension, value string, dates ...time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.sessions[classID] {
		for _, d := range dates {
			if w.sessions[classID][i].Date.Equal(d) {
				setDimension(&w.sessions[classID][i], dim, value)
			}
		}
	}
}

func setDimension(session *models.Session, dim models.Dimension, value string) {
	v := value
	switch dim {
	case models.DimensionTimeSlot:
		session.TimeSlotID = &v
	case models.DimensionResource:
		session.ResourceID = &v
	case models.DimensionTeacher:
		session.TeacherID = &v
	}
}

func (w *world) setApproval(classID string, status models.ClassStatus, approval *models.ApprovalStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drafts[classID].Status = status
	w.drafts[classID].ApprovalStatus = approval
}

func (w *world) sessionsOf(classID string) []models.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Session(nil), w.sessions[classID]...)
}

func (w *world) sessionOn(classID string, d time.Time) models.Session {
	for _, session := range w.sessionsOf(classID) {
		if session.Date.Equal(d) {
			return session
		}
	}
	panic("no session on " + d.Format("2006-01-02"))
}

func (w *world) auditActions() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.audits))
	for _, entry := range w.audits {
		out = append(out, entry.Action)
	}
	return out
}

func (w *world) slotIndexLocked() map[string]models.TimeSlotTemplate {
	index := make(map[string]models.TimeSlotTemplate, len(w.slots))
	for _, slot := range w.slots {
		index[slot.ID] = slot
	}
	return index
}

func (w *world) draftRepo() *fakeDraftRepo { return &fakeDraftRepo{w: w} }
func (w *world) sessionRepo() *fakeSessionRepo { return &fakeSessionRepo{w: w} }
func (w *world) slotRepo() *fakeSlotRepo { return &fakeSlotRepo{w: w} }
func (w *world) resourceRepo() *fakeResourceRepo { return &fakeResourceRepo{w: w} }
func (w *world) teacherRepo() *fakeTeacherRepo { return &fakeTeacherRepo{w: w} }
func (w *world) auditRepo() *fakeAuditRepo { return &fakeAuditRepo{w: w} }

type fakeDraftRepo struct {
	w         *world
	deleteErr error
}

func (r *fakeDraftRepo) Create(ctx context.Context, exec sqlx.ExtContext, draft *models.ClassDraft) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.seq++
	draft.ID = fmt.Sprintf("class-%d", r.w.seq)
	draft.CreatedAt = time.Now().UTC()
	draft.UpdatedAt = draft.CreatedAt
	clone := *draft
	r.w.drafts[draft.ID] = &clone
	return nil
}

func (r *fakeDraftRepo) FindByID(ctx context.Context, id string) (*models.ClassDraft, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	draft, ok := r.w.drafts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *draft
	return &clone, nil
}

func (r *fakeDraftRepo) UpdateBasicInfo(ctx context.Context, exec sqlx.ExtContext, draft *models.ClassDraft) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.drafts[draft.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *draft
	r.w.drafts[draft.ID] = &clone
	return nil
}

func (r *fakeDraftRepo) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.drafts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.w.drafts, id)
	delete(r.w.sessions, id)
	return nil
}

func (r *fakeDraftRepo) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	course, ok := r.w.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *course
	return &clone, nil
}

func (r *fakeDraftRepo) UpdateLifecycle(ctx context.Context, exec sqlx.ExtContext, id string, params repository.UpdateLifecycleParams) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	draft, ok := r.w.drafts[id]
	if !ok {
		return sql.ErrNoRows
	}
	draft.Status = params.Status
	draft.ApprovalStatus = params.ApprovalStatus
	draft.RejectionReason = params.RejectionReason
	if params.SubmittedAt != nil {
		draft.SubmittedAt = params.SubmittedAt
	}
	return nil
}

type fakeSessionRepo struct {
	w            *world
	setResource  func(sessionID, resourceID string) error
	bookingCalls int
}

func (r *fakeSessionRepo) ListByClass(ctx context.Context, classID string) ([]models.Session, error) {
	return r.w.sessionsOf(classID), nil
}

func (r *fakeSessionRepo) ReplaceForClass(ctx context.Context, exec sqlx.ExtContext, classID string, sessions []models.Session) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.replaceLocked(classID, sessions)
	return nil
}

func (r *fakeSessionRepo) FindByID(ctx context.Context, classID, sessionID string) (*models.Session, error) {
	for _, session := range r.w.sessionsOf(classID) {
		if session.ID == sessionID {
			s := session
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeSessionRepo) SetTimeSlotForWeekday(ctx context.Context, exec sqlx.ExtContext, classID string, weekday models.Weekday, timeSlotID string, from, to time.Time) (int64, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var n int64
	for i := range r.w.sessions[classID] {
		session := &r.w.sessions[classID][i]
		if session.DayOfWeek != weekday || session.Date.Before(from) || session.Date.After(to) {
			continue
		}
		id := timeSlotID
		session.TimeSlotID = &id
		n++
	}
	return n, nil
}

func (r *fakeSessionRepo) SetResource(ctx context.Context, exec sqlx.ExtContext, sessionID, resourceID string, override bool) error {
	if r.setResource != nil {
		if err := r.setResource(sessionID, resourceID); err != nil {
			return err
		}
	}
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for classID := range r.w.sessions {
		for i := range r.w.sessions[classID] {
			session := &r.w.sessions[classID][i]
			if session.ID == sessionID {
				id := resourceID
				session.ResourceID = &id
				session.ResourceOverride = override
				return nil
			}
		}
	}
	return sql.ErrNoRows
}

func (r *fakeSessionRepo) SetTeacher(ctx context.Context, exec sqlx.ExtContext, sessionIDs []string, teacherID *string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	wanted := make(map[string]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = struct{}{}
	}
	for classID := range r.w.sessions {
		for i := range r.w.sessions[classID] {
			session := &r.w.sessions[classID][i]
			if _, ok := wanted[session.ID]; !ok {
				continue
			}
			if teacherID == nil {
				session.TeacherID = nil
				continue
			}
			id := *teacherID
			session.TeacherID = &id
		}
	}
	return nil
}

func (r *fakeSessionRepo) ListResourceBookings(ctx context.Context, excludeClassID string, resourceIDs []string, from, to time.Time) ([]models.ResourceBooking, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.bookingCalls++
	wanted := make(map[string]struct{}, len(resourceIDs))
	for _, id := range resourceIDs {
		wanted[id] = struct{}{}
	}
	slots := r.w.slotIndexLocked()
	var out []models.ResourceBooking
	for _, classID := range sortedClassIDs(r.w.sessions) {
		if classID == excludeClassID {
			continue
		}
		draft := r.w.drafts[classID]
		for _, session := range r.w.sessions[classID] {
			if session.ResourceID == nil || session.TimeSlotID == nil {
				continue
			}
			if _, ok := wanted[*session.ResourceID]; !ok {
				continue
			}
			if session.Date.Before(from) || session.Date.After(to) {
				continue
			}
			slot := slots[*session.TimeSlotID]
			out = append(out, models.ResourceBooking{
				SessionID:      session.ID,
				ClassID:        classID,
				ClassName:      draft.Name,
				ApprovalStatus: draft.ApprovalStatus,
				ResourceID:     *session.ResourceID,
				TimeSlotID:     slot.ID,
				StartTime:      slot.StartTime,
				EndTime:        slot.EndTime,
				Date:           session.Date,
			})
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) ListTeacherBookings(ctx context.Context, excludeClassID string, teacherIDs []string, from, to time.Time) ([]models.TeacherBooking, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	wanted := make(map[string]struct{}, len(teacherIDs))
	for _, id := range teacherIDs {
		wanted[id] = struct{}{}
	}
	slots := r.w.slotIndexLocked()
	var out []models.TeacherBooking
	for _, classID := range sortedClassIDs(r.w.sessions) {
		if classID == excludeClassID {
			continue
		}
		for _, session := range r.w.sessions[classID] {
			if session.TeacherID == nil || session.TimeSlotID == nil {
				continue
			}
			if _, ok := wanted[*session.TeacherID]; !ok {
				continue
			}
			if session.Date.Before(from) || session.Date.After(to) {
				continue
			}
			slot := slots[*session.TimeSlotID]
			out = append(out, models.TeacherBooking{
				SessionID: session.ID,
				ClassID:   classID,
				ClassName: r.w.drafts[classID].Name,
				TeacherID: *session.TeacherID,
				Date:      session.Date,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
			})
		}
	}
	return out, nil
}

func sortedClassIDs(m map[string][]models.Session) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type fakeSlotRepo struct {
	w     *world
	calls int
}

func (r *fakeSlotRepo) ListByBranch(ctx context.Context, branchID string) ([]models.TimeSlotTemplate, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.calls++
	var out []models.TimeSlotTemplate
	for _, slot := range r.w.slots {
		if slot.BranchID == branchID {
			out = append(out, slot)
		}
	}
	return out, nil
}

type fakeResourceRepo struct {
	w *world
}

func (r *fakeResourceRepo) ListByBranch(ctx context.Context, branchID string) ([]models.Resource, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []models.Resource
	for _, res := range r.w.resources {
		if res.BranchID == branchID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeResourceRepo) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, res := range r.w.resources {
		if res.ID == id {
			clone := res
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeTeacherRepo struct {
	w *world
}

func (r *fakeTeacherRepo) ListActiveByBranch(ctx context.Context, branchID string) ([]models.Teacher, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []models.Teacher
	for _, t := range r.w.teachers {
		if t.Active && t.BranchID == branchID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, t := range r.w.teachers {
		if t.ID == id {
			clone := t
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeTeacherRepo) ListUnavailability(ctx context.Context, teacherIDs []string) ([]models.TeacherUnavailability, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.unavailabilityCalls++
	wanted := make(map[string]struct{}, len(teacherIDs))
	for _, id := range teacherIDs {
		wanted[id] = struct{}{}
	}
	var out []models.TeacherUnavailability
	for _, block := range r.w.blocks {
		if _, ok := wanted[block.TeacherID]; ok {
			out = append(out, block)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	w *world
}

func (r *fakeAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.audits = append(r.w.audits, log)
	return nil
}

// services bundles the pipeline built over one world.
type services struct {
	w          *world
	locker     *DraftLocker
	sessions   *fakeSessionRepo
	slots      *fakeSlotRepo
	drafts     *DraftService
	patterns   *PatternService
	resolution *ConflictResolutionService
	teachers   *TeacherMatchingService
	readiness  *ReadinessService
}

func newServices(w *world) *services {
	locker := NewDraftLocker()
	draftRepo := w.draftRepo()
	sessionRepo := w.sessionRepo()
	slotRepo := w.slotRepo()
	audit := w.auditRepo()

	patterns := NewPatternService(draftRepo, sessionRepo, slotRepo, w.resourceRepo(), nil, audit, locker, nil, nil, nil, nil, PatternConfig{})
	resolution := NewConflictResolutionService(patterns, nil, nil, 0)
	return &services{
		w:          w,
		locker:     locker,
		sessions:   sessionRepo,
		slots:      slotRepo,
		drafts:     NewDraftService(draftRepo, sessionRepo, nil, audit, locker, resolution, nil, nil),
		patterns:   patterns,
		resolution: resolution,
		teachers:   NewTeacherMatchingService(draftRepo, sessionRepo, w.teacherRepo(), slotRepo, nil, audit, locker, nil, 0),
		readiness:  NewReadinessService(draftRepo, sessionRepo, resolution, nil, audit, locker, nil, nil, nil),
	}
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	raw, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	c.items = map[string][]byte{}
	c.mu.Unlock()
	return nil
}
