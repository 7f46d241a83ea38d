package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
	"github.com/noah-isme/acadops-api/pkg/logger"
)

const defaultResolutionTTL = 2 * time.Hour

type resourceApplier interface {
	ApplyResourcePattern(ctx context.Context, actor models.Actor, draftID string, pattern models.Pattern, forceOverride bool) (*dto.ApplyResourcePatternResponse, error)
	ListResourceSuggestions(ctx context.Context, draftID, sessionID string) ([]models.ResourceOption, error)
	lockDraft(draftID string) (func(), error)
	assignSessionResourceHeld(ctx context.Context, actor models.Actor, draftID, sessionID, resourceID string) (*models.Session, error)
}

// resolution is the working state of one class's conflict resolution cycle. op is held by assignments for
// their whole run and by suggestion loads while they touch entries, so a load never resets an in-flight entry.
type resolution struct {
	op sync.Mutex

	mu        sync.Mutex
	classID   string
	pattern   models.Pattern
	round     int
	done      bool
	entries   []*models.TrackedConflict
	fetchSeq  map[models.Weekday]uint64
	updatedAt time.Time
}

// ConflictResolutionService drives resource conflicts returned by a pattern fan-out to an empty pending set.
type ConflictResolutionService struct {
	applier resourceApplier
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	store map[string]*resolution
}

// NewConflictResolutionService builds the engine with an in-memory store. Idle cycles expire after ttl.
func NewConflictResolutionService(applier resourceApplier, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *ConflictResolutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultResolutionTTL
	}
	return &ConflictResolutionService{
		applier: applier,
		metrics: metrics,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
		store:   make(map[string]*resolution),
	}
}

// Start applies the resource pattern and opens a resolution cycle when conflicts come back.
func (s *ConflictResolutionService) Start(ctx context.Context, actor models.Actor, draftID string, pattern models.Pattern, forceOverride bool) (*dto.ApplyResourcePatternResponse, error) {
	resp, err := s.applier.ApplyResourcePattern(ctx, actor, draftID, pattern, forceOverride)
	if err != nil {
		return nil, err
	}
	if len(resp.Conflicts) == 0 {
		s.Discard(draftID)
		return resp, nil
	}

	res := &resolution{
		classID:  draftID,
		pattern:  copyPattern(pattern),
		round:    1,
		fetchSeq: make(map[models.Weekday]uint64),
	}
	res.reset(resp.Conflicts, s.now())
	s.mu.Lock()
	s.store[draftID] = res
	s.mu.Unlock()

	snapshot := res.snapshot()
	resp.Resolution = &snapshot
	logger.FromContext(ctx, s.logger).Info("conflict resolution started",
		zap.String("class_id", draftID),
		zap.Int("conflicts", len(resp.Conflicts)),
	)
	return resp, nil
}

// State returns the current resolution snapshot of a class.
func (s *ConflictResolutionService) State(ctx context.Context, draftID string) (*models.ResolutionSnapshot, error) {
	res, err := s.lookup(draftID)
	if err != nil {
		return nil, err
	}
	snapshot := res.snapshot()
	return &snapshot, nil
}

// Pending reports the number of unresolved conflicts, zero when no cycle is open.
func (s *ConflictResolutionService) Pending(draftID string) int {
	res, err := s.lookup(draftID)
	if err != nil {
		return 0
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	return res.pendingLocked()
}

// LoadSuggestions fetches alternatives for one representative conflict of the weekday and shares them with
// every conflict of that weekday still lacking alternatives. A response overtaken by a newer fetch for the
// same weekday is dropped.
func (s *ConflictResolutionService) LoadSuggestions(ctx context.Context, draftID string, weekday models.Weekday) (*models.ResolutionSnapshot, error) {
	if !weekday.Valid() {
		return nil, fieldError("dayOfWeek", "must be between 1 and 7")
	}
	res, err := s.lookup(draftID)
	if err != nil {
		return nil, err
	}

	res.op.Lock()
	res.mu.Lock()
	var representative string
	for _, entry := range res.entries {
		if entry.DayOfWeek == weekday && entry.State != models.ConflictSuccess && len(entry.Alternatives) == 0 {
			representative = entry.SessionID
			break
		}
	}
	if representative == "" {
		snapshot := res.snapshotLocked()
		res.mu.Unlock()
		res.op.Unlock()
		return &snapshot, nil
	}
	res.fetchSeq[weekday]++
	seq := res.fetchSeq[weekday]
	res.eachLacking(weekday, func(entry *models.TrackedConflict) {
		entry.State = models.ConflictLoading
		entry.Message = ""
	})
	res.mu.Unlock()
	res.op.Unlock()

	options, fetchErr := s.applier.ListResourceSuggestions(ctx, draftID, representative)

	res.op.Lock()
	defer res.op.Unlock()
	res.mu.Lock()
	defer res.mu.Unlock()
	if res.fetchSeq[weekday] != seq {
		snapshot := res.snapshotLocked()
		return &snapshot, nil
	}
	res.eachLacking(weekday, func(entry *models.TrackedConflict) {
		if fetchErr != nil {
			entry.State = models.ConflictError
			entry.Message = appErrors.FromError(fetchErr).Message
			return
		}
		entry.State = models.ConflictIdle
		entry.Alternatives = append([]models.ResourceOption(nil), options...)
	})
	res.updatedAt = s.now()
	snapshot := res.snapshotLocked()
	if fetchErr != nil && !recoverable(fetchErr) {
		return &snapshot, fetchErr
	}
	return &snapshot, nil
}

// Resolve assigns resourceID to one conflicting session. Contention and validation failures keep the
// conflict pending with the returned message; lifecycle and permission failures are returned.
func (s *ConflictResolutionService) Resolve(ctx context.Context, actor models.Actor, draftID, sessionID, resourceID string) (*models.ResolutionSnapshot, error) {
	res, err := s.lookup(draftID)
	if err != nil {
		return nil, err
	}
	res.op.Lock()
	defer res.op.Unlock()

	res.mu.Lock()
	entry := res.find(sessionID)
	res.mu.Unlock()
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found for session")
	}
	release, err := s.applier.lockDraft(draftID)
	if err != nil {
		snapshot := res.snapshot()
		return &snapshot, err
	}
	defer release()

	err = s.resolveOne(ctx, actor, res, entry, resourceID, "single")
	snapshot := res.snapshot()
	if err != nil && !recoverable(err) {
		return &snapshot, err
	}
	return &snapshot, nil
}

// ResolveAll applies resourceID to every conflict pending at call time, one after another, holding the draft
// lock for the whole batch. Failures are counted and never stop the batch.
func (s *ConflictResolutionService) ResolveAll(ctx context.Context, actor models.Actor, draftID, resourceID string) (*models.BulkResolution, error) {
	if resourceID == "" {
		return nil, fieldError("resourceId", "is required")
	}
	res, err := s.lookup(draftID)
	if err != nil {
		return nil, err
	}
	res.op.Lock()
	defer res.op.Unlock()
	release, err := s.applier.lockDraft(draftID)
	if err != nil {
		return nil, err
	}
	defer release()

	res.mu.Lock()
	pending := make([]*models.TrackedConflict, 0, len(res.entries))
	for _, entry := range res.entries {
		if entry.State != models.ConflictSuccess {
			pending = append(pending, entry)
		}
	}
	res.mu.Unlock()

	out := &models.BulkResolution{}
	for _, entry := range pending {
		if err := s.resolveOne(ctx, actor, res, entry, resourceID, "bulk"); err != nil {
			out.FailCount++
			continue
		}
		out.SuccessCount++
	}
	res.mu.Lock()
	out.Pending = res.pendingLocked()
	res.mu.Unlock()

	logger.FromContext(ctx, s.logger).Info("bulk conflict resolution finished",
		zap.String("class_id", draftID),
		zap.Int("success", out.SuccessCount),
		zap.Int("failed", out.FailCount),
	)
	return out, nil
}

// Reapply re-submits the original pattern with forceOverride once nothing is pending. New conflicts open
// the next round; none closes the cycle.
func (s *ConflictResolutionService) Reapply(ctx context.Context, actor models.Actor, draftID string) (*dto.ReapplyResponse, error) {
	res, err := s.lookup(draftID)
	if err != nil {
		return nil, err
	}
	res.op.Lock()
	defer res.op.Unlock()

	res.mu.Lock()
	pending := res.pendingLocked()
	pattern := copyPattern(res.pattern)
	res.mu.Unlock()
	if pending > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "resolve every pending conflict before re-applying the pattern")
	}

	resp, err := s.applier.ApplyResourcePattern(ctx, actor, draftID, pattern, true)
	if err != nil {
		s.metrics.RecordResolution("reapply", false)
		return nil, err
	}
	s.metrics.RecordResolution("reapply", true)

	res.mu.Lock()
	if len(resp.Conflicts) > 0 {
		res.round++
		res.reset(resp.Conflicts, s.now())
	} else {
		res.done = true
		res.updatedAt = s.now()
	}
	snapshot := res.snapshotLocked()
	res.mu.Unlock()

	if snapshot.Done {
		s.Discard(draftID)
	}
	return &dto.ReapplyResponse{Conflicts: resp.Conflicts, Resolution: snapshot}, nil
}

// Discard drops any open cycle for the class.
func (s *ConflictResolutionService) Discard(draftID string) {
	s.mu.Lock()
	delete(s.store, draftID)
	s.mu.Unlock()
}

func (s *ConflictResolutionService) resolveOne(ctx context.Context, actor models.Actor, res *resolution, entry *models.TrackedConflict, resourceID, mode string) error {
	res.mu.Lock()
	if entry.State == models.ConflictSuccess {
		res.mu.Unlock()
		return nil
	}
	entry.State = models.ConflictLoading
	entry.Message = ""
	res.mu.Unlock()

	_, err := s.applier.assignSessionResourceHeld(ctx, actor, res.classID, entry.SessionID, resourceID)

	res.mu.Lock()
	defer res.mu.Unlock()
	res.updatedAt = s.now()
	if err != nil {
		entry.State = models.ConflictError
		entry.Message = appErrors.FromError(err).Message
		s.metrics.RecordResolution(mode, false)
		return err
	}
	entry.State = models.ConflictSuccess
	entry.ResourceID = resourceID
	s.metrics.RecordResolution(mode, true)
	return nil
}

func (s *ConflictResolutionService) lookup(draftID string) (*resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.store[draftID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no conflict resolution in progress for this class")
	}
	res.mu.Lock()
	expired := s.now().Sub(res.updatedAt) > s.ttl
	if !expired {
		res.updatedAt = s.now()
	}
	res.mu.Unlock()
	if expired {
		delete(s.store, draftID)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no conflict resolution in progress for this class")
	}
	return res, nil
}

// recoverable reports errors that leave a conflict pending instead of aborting the operation.
func recoverable(err error) bool {
	return appErrors.HasCode(err, appErrors.ErrConflict.Code) || appErrors.HasCode(err, appErrors.ErrValidation.Code)
}

func (r *resolution) reset(conflicts []models.ResourceConflict, now time.Time) {
	r.entries = make([]*models.TrackedConflict, 0, len(conflicts))
	for _, c := range conflicts {
		entry := &models.TrackedConflict{ResourceConflict: c, State: models.ConflictIdle}
		if entry.Alternatives == nil {
			entry.Alternatives = []models.ResourceOption{}
		}
		r.entries = append(r.entries, entry)
	}
	r.fetchSeq = make(map[models.Weekday]uint64)
	r.done = false
	r.updatedAt = now
}

func (r *resolution) find(sessionID string) *models.TrackedConflict {
	for _, entry := range r.entries {
		if entry.SessionID == sessionID {
			return entry
		}
	}
	return nil
}

func (r *resolution) eachLacking(weekday models.Weekday, fn func(*models.TrackedConflict)) {
	for _, entry := range r.entries {
		if entry.DayOfWeek == weekday && entry.State != models.ConflictSuccess && len(entry.Alternatives) == 0 {
			fn(entry)
		}
	}
}

func (r *resolution) pendingLocked() int {
	n := 0
	for _, entry := range r.entries {
		if entry.State != models.ConflictSuccess {
			n++
		}
	}
	return n
}

func (r *resolution) snapshot() models.ResolutionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *resolution) snapshotLocked() models.ResolutionSnapshot {
	groups := make(map[models.Weekday]*models.ConflictGroup)
	out := models.ResolutionSnapshot{
		ClassID:   r.classID,
		Pattern:   copyPattern(r.pattern),
		Round:     r.round,
		Done:      r.done,
		Groups:    []models.ConflictGroup{},
		UpdatedAt: r.updatedAt,
	}
	for _, entry := range r.entries {
		group, ok := groups[entry.DayOfWeek]
		if !ok {
			group = &models.ConflictGroup{DayOfWeek: entry.DayOfWeek}
			groups[entry.DayOfWeek] = group
		}
		group.Total++
		if entry.State == models.ConflictSuccess {
			group.Resolved++
			out.Resolved++
		} else {
			out.Pending++
		}
		group.Conflicts = append(group.Conflicts, *entry)
	}
	for _, group := range groups {
		group.Remaining = group.Total - group.Resolved
		out.Groups = append(out.Groups, *group)
	}
	sort.Slice(out.Groups, func(i, j int) bool { return out.Groups[i].DayOfWeek < out.Groups[j].DayOfWeek })
	return out
}

func copyPattern(p models.Pattern) models.Pattern {
	out := make(models.Pattern, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
