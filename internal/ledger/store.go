// Package ledger owns the append-only activity and bonus records and keeps
// every participant's total in step with them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/observability"
	"example.com/fitchallenge/internal/period"
)

// Snapshot is a consistent copy of the ledger.
type Snapshot struct {
	Participants []domain.Participant
	Activities   []domain.Activity
	Bonuses      []domain.WeeklyBonus
	Categories   []domain.Category
}

// Statement is one participant's record set read under a single lock.
type Statement struct {
	Participant domain.Participant
	Activities  []domain.Activity
	Bonuses     []domain.WeeklyBonus
}

type bonusKey struct {
	participantID string
	weekStart     string
}

// Store is the in-memory ledger. Mutations for one participant are
// serialized; readers share mu and never observe a record without its
// recomputed total.
type Store struct {
	mu           sync.RWMutex
	participants map[string]domain.Participant
	order        []string
	activities   []domain.Activity
	byOwner      map[string][]int
	bonuses      []domain.WeeklyBonus
	bonusByOwner map[string][]int
	bonusWeeks   map[bonusKey]struct{}
	idempotency  map[string]int
	categories   map[string]domain.Category

	locksMu  sync.Mutex
	locks    map[string]*sync.Mutex
	catMu    sync.Mutex
	createMu sync.Mutex

	journal Journal
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithJournal sets the write-through journal.
func WithJournal(j Journal) Option {
	return func(s *Store) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewStore builds an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		journal: NopJournal{},
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.participants = make(map[string]domain.Participant)
	s.order = nil
	s.activities = nil
	s.byOwner = make(map[string][]int)
	s.bonuses = nil
	s.bonusByOwner = make(map[string][]int)
	s.bonusWeeks = make(map[bonusKey]struct{})
	s.idempotency = make(map[string]int)
	s.categories = make(map[string]domain.Category)
}

func (s *Store) lockFor(participantID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[participantID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[participantID] = l
	}
	return l
}

func idempotencyKey(participantID, key string) string {
	return participantID + "\x00" + key
}

func weekKey(participantID string, weekStart time.Time) bonusKey {
	return bonusKey{participantID: participantID, weekStart: period.FormatDay(weekStart)}
}

// foldLocked sums a participant's activity and bonus points. Callers hold mu.
func (s *Store) foldLocked(participantID string) int {
	total := 0
	for _, idx := range s.byOwner[participantID] {
		total += s.activities[idx].Points
	}
	for _, idx := range s.bonusByOwner[participantID] {
		total += s.bonuses[idx].Points
	}
	return total
}

// CreateParticipant registers a participant with a zero total. IDs are
// unique, and so are employee IDs ignoring case.
func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = s.newID()
	}
	if p.Status == "" {
		p.Status = domain.StatusActive
	}
	if p.Role == "" {
		p.Role = domain.RoleParticipant
	}
	now := s.now()
	p.TotalPoints = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	s.createMu.Lock()
	defer s.createMu.Unlock()
	lock := s.lockFor(p.ID)
	lock.Lock()
	defer lock.Unlock()

	if s.takenLocked(p) {
		return domain.Participant{}, domain.ErrParticipantExists
	}

	if err := s.journal.CreateParticipant(ctx, p); err != nil {
		return domain.Participant{}, fmt.Errorf("journal participant: %w", err)
	}

	s.mu.Lock()
	s.participants[p.ID] = p
	s.order = append(s.order, p.ID)
	s.mu.Unlock()
	return p, nil
}

// takenLocked reports whether p's ID or employee ID is already registered.
// Callers hold createMu.
func (s *Store) takenLocked(p domain.Participant) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.participants[p.ID]; ok {
		return true
	}
	for _, existing := range s.participants {
		if strings.EqualFold(existing.EmployeeID, p.EmployeeID) {
			return true
		}
	}
	return false
}

// UpdateParticipant applies fn to a copy of the participant and stores the
// result. Identity, creation time and the derived total cannot be changed.
func (s *Store) UpdateParticipant(ctx context.Context, id string, fn func(*domain.Participant) error) (domain.Participant, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.participants[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}

	updated := current
	if err := fn(&updated); err != nil {
		return domain.Participant{}, err
	}
	updated.ID = current.ID
	updated.EmployeeID = current.EmployeeID
	updated.CreatedAt = current.CreatedAt
	updated.TotalPoints = current.TotalPoints
	updated.UpdatedAt = s.now()

	if err := s.journal.UpdateParticipant(ctx, updated); err != nil {
		return domain.Participant{}, fmt.Errorf("journal participant: %w", err)
	}

	s.mu.Lock()
	s.participants[id] = updated
	s.mu.Unlock()
	return updated, nil
}

// Participant returns the current record including its total.
func (s *Store) Participant(id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

// Participants lists participants in registration order.
func (s *Store) Participants() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.participants[id])
	}
	return out
}

// Append stores an already scored activity verbatim and recomputes the
// owner's total. A repeated idempotency key returns the original record and
// true without mutating anything.
func (s *Store) Append(ctx context.Context, a domain.Activity) (domain.Activity, bool, error) {
	if a.Points < 0 {
		return domain.Activity{}, false, domain.Invalid("points", "must not be negative")
	}

	lock := s.lockFor(a.ParticipantID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	_, ok := s.participants[a.ParticipantID]
	var (
		existing domain.Activity
		replay   bool
	)
	if a.IdempotencyKey != "" {
		if idx, found := s.idempotency[idempotencyKey(a.ParticipantID, a.IdempotencyKey)]; found {
			existing, replay = s.activities[idx], true
		}
	}
	total := s.foldLocked(a.ParticipantID) + a.Points
	s.mu.RUnlock()

	if !ok {
		return domain.Activity{}, false, domain.ErrParticipantNotFound
	}
	if replay {
		return existing, true, nil
	}

	a.ID = s.newID()
	a.CreatedAt = s.now()
	a.Date = period.Day(a.Date)

	if err := s.journal.AppendActivity(ctx, a, total); err != nil {
		return domain.Activity{}, false, fmt.Errorf("journal activity: %w", err)
	}

	s.mu.Lock()
	s.activities = append(s.activities, a)
	idx := len(s.activities) - 1
	s.byOwner[a.ParticipantID] = append(s.byOwner[a.ParticipantID], idx)
	if a.IdempotencyKey != "" {
		s.idempotency[idempotencyKey(a.ParticipantID, a.IdempotencyKey)] = idx
	}
	_, err := s.recomputeLocked(a.ParticipantID)
	s.mu.Unlock()
	if err != nil {
		return domain.Activity{}, false, err
	}

	s.logger.Debug("activity appended",
		zap.String("participant_id", a.ParticipantID),
		zap.String("activity_id", a.ID),
		zap.Int("points", a.Points),
		zap.Int("total", total),
	)
	return a, false, nil
}

// recomputeLocked overwrites the cached total with the fold. Callers hold mu
// for writing.
func (s *Store) recomputeLocked(participantID string) (int, error) {
	p, ok := s.participants[participantID]
	if !ok {
		observability.RecordRecomputeFailure()
		return 0, fmt.Errorf("recompute %s: %w", participantID, domain.ErrParticipantNotFound)
	}
	p.TotalPoints = s.foldLocked(participantID)
	s.participants[participantID] = p
	return p.TotalPoints, nil
}

// Recompute folds the participant's records into TotalPoints. A cached value
// that drifted from the fold is corrected and journaled.
func (s *Store) Recompute(ctx context.Context, participantID string) (int, error) {
	lock := s.lockFor(participantID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	p, ok := s.participants[participantID]
	total := s.foldLocked(participantID)
	s.mu.RUnlock()
	if !ok {
		observability.RecordRecomputeFailure()
		return 0, fmt.Errorf("recompute %s: %w", participantID, domain.ErrParticipantNotFound)
	}
	if p.TotalPoints == total {
		return total, nil
	}

	s.logger.Warn("participant total drifted from ledger",
		zap.String("participant_id", participantID),
		zap.Int("cached", p.TotalPoints),
		zap.Int("folded", total),
	)
	p.TotalPoints = total
	if err := s.journal.UpdateParticipant(ctx, p); err != nil {
		observability.RecordRecomputeFailure()
		return 0, fmt.Errorf("journal recompute %s: %w", participantID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked(participantID)
}

// AwardBonuses appends weekly bonus records as one unit and recomputes each
// affected participant once. Records for a (participant, week start) pair
// that already has a bonus are skipped; when every record is skipped the
// store returns domain.ErrNothingToAward.
func (s *Store) AwardBonuses(ctx context.Context, records []domain.WeeklyBonus) ([]domain.WeeklyBonus, error) {
	if len(records) == 0 {
		return nil, domain.ErrNothingToAward
	}

	owners := make([]string, 0, len(records))
	seenOwner := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Points < 0 {
			return nil, domain.Invalid("points", "must not be negative")
		}
		if _, ok := seenOwner[r.ParticipantID]; !ok {
			seenOwner[r.ParticipantID] = struct{}{}
			owners = append(owners, r.ParticipantID)
		}
	}
	// Fixed lock order keeps concurrent batches from deadlocking.
	sort.Strings(owners)
	for _, id := range owners {
		l := s.lockFor(id)
		l.Lock()
		defer l.Unlock()
	}

	now := s.now()
	accepted := make([]domain.WeeklyBonus, 0, len(records))
	totals := make(map[string]int)

	s.mu.RLock()
	batch := make(map[bonusKey]struct{}, len(records))
	for _, r := range records {
		if _, ok := s.participants[r.ParticipantID]; !ok {
			s.mu.RUnlock()
			return nil, fmt.Errorf("award %s: %w", r.ParticipantID, domain.ErrParticipantNotFound)
		}
		r.WeekStart = period.WeekStart(r.WeekStart)
		r.WeekEnd = r.WeekStart.AddDate(0, 0, 6)
		key := weekKey(r.ParticipantID, r.WeekStart)
		if _, dup := s.bonusWeeks[key]; dup {
			continue
		}
		if _, dup := batch[key]; dup {
			continue
		}
		batch[key] = struct{}{}
		r.ID = s.newID()
		r.CreatedAt = now
		accepted = append(accepted, r)
		if _, ok := totals[r.ParticipantID]; !ok {
			totals[r.ParticipantID] = s.foldLocked(r.ParticipantID)
		}
		totals[r.ParticipantID] += r.Points
	}
	s.mu.RUnlock()

	if len(accepted) == 0 {
		return nil, domain.ErrNothingToAward
	}

	if err := s.journal.AppendBonuses(ctx, accepted, totals); err != nil {
		return nil, fmt.Errorf("journal bonuses: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range accepted {
		s.bonuses = append(s.bonuses, r)
		idx := len(s.bonuses) - 1
		s.bonusByOwner[r.ParticipantID] = append(s.bonusByOwner[r.ParticipantID], idx)
		s.bonusWeeks[weekKey(r.ParticipantID, r.WeekStart)] = struct{}{}
	}
	var errs []error
	for id := range totals {
		if _, err := s.recomputeLocked(id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return accepted, nil
}

// HasBonus reports whether the participant already holds a bonus for the
// week starting at weekStart.
func (s *Store) HasBonus(participantID string, weekStart time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bonusWeeks[weekKey(participantID, period.WeekStart(weekStart))]
	return ok
}

// Snapshot copies the whole ledger under one read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Participants: make([]domain.Participant, 0, len(s.order)),
		Activities:   append([]domain.Activity(nil), s.activities...),
		Bonuses:      append([]domain.WeeklyBonus(nil), s.bonuses...),
		Categories:   s.categoriesLocked(),
	}
	for _, id := range s.order {
		snap.Participants = append(snap.Participants, s.participants[id])
	}
	return snap
}

// Statement returns one participant's records under one read lock.
func (s *Store) Statement(participantID string) (Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[participantID]
	if !ok {
		return Statement{}, domain.ErrParticipantNotFound
	}
	st := Statement{
		Participant: p,
		Activities:  make([]domain.Activity, 0, len(s.byOwner[participantID])),
		Bonuses:     make([]domain.WeeklyBonus, 0, len(s.bonusByOwner[participantID])),
	}
	for _, idx := range s.byOwner[participantID] {
		st.Activities = append(st.Activities, s.activities[idx])
	}
	for _, idx := range s.bonusByOwner[participantID] {
		st.Bonuses = append(st.Bonuses, s.bonuses[idx])
	}
	return st, nil
}

// Restore replaces the ledger with snap and recomputes every total from the
// restored records. Duplicate bonus weeks in snap are rejected.
func (s *Store) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	for _, p := range snap.Participants {
		if _, dup := s.participants[p.ID]; dup {
			return fmt.Errorf("restore: duplicate participant %s", p.ID)
		}
		s.participants[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	for _, c := range snap.Categories {
		s.categories[c.ID] = c
	}

	activities := append([]domain.Activity(nil), snap.Activities...)
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].CreatedAt.Before(activities[j].CreatedAt)
	})
	for _, a := range activities {
		if _, ok := s.participants[a.ParticipantID]; !ok {
			return fmt.Errorf("restore activity %s: %w", a.ID, domain.ErrParticipantNotFound)
		}
		s.activities = append(s.activities, a)
		idx := len(s.activities) - 1
		s.byOwner[a.ParticipantID] = append(s.byOwner[a.ParticipantID], idx)
		if a.IdempotencyKey != "" {
			s.idempotency[idempotencyKey(a.ParticipantID, a.IdempotencyKey)] = idx
		}
	}
	for _, b := range snap.Bonuses {
		if _, ok := s.participants[b.ParticipantID]; !ok {
			return fmt.Errorf("restore bonus %s: %w", b.ID, domain.ErrParticipantNotFound)
		}
		key := weekKey(b.ParticipantID, b.WeekStart)
		if _, dup := s.bonusWeeks[key]; dup {
			return fmt.Errorf("restore: duplicate bonus for %s week %s", b.ParticipantID, key.weekStart)
		}
		s.bonuses = append(s.bonuses, b)
		s.bonusByOwner[b.ParticipantID] = append(s.bonusByOwner[b.ParticipantID], len(s.bonuses)-1)
		s.bonusWeeks[key] = struct{}{}
	}

	for _, id := range s.order {
		stored := s.participants[id].TotalPoints
		total, err := s.recomputeLocked(id)
		if err != nil {
			return err
		}
		if stored != total {
			s.logger.Warn("restored total corrected",
				zap.String("participant_id", id),
				zap.Int("stored", stored),
				zap.Int("folded", total),
			)
		}
	}
	return nil
}

// Load hydrates the store from loader.
func (s *Store) Load(ctx context.Context, loader Loader) error {
	snap, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if err := s.Restore(snap); err != nil {
		return err
	}
	s.logger.Info("ledger loaded",
		zap.Int("participants", len(snap.Participants)),
		zap.Int("activities", len(snap.Activities)),
		zap.Int("bonuses", len(snap.Bonuses)),
		zap.Int("categories", len(snap.Categories)),
	)
	return nil
}
