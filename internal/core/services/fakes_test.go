package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	tenantA = "tenant-a"
	tenantB = "tenant-b"
)

// memCreditRepo is an in-memory CreditCaseRepository with real
// compare-and-set semantics and hooks for fault injection
type memCreditRepo struct {
	mu    sync.Mutex
	cases map[string]*domain.CreditCase
	// beforeSwap runs before every CompareAndSwap; a non-nil error fails it
	beforeSwap func(c *domain.CreditCase) error
	// afterGet runs after every GetByID, outside the lock
	afterGet func()
}

func newMemCreditRepo() *memCreditRepo {
	return &memCreditRepo{cases: make(map[string]*domain.CreditCase)}
}

func (r *memCreditRepo) Create(_ context.Context, c *domain.CreditCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.cases {
		if existing.ID == c.ID || (existing.TenantID == c.TenantID && existing.CaseNumber == c.CaseNumber) {
			return domain.ErrDuplicateEntry
		}
	}
	r.cases[c.ID] = cloneCredit(c)
	return nil
}

func (r *memCreditRepo) GetByID(_ context.Context, id string) (*domain.CreditCase, error) {
	r.mu.Lock()
	c, ok := r.cases[id]
	if ok {
		c = cloneCredit(c)
	}
	hook := r.afterGet
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, domain.ErrCaseNotFound
	}
	return c, nil
}

func (r *memCreditRepo) List(_ context.Context, tenantID string, filter repositories.CaseFilter, offset, limit int) ([]*domain.CreditCase, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.CreditCase
	for _, c := range r.cases {
		if c.TenantID != tenantID || (filter.Status != "" && c.Status != filter.Status) {
			continue
		}
		out = append(out, cloneCredit(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseNumber < out[j].CaseNumber })
	total := int64(len(out))
	if offset >= len(out) {
		return []*domain.CreditCase{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *memCreditRepo) CompareAndSwap(_ context.Context, c *domain.CreditCase, expected domain.Revision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beforeSwap != nil {
		if err := r.beforeSwap(c); err != nil {
			return err
		}
	}
	stored, ok := r.cases[c.ID]
	if !ok || stored.TenantID != c.TenantID || stored.Version != expected.Version || stored.Status != expected.Status {
		return domain.ErrStaleWrite
	}
	next := cloneCredit(c)
	next.Version = expected.Version + 1
	r.cases[c.ID] = next
	c.Version = next.Version
	return nil
}

func (r *memCreditRepo) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok || c.TenantID != tenantID {
		return domain.ErrCaseNotFound
	}
	delete(r.cases, id)
	return nil
}

func (r *memCreditRepo) ListUnlinkedEscalations(_ context.Context, before time.Time, limit int) ([]*domain.CreditCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.CreditCase
	for _, c := range r.cases {
		if !c.IsEscalationUnlinked() {
			continue
		}
		if c.Escalation != nil && !c.Escalation.EscalationDate.Before(before) {
			continue
		}
		out = append(out, cloneCredit(c))
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memCreditRepo) stored(t *testing.T, id string) *domain.CreditCase {
	t.Helper()
	c, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

// memLegalRepo is an in-memory LegalCaseRepository enforcing a unique
// escalation key
type memLegalRepo struct {
	mu    sync.Mutex
	cases map[string]*domain.LegalCase
	// failCreates makes the next n Create calls fail with createErr
	failCreates int
	createErr   error
	creates     int
	// onFindMiss runs once, outside the lock, after a key lookup misses
	onFindMiss func()
}

func newMemLegalRepo() *memLegalRepo {
	return &memLegalRepo{cases: make(map[string]*domain.LegalCase)}
}

func (r *memLegalRepo) Create(_ context.Context, c *domain.LegalCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreates > 0 {
		r.failCreates--
		return r.createErr
	}
	for _, existing := range r.cases {
		if existing.ID == c.ID || (existing.TenantID == c.TenantID && existing.CaseNumber == c.CaseNumber) {
			return domain.ErrDuplicateEntry
		}
		if existing.EscalatedFrom != nil && c.EscalatedFrom != nil && existing.EscalatedFrom.Key() == c.EscalatedFrom.Key() {
			return domain.ErrDuplicateEntry
		}
	}
	r.creates++
	r.cases[c.ID] = cloneLegal(c)
	return nil
}

func (r *memLegalRepo) GetByID(_ context.Context, id string) (*domain.LegalCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, domain.ErrCaseNotFound
	}
	return cloneLegal(c), nil
}

func (r *memLegalRepo) FindByEscalationKey(_ context.Context, key string) (*domain.LegalCase, error) {
	r.mu.Lock()
	for _, c := range r.cases {
		if c.EscalatedFrom != nil && c.EscalatedFrom.Key() == key {
			found := cloneLegal(c)
			r.mu.Unlock()
			return found, nil
		}
	}
	hook := r.onFindMiss
	r.onFindMiss = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil, domain.ErrCaseNotFound
}

func (r *memLegalRepo) List(_ context.Context, tenantID string, _ repositories.CaseFilter, offset, limit int) ([]*domain.LegalCase, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.LegalCase
	for _, c := range r.cases {
		if c.TenantID == tenantID {
			out = append(out, cloneLegal(c))
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return []*domain.LegalCase{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *memLegalRepo) CompareAndSwap(_ context.Context, c *domain.LegalCase, expected domain.Revision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[c.ID]
	if !ok || stored.TenantID != c.TenantID || stored.Version != expected.Version || stored.Status != expected.Status {
		return domain.ErrStaleWrite
	}
	next := cloneLegal(c)
	next.Version = expected.Version + 1
	r.cases[c.ID] = next
	c.Version = next.Version
	return nil
}

func (r *memLegalRepo) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok || c.TenantID != tenantID {
		return domain.ErrCaseNotFound
	}
	delete(r.cases, id)
	return nil
}

func (r *memLegalRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cases)
}

type memTransitionRepo struct {
	mu      sync.Mutex
	records []*domain.TransitionRecord
}

func (r *memTransitionRepo) Create(_ context.Context, rec *domain.TransitionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *memTransitionRepo) ListByCase(_ context.Context, tenantID, caseID string, limit int) ([]*domain.TransitionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TransitionRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.records[i]
		if rec.TenantID == tenantID && rec.CaseID == caseID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memTransitionRepo) all() []*domain.TransitionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.TransitionRecord{}, r.records...)
}

type memCommentRepo struct {
	mu       sync.Mutex
	comments []*domain.Comment
}

func (r *memCommentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.comments = append(r.comments, &cp)
	return nil
}

func (r *memCommentRepo) ListByCase(_ context.Context, tenantID, caseID string, limit int) ([]*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Comment
	for i := len(r.comments) - 1; i >= 0 && len(out) < limit; i-- {
		c := r.comments[i]
		if c.TenantID == tenantID && c.CaseID == caseID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.ID == u.ID || (existing.TenantID == u.TenantID && existing.Email == u.Email) {
			return domain.ErrDuplicateEntry
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, tenantID, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) ListByTenant(_ context.Context, tenantID string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.TenantID == tenantID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUserRepo) CountByRole(_ context.Context, tenantID string, role domain.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.TenantID == tenantID && u.Role == role {
			n++
		}
	}
	return n, nil
}

// eventRecorder captures published events
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.CaseEvent
}

func (r *eventRecorder) Publish(event domain.CaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []domain.CaseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CaseEvent{}, r.events...)
}

func (r *eventRecorder) types() []domain.EventType {
	var out []domain.EventType
	for _, e := range r.all() {
		out = append(out, e.Type)
	}
	return out
}

// fakeClock hands out strictly increasing millisecond timestamps
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness wires the core services over in-memory repositories
type harness struct {
	credit      *memCreditRepo
	legal       *memLegalRepo
	transitions *memTransitionRepo
	comments    *memCommentRepo
	users       *memUserRepo
	events      *eventRecorder
	clock       *fakeClock

	machine     *StateMachine
	escalations *EscalationCoordinator
	cases       *CaseService
	reconciler  *ReconcileService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		credit:      newMemCreditRepo(),
		legal:       newMemLegalRepo(),
		transitions: &memTransitionRepo{},
		comments:    &memCommentRepo{},
		users:       newMemUserRepo(),
		events:      &eventRecorder{},
		clock:       newFakeClock(),
	}
	log := logger.Nop()

	h.escalations = NewEscalationCoordinator(h.credit, h.legal, h.users, h.transitions, h.events, EscalationConfig{
		RollbackAfter: time.Hour,
		NewBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		},
	}, log)
	h.escalations.clock = h.clock.Now

	h.machine = NewStateMachine(h.credit, h.legal, h.transitions, h.escalations, h.events, log)
	h.machine.clock = h.clock.Now

	h.cases = NewCaseService(h.credit, h.legal, h.users, h.comments, h.transitions, h.events, log)
	h.cases.clock = h.clock.Now

	h.reconciler = NewReconcileService(h.credit, h.escalations, ReconcileConfig{Schedule: "@every 1m", MinAge: 2 * time.Minute}, log)
	h.reconciler.clock = h.clock.Now
	return h
}

func (h *harness) addUser(t *testing.T, id, tenantID string, role domain.Role) domain.Actor {
	t.Helper()
	require.NoError(t, h.users.Create(context.Background(), &domain.User{
		ID: id, TenantID: tenantID, Name: id, Email: id + "@firm.test", Role: role, IsActive: true,
	}))
	return domain.Actor{ID: id, Role: role, TenantID: tenantID}
}

// seedCredit stores a credit case directly in the given status
func (h *harness) seedCredit(t *testing.T, status domain.Status, assignee string) *domain.CreditCase {
	t.Helper()
	now := h.clock.Now()
	c := &domain.CreditCase{
		Case: domain.Case{
			ID:         "cc-" + now.Format("150405.000"),
			TenantID:   tenantA,
			CaseNumber: "CC-" + now.Format("150405.000"),
			Kind:       domain.KindCredit,
			Title:      "Unpaid invoices",
			Status:     status,
			Priority:   domain.PriorityHigh,
			AssignedTo: assignee,
			Documents:  []string{"doc-1", "doc-2"},
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		DebtAmount: decimal.NewFromInt(12000),
		DebtorName: "Acme Ltd",
	}
	require.NoError(t, h.credit.Create(context.Background(), c))
	return c
}

// seedLegal stores a legal case directly in the given status
func (h *harness) seedLegal(t *testing.T, status domain.Status, assignee string) *domain.LegalCase {
	t.Helper()
	now := h.clock.Now()
	c := &domain.LegalCase{
		Case: domain.Case{
			ID:         "lc-" + now.Format("150405.000"),
			TenantID:   tenantA,
			CaseNumber: "LC-" + now.Format("150405.000"),
			Kind:       domain.KindLegal,
			Title:      "Recovery suit",
			Status:     status,
			Priority:   domain.PriorityMedium,
			AssignedTo: assignee,
			Documents:  []string{},
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		CaseType:  "debt_recovery",
		FilingFee: domain.FilingFee{Amount: decimal.NewFromInt(800)},
	}
	require.NoError(t, h.legal.Create(context.Background(), c))
	return c
}
