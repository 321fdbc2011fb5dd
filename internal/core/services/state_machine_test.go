package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"casedesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var allRoles = []domain.Role{
	domain.RoleFirmAdmin, domain.RoleCreditHead, domain.RoleDebtCollector, domain.RoleLegalHead, domain.RoleAdvocate,
}

var creditStatuses = []domain.Status{
	domain.StatusNew, domain.StatusAssigned, domain.StatusInProgress, domain.StatusFollowUpRequired,
	domain.StatusEscalatedToLegal, domain.StatusResolved, domain.StatusClosed,
}

var legalStatuses = []domain.Status{
	domain.StatusPendingAssignment, domain.StatusFiled, domain.StatusAssigned, domain.StatusUnderReview,
	domain.StatusCourtProceedings, domain.StatusSettlement, domain.StatusResolved, domain.StatusClosed,
}

func TestApplyTransition_AssigneeMovesNewCreditCase(t *testing.T) {
	h := newHarness(t)
	collector := h.addUser(t, "dc-1", tenantA, domain.RoleDebtCollector)
	c := h.seedCredit(t, domain.StatusNew, collector.ID)

	rec, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: collector, CaseID: c.ID, Kind: domain.KindCredit, ToStatus: domain.StatusAssigned,
	})
	require.NoError(t, err)

	got := rec.Header()
	assert.Equal(t, domain.StatusAssigned, got.Status)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt))
	assert.Equal(t, c.Version+1, got.Version)

	stored := h.credit.stored(t, c.ID)
	assert.Equal(t, domain.StatusAssigned, stored.Status)

	events := h.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCaseStatusChanged, events[0].Type)
	assert.Equal(t, tenantA, events[0].TenantID)
	assert.Equal(t, domain.StatusChangedPayload{
		FromStatus: domain.StatusNew, ToStatus: domain.StatusAssigned, ActorID: collector.ID,
	}, events[0].Payload)

	records := h.transitions.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ResultApplied, records[0].Result)
	assert.Equal(t, domain.StatusNew, records[0].FromStatus)
	assert.Equal(t, domain.RoleDebtCollector, records[0].ActorRole)
}

func TestApplyTransition_AssigneeCannotEscalate(t *testing.T) {
	h := newHarness(t)
	collector := h.addUser(t, "dc-1", tenantA, domain.RoleDebtCollector)
	c := h.seedCredit(t, domain.StatusInProgress, collector.ID)

	_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: collector, CaseID: c.ID, Kind: domain.KindCredit, ToStatus: domain.StatusEscalatedToLegal,
	})
	assert.True(t, domain.IsRejection(err, domain.ReasonUnauthorized), "got %v", err)
	assert.Equal(t, domain.StatusInProgress, h.credit.stored(t, c.ID).Status)
	assert.Empty(t, h.events.all())
	assert.Zero(t, h.legal.count())

	records := h.transitions.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ResultRejected, records[0].Result)
	assert.Equal(t, domain.ReasonUnauthorized, records[0].Reason)
}

func TestApplyTransition_ResolvedLegalCaseCannotGoBackToAssigned(t *testing.T) {
	h := newHarness(t)
	c := h.seedLegal(t, domain.StatusResolved, "")

	for _, role := range allRoles {
		actor := domain.Actor{ID: "u-" + string(role), Role: role, TenantID: tenantA}
		_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
			Actor: actor, CaseID: c.ID, Kind: domain.KindLegal, ToStatus: domain.StatusAssigned,
		})
		assert.True(t, domain.IsRejection(err, domain.ReasonInvalidTransition), "role %s: got %v", role, err)
	}
	assert.Empty(t, h.events.all())
}

func TestApplyTransition_IllegalEdgesRejectedForEveryRole(t *testing.T) {
	kinds := map[domain.CaseKind][]domain.Status{
		domain.KindCredit: creditStatuses,
		domain.KindLegal:  legalStatuses,
	}
	for kind, statuses := range kinds {
		for _, from := range statuses {
			for _, to := range statuses {
				if domain.IsAllowed(kind, from, to) {
					continue
				}
				h := newHarness(t)
				var id string
				if kind == domain.KindCredit {
					id = h.seedCredit(t, from, "").ID
				} else {
					id = h.seedLegal(t, from, "").ID
				}
				for _, role := range allRoles {
					actor := domain.Actor{ID: "u-1", Role: role, TenantID: tenantA}
					_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
						Actor: actor, CaseID: id, Kind: kind, ToStatus: to,
					})
					assert.True(t, domain.IsRejection(err, domain.ReasonInvalidTransition),
						"%s %s->%s as %s: got %v", kind, from, to, role, err)
				}
				assert.Empty(t, h.events.all())
			}
		}
	}
}

func TestApplyTransition_OutsidersNeverSucceed(t *testing.T) {
	kinds := map[domain.CaseKind][]domain.Status{
		domain.KindCredit: creditStatuses,
		domain.KindLegal:  legalStatuses,
	}
	for kind, statuses := range kinds {
		for _, from := range statuses {
			for _, to := range domain.AllowedNextStates(kind, from) {
				for _, role := range allRoles {
					if role == domain.RoleFirmAdmin || role == kind.HeadRole() {
						continue
					}
					h := newHarness(t)
					var id string
					if kind == domain.KindCredit {
						id = h.seedCredit(t, from, "someone-else").ID
					} else {
						id = h.seedLegal(t, from, "someone-else").ID
					}
					actor := domain.Actor{ID: "outsider", Role: role, TenantID: tenantA}
					_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
						Actor: actor, CaseID: id, Kind: kind, ToStatus: to,
					})
					assert.True(t, domain.IsRejection(err, domain.ReasonUnauthorized),
						"%s %s->%s as %s: got %v", kind, from, to, role, err)
				}
			}
		}
	}
}

func TestApplyTransition_HeadsAndAdminsMayMoveAnyCase(t *testing.T) {
	h := newHarness(t)
	c := h.seedLegal(t, domain.StatusUnderReview, "adv-9")

	head := domain.Actor{ID: "lh-1", Role: domain.RoleLegalHead, TenantID: tenantA}
	rec, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: head, CaseID: c.ID, Kind: domain.KindLegal, ToStatus: domain.StatusCourtProceedings,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCourtProceedings, rec.Header().Status)

	admin := domain.Actor{ID: "fa-1", Role: domain.RoleFirmAdmin, TenantID: tenantA}
	rec, err = h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: admin, CaseID: c.ID, Kind: domain.KindLegal, ToStatus: domain.StatusUnderReview,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, rec.Header().Status)

	// a credit head has no blanket rights over legal cases
	creditHead := domain.Actor{ID: "ch-1", Role: domain.RoleCreditHead, TenantID: tenantA}
	_, err = h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: creditHead, CaseID: c.ID, Kind: domain.KindLegal, ToStatus: domain.StatusCourtProceedings,
	})
	assert.True(t, domain.IsRejection(err, domain.ReasonUnauthorized))
}

func TestApplyTransition_CrossTenantDenied(t *testing.T) {
	h := newHarness(t)
	c := h.seedCredit(t, domain.StatusNew, "")

	intruder := domain.Actor{ID: "fa-b", Role: domain.RoleFirmAdmin, TenantID: tenantB}
	_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: intruder, CaseID: c.ID, Kind: domain.KindCredit, ToStatus: domain.StatusAssigned,
	})
	assert.True(t, domain.IsRejection(err, domain.ReasonCrossTenantDenied))
	assert.Equal(t, domain.StatusNew, h.credit.stored(t, c.ID).Status)
	assert.Empty(t, h.transitions.all(), "cross-tenant attempts leave no trace in the victim's audit trail")
}

func TestApplyTransition_Validation(t *testing.T) {
	h := newHarness(t)
	admin := domain.Actor{ID: "fa-1", Role: domain.RoleFirmAdmin, TenantID: tenantA}

	tests := []struct {
		name  string
		req   TransitionRequest
		field string
	}{
		{"missing case", TransitionRequest{Actor: admin, Kind: domain.KindCredit, ToStatus: domain.StatusAssigned}, "caseId"},
		{"bad kind", TransitionRequest{Actor: admin, CaseID: "x", Kind: "tax", ToStatus: domain.StatusAssigned}, "caseType"},
		{"missing status", TransitionRequest{Actor: admin, CaseID: "x", Kind: domain.KindCredit}, "toStatus"},
		{"bad role", TransitionRequest{Actor: domain.Actor{ID: "u", Role: "janitor", TenantID: tenantA}, CaseID: "x", Kind: domain.KindCredit, ToStatus: domain.StatusAssigned}, "actorRole"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.machine.ApplyTransition(context.Background(), tt.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: admin, CaseID: "missing", Kind: domain.KindCredit, ToStatus: domain.StatusAssigned,
	})
	assert.ErrorIs(t, err, domain.ErrCaseNotFound)
}

func TestApplyTransition_ConcurrentWritersOneWins(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := newHarness(t)
		c := h.seedCredit(t, domain.StatusInProgress, "")
		head := domain.Actor{ID: "ch-1", Role: domain.RoleCreditHead, TenantID: tenantA}
		targets := []domain.Status{domain.StatusFollowUpRequired, domain.StatusResolved}

		// both writers read the case before either writes
		var loaded sync.WaitGroup
		loaded.Add(len(targets))
		h.credit.afterGet = func() {
			loaded.Done()
			loaded.Wait()
		}

		results := make([]error, len(targets))
		var g errgroup.Group
		for idx, to := range targets {
			idx, to := idx, to
			g.Go(func() error {
				_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
					Actor: head, CaseID: c.ID, Kind: domain.KindCredit, ToStatus: to,
				})
				results[idx] = err
				return nil
			})
		}
		require.NoError(t, g.Wait())
		h.credit.afterGet = nil

		applied, stale := 0, 0
		for _, err := range results {
			switch {
			case err == nil:
				applied++
			case domain.IsRejection(err, domain.ReasonStaleState):
				stale++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, applied)
		assert.Equal(t, 1, stale)
		assert.Len(t, h.events.all(), 1)

		stored := h.credit.stored(t, c.ID)
		assert.Equal(t, int64(2), stored.Version)
	}
}

func TestApplyTransition_StaleReadLoses(t *testing.T) {
	h := newHarness(t)
	c := h.seedCredit(t, domain.StatusInProgress, "")
	head := domain.Actor{ID: "ch-1", Role: domain.RoleCreditHead, TenantID: tenantA}

	// another actor moves the case between our read and our write
	h.credit.beforeSwap = func(next *domain.CreditCase) error {
		h.credit.beforeSwap = nil
		stored := h.credit.cases[next.ID]
		stored.Status = domain.StatusFollowUpRequired
		stored.Version++
		return nil
	}

	_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: head, CaseID: c.ID, Kind: domain.KindCredit, ToStatus: domain.StatusResolved,
	})
	assert.True(t, domain.IsRejection(err, domain.ReasonStaleState), "got %v", err)
	assert.Equal(t, domain.StatusFollowUpRequired, h.credit.stored(t, c.ID).Status)
	assert.Empty(t, h.events.all())

	records := h.transitions.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ReasonStaleState, records[0].Reason)
}

func TestApplyTransition_StoreErrorIsNotARejection(t *testing.T) {
	h := newHarness(t)
	c := h.seedCredit(t, domain.StatusInProgress, "")
	boom := errors.New("connection reset")
	h.credit.beforeSwap = func(*domain.CreditCase) error { return boom }

	_, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: domain.Actor{ID: "fa", Role: domain.RoleFirmAdmin, TenantID: tenantA}, CaseID: c.ID,
		Kind: domain.KindCredit, ToStatus: domain.StatusResolved,
	})
	assert.ErrorIs(t, err, boom)
	_, isRejection := domain.ReasonOf(err)
	assert.False(t, isRejection)
}

func TestApplyTransition_EscalationDelegatesToCoordinator(t *testing.T) {
	h := newHarness(t)
	c := h.seedCredit(t, domain.StatusInProgress, "")
	head := domain.Actor{ID: "ch-1", Role: domain.RoleCreditHead, TenantID: tenantA}

	rec, err := h.machine.ApplyTransition(context.Background(), TransitionRequest{
		Actor: head, CaseID: c.ID, Kind: domain.KindCredit, ToStatus: domain.StatusEscalatedToLegal,
	})
	require.NoError(t, err)

	credit := rec.(*domain.CreditCase)
	assert.Equal(t, domain.StatusEscalatedToLegal, credit.Status)
	require.True(t, credit.IsAlreadyEscalated())
	assert.Equal(t, 1, h.legal.count())
	assert.Equal(t, []domain.EventType{
		domain.EventCaseStatusChanged, domain.EventCaseCreated, domain.EventCaseEscalated,
	}, h.events.types())
}
