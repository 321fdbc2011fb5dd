package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/logger"

	"github.com/google/uuid"
)

// TransitionRequest asks to move one case to a new status
type TransitionRequest struct {
	Actor    domain.Actor
	CaseID   string
	Kind     domain.CaseKind
	ToStatus domain.Status
}

// Validate rejects malformed requests before the store is touched
func (r TransitionRequest) Validate() error {
	switch {
	case r.Actor.ID == "" || r.Actor.TenantID == "":
		return domain.Invalid("actor", "actor id and tenant are required")
	case !r.Actor.Role.Valid():
		return domain.Invalid("actorRole", fmt.Sprintf("unknown role %q", r.Actor.Role))
	case r.CaseID == "":
		return domain.Invalid("caseId", "is required")
	case !r.Kind.Valid():
		return domain.Invalid("caseType", fmt.Sprintf("unknown case type %q", r.Kind))
	case r.ToStatus == "":
		return domain.Invalid("toStatus", "is required")
	}
	return nil
}

// StateMachine validates and applies status transitions
type StateMachine struct {
	credit      creditStore
	legal       legalStore
	auth        Authorizer
	audit       auditTrail
	escalations *EscalationCoordinator
	events      EventBroadcaster
	clock       func() time.Time
	log         *logger.Logger
}

// NewStateMachine creates a new state machine
func NewStateMachine(
	creditRepo repositories.CreditCaseRepository,
	legalRepo repositories.LegalCaseRepository,
	transitionRepo repositories.TransitionRepository,
	escalations *EscalationCoordinator,
	events EventBroadcaster,
	log *logger.Logger,
) *StateMachine {
	log = log.With("component", "StateMachine")
	return &StateMachine{
		credit:      creditStore{repo: creditRepo},
		legal:       legalStore{repo: legalRepo},
		audit:       auditTrail{repo: transitionRepo, log: log},
		escalations: escalations,
		events:      events,
		clock:       systemClock,
		log:         log,
	}
}

func (m *StateMachine) store(kind domain.CaseKind) caseStore {
	if kind == domain.KindLegal {
		return m.legal
	}
	return m.credit
}

// ApplyTransition moves a case to req.ToStatus and returns the stored case.
// Business-rule refusals come back as *domain.Rejection. Entering
// escalated_to_legal on a credit case runs the escalation coordinator.
func (m *StateMachine) ApplyTransition(ctx context.Context, req TransitionRequest) (domain.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec, err := m.store(req.Kind).load(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	c := rec.Header()
	if c.TenantID != req.Actor.TenantID {
		m.log.Debug("cross-tenant transition denied", "actor_id", req.Actor.ID, "case_id", req.CaseID)
		return nil, domain.Reject(domain.ReasonCrossTenantDenied, "case is outside the actor's firm")
	}

	from := c.Status
	if !domain.IsAllowed(req.Kind, from, req.ToStatus) {
		rej := domain.Reject(domain.ReasonInvalidTransition, "%s case cannot move from %s to %s", req.Kind, from, req.ToStatus)
		m.reject(ctx, req.Actor, c, req.ToStatus, rej)
		return nil, rej
	}
	if err := m.auth.CanTransition(req.Actor, rec, req.ToStatus); err != nil {
		m.reject(ctx, req.Actor, c, req.ToStatus, err)
		return nil, err
	}

	if req.Kind == domain.KindCredit && req.ToStatus == domain.StatusEscalatedToLegal {
		out, err := m.escalations.escalateLoaded(ctx, req.Actor, rec.(*domain.CreditCase), EscalateInput{})
		if out == nil {
			return nil, err
		}
		return out.CreditCase, err
	}

	next := cloneRecord(rec)
	nc := next.Header()
	nc.Status = req.ToStatus
	nc.Touch(m.clock())

	if err := m.store(req.Kind).swap(ctx, next, domain.RevisionOf(c)); err != nil {
		if errors.Is(err, domain.ErrStaleWrite) {
			rej := domain.Reject(domain.ReasonStaleState, "case %s changed since it was read; reload and retry", c.ID)
			m.reject(ctx, req.Actor, c, req.ToStatus, rej)
			return nil, rej
		}
		return nil, fmt.Errorf("write transition: %w", err)
	}

	m.audit.record(ctx, req.Actor, nc, from, req.ToStatus, domain.ResultApplied, "", nc.UpdatedAt)
	m.events.Publish(statusChangedEvent(nc, from, req.Actor.ID))
	m.log.Info("transition applied", "case_id", nc.ID, "kind", nc.Kind, "from", from, "to", nc.Status, "actor_id", req.Actor.ID)
	return next, nil
}

func (m *StateMachine) reject(ctx context.Context, actor domain.Actor, c *domain.Case, to domain.Status, err error) {
	reason, _ := domain.ReasonOf(err)
	m.log.Debug("transition rejected", "case_id", c.ID, "from", c.Status, "to", to, "actor_id", actor.ID, "reason", reason)
	m.audit.record(ctx, actor, c, c.Status, to, domain.ResultRejected, reason, m.clock())
}

func statusChangedEvent(c *domain.Case, from domain.Status, actorID string) domain.CaseEvent {
	return domain.CaseEvent{
		TenantID: c.TenantID,
		Type:     domain.EventCaseStatusChanged,
		CaseID:   c.ID,
		CaseKind: c.Kind,
		Version:  c.Version,
		Payload: domain.StatusChangedPayload{
			FromStatus: from,
			ToStatus:   c.Status,
			ActorID:    actorID,
		},
		OccurredAt: c.UpdatedAt,
	}
}

// auditTrail persists transition records. Failures are logged and swallowed.
type auditTrail struct {
	repo repositories.TransitionRepository
	log  *logger.Logger
}

func (a auditTrail) record(ctx context.Context, actor domain.Actor, c *domain.Case, from, to domain.Status, result domain.TransitionResult, reason domain.RejectionReason, at time.Time) {
	if a.repo == nil {
		return
	}
	rec := &domain.TransitionRecord{
		ID:         uuid.NewString(),
		TenantID:   c.TenantID,
		CaseID:     c.ID,
		CaseKind:   c.Kind,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Timestamp:  at,
		Result:     result,
		Reason:     reason,
	}
	if err := a.repo.Create(context.WithoutCancel(ctx), rec); err != nil {
		a.log.Error("failed to store transition record", "case_id", c.ID, "error", err)
	}
}
