package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrEscalationSuperseded means the intent being resumed is no longer the
// one stored on the credit case (rolled back or replaced meanwhile)
var ErrEscalationSuperseded = errors.New("escalation intent superseded")

// EscalateInput asks to promote a credit case into a legal case
type EscalateInput struct {
	Actor        domain.Actor
	CreditCaseID string
	FeeAmount    decimal.Decimal
	// FilingFee overrides the debt amount as the legal case's filing fee
	FilingFee  *decimal.Decimal
	AdvocateID string
}

// EscalationOutcome reports the state of both aggregates after an escalation
type EscalationOutcome struct {
	CreditCase *domain.CreditCase
	LegalCase  *domain.LegalCase
	Resumed    bool
	RolledBack bool
}

// EscalationConfig tunes retry and recovery of the escalation sequence
type EscalationConfig struct {
	// RollbackAfter is how old an unlinked intent must be before a resume
	// that still fails puts the credit case back where it was
	RollbackAfter time.Duration
	// RetryTimeout bounds the default retry policy of each legal-side step
	RetryTimeout time.Duration
	// NewBackOff returns a fresh retry policy for the legal-side steps
	NewBackOff func() backoff.BackOff
}

const escalationMaxElapsed = 5 * time.Second

func escalationBackOff(maxElapsed time.Duration) func() backoff.BackOff {
	if maxElapsed <= 0 {
		maxElapsed = escalationMaxElapsed
	}
	return func() backoff.BackOff {
		// BackOff implementations are stateful; always return a fresh instance.
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 50 * time.Millisecond
		bo.MaxElapsedTime = maxElapsed
		return bo
	}
}

// EscalationCoordinator turns one credit case transition into a linked legal
// case. There is no transaction across the two tables: the credit case first
// stores a durable intent, and every later step is idempotent on the
// escalation key so it can be resumed.
type EscalationCoordinator struct {
	creditRepo repositories.CreditCaseRepository
	legalRepo  repositories.LegalCaseRepository
	userRepo   repositories.UserRepository
	auth       Authorizer
	audit      auditTrail
	events     EventBroadcaster
	cfg        EscalationConfig
	clock      func() time.Time
	log        *logger.Logger
}

// NewEscalationCoordinator creates a new escalation coordinator
func NewEscalationCoordinator(
	creditRepo repositories.CreditCaseRepository,
	legalRepo repositories.LegalCaseRepository,
	userRepo repositories.UserRepository,
	transitionRepo repositories.TransitionRepository,
	events EventBroadcaster,
	cfg EscalationConfig,
	log *logger.Logger,
) *EscalationCoordinator {
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = escalationBackOff(cfg.RetryTimeout)
	}
	log = log.With("component", "EscalationCoordinator")
	return &EscalationCoordinator{
		creditRepo: creditRepo,
		legalRepo:  legalRepo,
		userRepo:   userRepo,
		audit:      auditTrail{repo: transitionRepo, log: log},
		events:     events,
		cfg:        cfg,
		clock:      systemClock,
		log:        log,
	}
}

// Escalate promotes a credit case. A case already linked is rejected with
// AlreadyEscalated; a case stuck between intent and link is resumed instead
// of escalated again. Once the intent is stored the caller's cancellation is
// ignored. If the legal side cannot be completed the outcome is returned
// together with a *domain.PartialEscalationFailure.
func (e *EscalationCoordinator) Escalate(ctx context.Context, in EscalateInput) (*EscalationOutcome, error) {
	if in.CreditCaseID == "" {
		return nil, domain.Invalid("creditCaseId", "is required")
	}
	if in.FeeAmount.IsNegative() {
		return nil, domain.Invalid("feeAmount", "must be zero or positive")
	}
	if in.FilingFee != nil && in.FilingFee.IsNegative() {
		return nil, domain.Invalid("filingFee", "must be zero or positive")
	}

	credit, err := e.creditRepo.GetByID(ctx, in.CreditCaseID)
	if err != nil {
		return nil, err
	}
	if err := e.auth.CanEscalate(in.Actor, credit); err != nil {
		if !domain.IsRejection(err, domain.ReasonCrossTenantDenied) {
			e.audit.record(ctx, in.Actor, &credit.Case, credit.Status, domain.StatusEscalatedToLegal, domain.ResultRejected, reasonOf(err), e.clock())
		}
		return nil, err
	}

	if credit.IsEscalationUnlinked() {
		e.log.Info("resuming unlinked escalation", "credit_case_id", credit.ID, "actor_id", in.Actor.ID)
		out, err := e.resume(ctx, credit, false)
		if out != nil {
			out.Resumed = true
		}
		return out, err
	}

	if !domain.IsAllowed(domain.KindCredit, credit.Status, domain.StatusEscalatedToLegal) {
		rej := domain.Reject(domain.ReasonInvalidTransition, "credit case cannot be escalated from %s", credit.Status)
		e.audit.record(ctx, in.Actor, &credit.Case, credit.Status, domain.StatusEscalatedToLegal, domain.ResultRejected, domain.ReasonInvalidTransition, e.clock())
		return nil, rej
	}

	if in.AdvocateID != "" {
		if err := e.checkAdvocate(ctx, credit.TenantID, in.AdvocateID); err != nil {
			return nil, err
		}
	}

	return e.escalateLoaded(ctx, in.Actor, credit, in)
}

// Resume repairs an unlinked escalation. When the intent is older than the
// rollback window and no legal case exists for it, the credit case is put
// back to its pre-escalation status.
func (e *EscalationCoordinator) Resume(ctx context.Context, credit *domain.CreditCase) (*EscalationOutcome, error) {
	return e.resume(ctx, credit, true)
}

// escalateLoaded stores the intent on an already validated credit case and
// runs the legal-side steps
func (e *EscalationCoordinator) escalateLoaded(ctx context.Context, actor domain.Actor, credit *domain.CreditCase, in EscalateInput) (*EscalationOutcome, error) {
	from := credit.Status
	now := e.clock()

	filingFee := credit.DebtAmount
	if in.FilingFee != nil {
		filingFee = *in.FilingFee
	}

	next := cloneCredit(credit)
	next.Status = domain.StatusEscalatedToLegal
	next.Escalation = &domain.Escalation{
		EscalationDate:  now,
		FeeAmount:       in.FeeAmount,
		FeeStatus:       domain.FeePending,
		PreviousStatus:  from,
		AdvocateID:      in.AdvocateID,
		FilingFeeAmount: filingFee,
	}
	next.Touch(now)

	if err := e.creditRepo.CompareAndSwap(ctx, next, domain.RevisionOf(&credit.Case)); err != nil {
		if errors.Is(err, domain.ErrStaleWrite) {
			e.audit.record(ctx, actor, &credit.Case, from, domain.StatusEscalatedToLegal, domain.ResultRejected, domain.ReasonStaleState, now)
			return nil, domain.Reject(domain.ReasonStaleState, "case %s changed since it was read; reload and retry", credit.ID)
		}
		return nil, fmt.Errorf("write escalation intent: %w", err)
	}

	e.audit.record(ctx, actor, &next.Case, from, next.Status, domain.ResultApplied, "", next.UpdatedAt)
	e.events.Publish(statusChangedEvent(&next.Case, from, actor.ID))

	// past this point the intent is durable and the sequence must finish
	return e.complete(context.WithoutCancel(ctx), next)
}

// complete runs find-or-create of the legal case and the link write, each
// under the retry policy
func (e *EscalationCoordinator) complete(ctx context.Context, credit *domain.CreditCase) (*EscalationOutcome, error) {
	key := domain.EscalationKey(credit.ID, credit.Escalation.EscalationDate)
	out := &EscalationOutcome{CreditCase: credit}

	var legal *domain.LegalCase
	err := backoff.Retry(func() error {
		var err error
		legal, err = e.findOrCreateLegal(ctx, credit, key)
		return err
	}, backoff.WithContext(e.cfg.NewBackOff(), ctx))
	if err != nil {
		return out, e.partial(credit, key, fmt.Errorf("create legal case: %w", err))
	}
	out.LegalCase = legal

	var linked *domain.CreditCase
	err = backoff.Retry(func() error {
		var err error
		linked, err = e.link(ctx, credit, legal)
		return err
	}, backoff.WithContext(e.cfg.NewBackOff(), ctx))
	if errors.Is(err, ErrEscalationSuperseded) {
		// the intent was rolled back or replaced while we worked; the legal
		// case for its key would point at a credit case that disowns it
		e.discardOrphan(ctx, legal, key)
		return nil, domain.Reject(domain.ReasonStaleState, "escalation of case %s was rolled back or replaced; reload and retry", credit.ID)
	}
	if err != nil {
		return out, e.partial(credit, key, fmt.Errorf("link credit case: %w", err))
	}
	out.CreditCase = linked

	e.events.Publish(domain.CaseEvent{
		TenantID: linked.TenantID,
		Type:     domain.EventCaseEscalated,
		CaseID:   linked.ID,
		CaseKind: domain.KindCredit,
		Version:  linked.Version,
		Payload: domain.EscalatedPayload{
			CreditCaseID:   linked.ID,
			LegalCaseID:    legal.ID,
			EscalationDate: linked.Escalation.EscalationDate,
		},
		OccurredAt: linked.UpdatedAt,
	})
	e.log.Info("credit case escalated", "credit_case_id", linked.ID, "legal_case_id", legal.ID, "tenant_id", linked.TenantID)
	return out, nil
}

// findOrCreateLegal returns the one legal case for key, creating it if needed
func (e *EscalationCoordinator) findOrCreateLegal(ctx context.Context, credit *domain.CreditCase, key string) (*domain.LegalCase, error) {
	existing, err := e.legalRepo.FindByEscalationKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrCaseNotFound) {
		return nil, err
	}

	legal := newLegalFromEscalation(credit, e.clock())
	if err := e.legalRepo.Create(ctx, legal); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			// lost a race on the key, or the generated case number collided
			if existing, ferr := e.legalRepo.FindByEscalationKey(ctx, key); ferr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	e.events.Publish(domain.CaseEvent{
		TenantID:   legal.TenantID,
		Type:       domain.EventCaseCreated,
		CaseID:     legal.ID,
		CaseKind:   domain.KindLegal,
		Version:    legal.Version,
		OccurredAt: legal.CreatedAt,
	})
	return legal, nil
}

// link writes the legal case id onto the credit case, reloading on conflicts
func (e *EscalationCoordinator) link(ctx context.Context, intent *domain.CreditCase, legal *domain.LegalCase) (*domain.CreditCase, error) {
	current, err := e.creditRepo.GetByID(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, domain.ErrCaseNotFound) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	if current.Status != domain.StatusEscalatedToLegal || current.Escalation == nil ||
		!current.Escalation.EscalationDate.Equal(intent.Escalation.EscalationDate) {
		return nil, backoff.Permanent(ErrEscalationSuperseded)
	}
	if current.Escalation.LegalCaseID == legal.ID {
		return current, nil
	}
	if current.Escalation.Linked() {
		return nil, backoff.Permanent(domain.Reject(domain.ReasonAlreadyEscalated, "credit case %s is linked to %s", current.ID, current.Escalation.LegalCaseID))
	}

	next := cloneCredit(current)
	next.Escalation.LegalCaseID = legal.ID
	next.Touch(e.clock())
	if err := e.creditRepo.CompareAndSwap(ctx, next, domain.RevisionOf(&current.Case)); err != nil {
		return nil, err
	}
	return next, nil
}

func (e *EscalationCoordinator) resume(ctx context.Context, credit *domain.CreditCase, allowRollback bool) (*EscalationOutcome, error) {
	if !credit.IsEscalationUnlinked() {
		return &EscalationOutcome{CreditCase: credit}, nil
	}
	ctx = context.WithoutCancel(ctx)

	if credit.Escalation == nil {
		// status set without an intent record; nothing to key a legal case on
		if allowRollback {
			return e.rollback(ctx, credit)
		}
		return &EscalationOutcome{CreditCase: credit}, &domain.PartialEscalationFailure{
			CreditCaseID: credit.ID,
			Err:          errors.New("escalation intent missing"),
		}
	}

	out, err := e.complete(ctx, credit)
	if err == nil || !allowRollback || out == nil {
		return out, err
	}
	if out.LegalCase != nil {
		// the legal side exists; only the link is missing, keep retrying later
		return out, err
	}
	if e.clock().Sub(credit.Escalation.EscalationDate) < e.cfg.RollbackAfter || e.cfg.RollbackAfter <= 0 {
		return out, err
	}
	return e.rollback(ctx, credit)
}

// rollback returns an unlinked credit case to its pre-escalation status
func (e *EscalationCoordinator) rollback(ctx context.Context, credit *domain.CreditCase) (*EscalationOutcome, error) {
	if credit.Escalation != nil {
		key := domain.EscalationKey(credit.ID, credit.Escalation.EscalationDate)
		_, err := e.legalRepo.FindByEscalationKey(ctx, key)
		if err == nil {
			return &EscalationOutcome{CreditCase: credit}, fmt.Errorf("legal case exists for %s; refusing rollback", key)
		}
		if !errors.Is(err, domain.ErrCaseNotFound) {
			return &EscalationOutcome{CreditCase: credit}, err
		}
	}

	prev := domain.StatusInProgress
	if credit.Escalation != nil && domain.IsKnownStatus(domain.KindCredit, credit.Escalation.PreviousStatus) {
		prev = credit.Escalation.PreviousStatus
	}

	next := cloneCredit(credit)
	next.Status = prev
	next.Escalation = nil
	next.Touch(e.clock())
	if err := e.creditRepo.CompareAndSwap(ctx, next, domain.RevisionOf(&credit.Case)); err != nil {
		return &EscalationOutcome{CreditCase: credit}, fmt.Errorf("roll back escalation: %w", err)
	}

	if credit.Escalation != nil {
		// a resume may have created the legal case after the check above
		key := domain.EscalationKey(credit.ID, credit.Escalation.EscalationDate)
		if legal, err := e.legalRepo.FindByEscalationKey(ctx, key); err == nil {
			e.discardOrphan(ctx, legal, key)
		}
	}

	e.events.Publish(statusChangedEvent(&next.Case, domain.StatusEscalatedToLegal, ""))
	e.log.Warn("unlinked escalation rolled back", "credit_case_id", next.ID, "status", next.Status)
	return &EscalationOutcome{CreditCase: next, RolledBack: true}, nil
}

// discardOrphan removes a legal case whose escalation intent no longer
// exists on the credit side
func (e *EscalationCoordinator) discardOrphan(ctx context.Context, legal *domain.LegalCase, key string) {
	err := e.legalRepo.Delete(ctx, legal.TenantID, legal.ID)
	if err != nil && !errors.Is(err, domain.ErrCaseNotFound) {
		e.log.Error("failed to discard orphaned legal case", "legal_case_id", legal.ID, "escalation_key", key, "error", err)
		return
	}
	e.log.Warn("orphaned legal case discarded", "legal_case_id", legal.ID, "escalation_key", key)
}

func (e *EscalationCoordinator) partial(credit *domain.CreditCase, key string, err error) error {
	e.log.Warn("escalation left unlinked", "credit_case_id", credit.ID, "escalation_key", key, "error", err)
	return &domain.PartialEscalationFailure{CreditCaseID: credit.ID, EscalationKey: key, Err: err}
}

// checkAdvocate verifies that userID can take a legal case in tenantID
func (e *EscalationCoordinator) checkAdvocate(ctx context.Context, tenantID, userID string) error {
	if e.userRepo == nil {
		return nil
	}
	user, err := e.userRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Invalid("advocateId", "no such user in this firm")
		}
		return err
	}
	if !user.IsActive || (user.Role != domain.RoleAdvocate && user.Role != domain.RoleLegalHead) {
		return domain.Invalid("advocateId", "user cannot take legal cases")
	}
	return nil
}

// newLegalFromEscalation builds the legal case an escalation intent spawns
func newLegalFromEscalation(credit *domain.CreditCase, now time.Time) *domain.LegalCase {
	esc := credit.Escalation
	status := domain.StatusPendingAssignment
	if esc.AdvocateID != "" {
		status = domain.StatusAssigned
	}
	return &domain.LegalCase{
		Case: domain.Case{
			ID:          uuid.NewString(),
			TenantID:    credit.TenantID,
			CaseNumber:  newCaseNumber(domain.KindLegal, now),
			Kind:        domain.KindLegal,
			Title:       truncateRunes("Legal action: "+credit.Title, maxTitleLen),
			Description: escalatedDescription(credit),
			Status:      status,
			Priority:    credit.Priority,
			AssignedTo:  esc.AdvocateID,
			// document ids are shared references, not copies of the files
			Documents: append([]string{}, credit.Documents...),
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CaseType:  "debt_recovery",
		FilingFee: domain.FilingFee{Amount: esc.FilingFeeAmount},
		EscalatedFrom: &domain.EscalatedFrom{
			CreditCaseID:   credit.ID,
			EscalationDate: esc.EscalationDate,
			EscalationFee:  esc.FeeAmount,
		},
	}
}

func escalatedDescription(credit *domain.CreditCase) string {
	desc := fmt.Sprintf("Escalated from credit case %s. Debtor: %s. Outstanding debt: %s.",
		credit.CaseNumber, credit.DebtorName, credit.DebtAmount.StringFixed(2))
	if credit.Description != "" {
		desc += "\n\n" + credit.Description
	}
	return desc
}

func reasonOf(err error) domain.RejectionReason {
	reason, _ := domain.ReasonOf(err)
	return reason
}
