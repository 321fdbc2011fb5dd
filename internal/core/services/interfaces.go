package services

import (
	"context"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/core/domain"
)

// Note: StateMachine implementation is in state_machine.go
// Note: EscalationCoordinator implementation is in escalation_service.go

// TransitionService applies status transitions (StateMachine)
type TransitionService interface {
	ApplyTransition(ctx context.Context, req TransitionRequest) (domain.Record, error)
}

// EscalationService promotes credit cases to legal cases (EscalationCoordinator)
type EscalationService interface {
	Escalate(ctx context.Context, in EscalateInput) (*EscalationOutcome, error)
}

// CaseManager is the case CRUD surface (CaseService)
type CaseManager interface {
	CreateCreditCase(ctx context.Context, actor domain.Actor, in CreateCreditCaseInput) (*domain.CreditCase, error)
	CreateLegalCase(ctx context.Context, actor domain.Actor, in CreateLegalCaseInput) (*domain.LegalCase, error)
	GetCreditCase(ctx context.Context, actor domain.Actor, id string) (*CreditCaseView, error)
	GetLegalCase(ctx context.Context, actor domain.Actor, id string) (*domain.LegalCase, error)
	ListCreditCases(ctx context.Context, actor domain.Actor, filter repositories.CaseFilter, offset, limit int) ([]*CreditCaseView, int64, error)
	ListLegalCases(ctx context.Context, actor domain.Actor, filter repositories.CaseFilter, offset, limit int) ([]*domain.LegalCase, int64, error)
	Assign(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID, userID string) (domain.Record, error)
	Comment(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID, body string) (*domain.Comment, error)
	Comments(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID string, limit int) ([]*domain.Comment, error)
	AttachDocument(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID, documentID string) (domain.Record, error)
	Delete(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID string) error
	History(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID string, limit int) ([]*domain.TransitionRecord, error)
	EnrichLegalCase(ctx context.Context, actor domain.Actor, caseID string, enrichment domain.LegalEnrichment) (*domain.LegalCase, error)
	MarkFilingFeePaid(ctx context.Context, actor domain.Actor, caseID string) (*domain.LegalCase, error)
	ConfirmEscalationFee(ctx context.Context, actor domain.Actor, creditCaseID string) (*domain.CreditCase, error)
}

var (
	_ TransitionService = (*StateMachine)(nil)
	_ EscalationService = (*EscalationCoordinator)(nil)
	_ CaseManager       = (*CaseService)(nil)
	_ EventBroadcaster  = (*EventHub)(nil)
)
