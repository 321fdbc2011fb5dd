package repositories

import (
	"context"
	"time"

	"casedesk/internal/core/domain"
)

// CaseFilter narrows case listings; zero values mean "any"
type CaseFilter struct {
	Status     domain.Status
	Priority   domain.Priority
	AssignedTo string
}

// CreditCaseRepository persists credit case aggregates.
// CompareAndSwap writes the whole aggregate only if the stored row still
// matches expected; otherwise it returns domain.ErrStaleWrite.
type CreditCaseRepository interface {
	Create(ctx context.Context, c *domain.CreditCase) error
	GetByID(ctx context.Context, id string) (*domain.CreditCase, error)
	List(ctx context.Context, tenantID string, filter CaseFilter, offset, limit int) ([]*domain.CreditCase, int64, error)
	CompareAndSwap(ctx context.Context, c *domain.CreditCase, expected domain.Revision) error
	Delete(ctx context.Context, tenantID, id string) error
	ListUnlinkedEscalations(ctx context.Context, before time.Time, limit int) ([]*domain.CreditCase, error)
}

// LegalCaseRepository persists legal case aggregates
type LegalCaseRepository interface {
	Create(ctx context.Context, c *domain.LegalCase) error
	GetByID(ctx context.Context, id string) (*domain.LegalCase, error)
	FindByEscalationKey(ctx context.Context, key string) (*domain.LegalCase, error)
	List(ctx context.Context, tenantID string, filter CaseFilter, offset, limit int) ([]*domain.LegalCase, int64, error)
	CompareAndSwap(ctx context.Context, c *domain.LegalCase, expected domain.Revision) error
	Delete(ctx context.Context, tenantID, id string) error
}

// TransitionRepository stores the audit trail of transition attempts
type TransitionRepository interface {
	Create(ctx context.Context, r *domain.TransitionRecord) error
	ListByCase(ctx context.Context, tenantID, caseID string, limit int) ([]*domain.TransitionRecord, error)
}

// CommentRepository stores case comments
type CommentRepository interface {
	Create(ctx context.Context, c *domain.Comment) error
	ListByCase(ctx context.Context, tenantID, caseID string, limit int) ([]*domain.Comment, error)
}

// UserRepository is the firm staff directory
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.User, error)
	CountByRole(ctx context.Context, tenantID string, role domain.Role) (int64, error)
}
