package repositories

import (
	"context"

	"casedesk/internal/adapters/persistence/models"
	"casedesk/internal/core/domain"

	"gorm.io/gorm"
)

// transitionRepository handles the transition audit trail
type transitionRepository struct {
	db *gorm.DB
}

// NewTransitionRepository creates a new transition repository
func NewTransitionRepository(db *gorm.DB) TransitionRepository {
	return &transitionRepository{db: db}
}

// Create appends a transition record
func (r *transitionRepository) Create(ctx context.Context, rec *domain.TransitionRecord) error {
	return r.db.WithContext(ctx).Create(models.NewCaseTransition(rec)).Error
}

// ListByCase gets a case's transition history, newest first
func (r *transitionRepository) ListByCase(ctx context.Context, tenantID, caseID string, limit int) ([]*domain.TransitionRecord, error) {
	var rows []*models.CaseTransition
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND case_id = ?", tenantID, caseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.TransitionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out, nil
}

// commentRepository handles case comments
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create stores a comment
func (r *commentRepository) Create(ctx context.Context, c *domain.Comment) error {
	return r.db.WithContext(ctx).Create(models.NewCaseComment(c)).Error
}

// ListByCase gets a case's comments, newest first
func (r *commentRepository) ListByCase(ctx context.Context, tenantID, caseID string, limit int) ([]*domain.Comment, error) {
	var rows []*models.CaseComment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND case_id = ?", tenantID, caseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out, nil
}
