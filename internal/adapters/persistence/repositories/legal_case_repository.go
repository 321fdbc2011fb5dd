package repositories

import (
	"context"

	"casedesk/internal/adapters/persistence/models"
	"casedesk/internal/core/domain"

	"gorm.io/gorm"
)

// legalCaseRepository implements LegalCaseRepository with gorm
type legalCaseRepository struct {
	db *gorm.DB
}

// NewLegalCaseRepository creates a new legal case repository
func NewLegalCaseRepository(db *gorm.DB) LegalCaseRepository {
	return &legalCaseRepository{db: db}
}

// Create inserts a new legal case. A second case for the same escalation key
// fails with domain.ErrDuplicateEntry.
func (r *legalCaseRepository) Create(ctx context.Context, c *domain.LegalCase) error {
	return translate(r.db.WithContext(ctx).Create(models.NewLegalCase(c)).Error, domain.ErrCaseNotFound)
}

// GetByID gets a legal case by ID regardless of tenant; callers authorize
func (r *legalCaseRepository) GetByID(ctx context.Context, id string) (*domain.LegalCase, error) {
	var row models.LegalCase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, domain.ErrCaseNotFound)
	}
	return row.ToDomain(), nil
}

// FindByEscalationKey finds the legal case spawned by one escalation intent
func (r *legalCaseRepository) FindByEscalationKey(ctx context.Context, key string) (*domain.LegalCase, error) {
	var row models.LegalCase
	if err := r.db.WithContext(ctx).Where("escalation_key = ?", key).First(&row).Error; err != nil {
		return nil, translate(err, domain.ErrCaseNotFound)
	}
	return row.ToDomain(), nil
}

// List lists a tenant's legal cases with pagination
func (r *legalCaseRepository) List(ctx context.Context, tenantID string, filter CaseFilter, offset, limit int) ([]*domain.LegalCase, int64, error) {
	var rows []*models.LegalCase
	var total int64

	if err := applyFilter(r.db.WithContext(ctx).Model(&models.LegalCase{}), tenantID, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := applyFilter(r.db.WithContext(ctx), tenantID, filter).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*domain.LegalCase, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out, total, nil
}

// CompareAndSwap rewrites the aggregate if version and status still match
func (r *legalCaseRepository) CompareAndSwap(ctx context.Context, c *domain.LegalCase, expected domain.Revision) error {
	next := *c
	next.Version = expected.Version + 1
	row := models.NewLegalCase(&next)

	res := r.db.WithContext(ctx).
		Model(row).
		Where("tenant_id = ? AND version = ? AND status = ?", c.TenantID, expected.Version, string(expected.Status)).
		Select("*").
		Updates(row)
	if res.Error != nil {
		return translate(res.Error, domain.ErrCaseNotFound)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleWrite
	}
	c.Version = next.Version
	return nil
}

// Delete hard deletes a legal case
func (r *legalCaseRepository) Delete(ctx context.Context, tenantID, id string) error {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.LegalCase{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCaseNotFound
	}
	return nil
}
