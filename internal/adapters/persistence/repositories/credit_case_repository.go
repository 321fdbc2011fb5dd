package repositories

import (
	"context"
	"time"

	"casedesk/internal/adapters/persistence/models"
	"casedesk/internal/core/domain"

	"gorm.io/gorm"
)

// creditCaseRepository implements CreditCaseRepository with gorm
type creditCaseRepository struct {
	db *gorm.DB
}

// NewCreditCaseRepository creates a new credit case repository
func NewCreditCaseRepository(db *gorm.DB) CreditCaseRepository {
	return &creditCaseRepository{db: db}
}

// Create inserts a new credit case
func (r *creditCaseRepository) Create(ctx context.Context, c *domain.CreditCase) error {
	return translate(r.db.WithContext(ctx).Create(models.NewCreditCase(c)).Error, domain.ErrCaseNotFound)
}

// GetByID gets a credit case by ID regardless of tenant; callers authorize
func (r *creditCaseRepository) GetByID(ctx context.Context, id string) (*domain.CreditCase, error) {
	var row models.CreditCase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, domain.ErrCaseNotFound)
	}
	return row.ToDomain(), nil
}

// List lists a tenant's credit cases with pagination
func (r *creditCaseRepository) List(ctx context.Context, tenantID string, filter CaseFilter, offset, limit int) ([]*domain.CreditCase, int64, error) {
	var rows []*models.CreditCase
	var total int64

	query := applyFilter(r.db.WithContext(ctx).Model(&models.CreditCase{}), tenantID, filter)
	if err := query.Count(&total).Error; err != nil {
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

	out := make([]*domain.CreditCase, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out, total, nil
}

// CompareAndSwap rewrites the aggregate if version and status still match
func (r *creditCaseRepository) CompareAndSwap(ctx context.Context, c *domain.CreditCase, expected domain.Revision) error {
	next := *c
	next.Version = expected.Version + 1
	row := models.NewCreditCase(&next)

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

// Delete hard deletes a credit case
func (r *creditCaseRepository) Delete(ctx context.Context, tenantID, id string) error {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.CreditCase{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCaseNotFound
	}
	return nil
}

// ListUnlinkedEscalations finds cases stuck between the escalation intent and
// the link write, across all tenants, oldest first
func (r *creditCaseRepository) ListUnlinkedEscalations(ctx context.Context, before time.Time, limit int) ([]*domain.CreditCase, error) {
	var rows []*models.CreditCase
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.StatusEscalatedToLegal)).
		Where("(escalation_legal_case_id IS NULL OR escalation_legal_case_id = '')").
		Where("(escalation_date IS NULL OR escalation_date < ?)", before).
		Order("escalation_date ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.CreditCase, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out, nil
}

// applyFilter scopes a query to a tenant and the optional filter fields
func applyFilter(db *gorm.DB, tenantID string, filter CaseFilter) *gorm.DB {
	db = db.Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		db = db.Where("status = ?", string(filter.Status))
	}
	if filter.Priority != "" {
		db = db.Where("priority = ?", string(filter.Priority))
	}
	if filter.AssignedTo != "" {
		db = db.Where("assigned_to = ?", filter.AssignedTo)
	}
	return db
}
