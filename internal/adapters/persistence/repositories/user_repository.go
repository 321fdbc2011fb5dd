package repositories

import (
	"context"

	"casedesk/internal/adapters/persistence/models"
	"casedesk/internal/core/domain"

	"gorm.io/gorm"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new staff member
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	row := models.NewUser(user)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err, domain.ErrUserNotFound)
	}
	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt
	return nil
}

// GetByID gets a staff member of the tenant by ID
func (r *userRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.User, error) {
	var row models.User
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&row).Error
	if err != nil {
		return nil, translate(err, domain.ErrUserNotFound)
	}
	return row.ToDomain(), nil
}

// ListByTenant lists the tenant's staff directory
func (r *userRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.User, error) {
	var rows []*models.User
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out, nil
}

// CountByRole counts the tenant's staff holding role
func (r *userRepository) CountByRole(ctx context.Context, tenantID string, role domain.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("tenant_id = ? AND role = ?", tenantID, string(role)).
		Count(&count).Error
	return count, err
}
