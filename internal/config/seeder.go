package config

import (
	"errors"
	"time"

	"casedesk/internal/adapters/persistence/models"
	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/jwt"
	"casedesk/internal/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DevTenantID is the firm the development seed belongs to
const DevTenantID = "00000000-0000-4000-8000-000000000001"

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
	log *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config, log *logger.Logger) *Seeder {
	return &Seeder{db: db, cfg: cfg, log: log.With("component", "Seeder")}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	s.log.Info("running database seeders")

	if err := s.seedFirmAdmin(); err != nil {
		s.log.Warn("firm admin seeder skipped", "error", err)
	}

	return nil
}

// seedFirmAdmin seeds a firm admin for the development tenant and logs a
// token for it. Development only; production staff come from the firm's
// identity provider.
func (s *Seeder) seedFirmAdmin() error {
	var admin models.User
	err := s.db.Where("tenant_id = ? AND role = ?", DevTenantID, string(domain.RoleFirmAdmin)).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		admin = models.User{
			ID:        uuid.NewString(),
			TenantID:  DevTenantID,
			Name:      "Firm Admin",
			Email:     "admin@casedesk.local",
			Role:      string(domain.RoleFirmAdmin),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.db.Create(&admin).Error; err != nil {
			return err
		}
		s.log.Info("firm admin created", "user_id", admin.ID, "tenant_id", admin.TenantID)
	} else if err != nil {
		return err
	}

	token, err := jwt.GenerateAccessToken(admin.ID, admin.TenantID, admin.Name, admin.Role, s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	if err != nil {
		return err
	}
	// logged under a key the logger does not redact; dev mode only
	s.log.Info("development access token", "user_id", admin.ID, "bearer", token)
	return nil
}
