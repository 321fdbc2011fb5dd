package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/logger"

	"github.com/google/uuid"
)

// User service errors
var (
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// UserService manages a firm's staff directory
type UserService struct {
	userRepo repositories.UserRepository
	clock    func() time.Time
	log      *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, log *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		clock:    systemClock,
		log:      log.With("component", "UserService"),
	}
}

// CreateStaffInput represents create staff member input
type CreateStaffInput struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// column widths of the users table
const (
	maxStaffNameLen  = 100
	maxStaffEmailLen = 100
)

// StaffSummary counts the firm's staff per role
type StaffSummary struct {
	Total  int64                 `json:"total"`
	ByRole map[domain.Role]int64 `json:"by_role"`
}

// CreateStaff adds a staff member to the actor's firm (firm admin only)
func (s *UserService) CreateStaff(ctx context.Context, actor domain.Actor, in CreateStaffInput) (*domain.User, error) {
	if actor.Role != domain.RoleFirmAdmin {
		return nil, domain.Reject(domain.ReasonUnauthorized, "only a firm admin can add staff")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxStaffNameLen {
		return nil, domain.Invalid("name", fmt.Sprintf("must be at most %d characters", maxStaffNameLen))
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil {
		return nil, domain.Invalid("email", "is not a valid address")
	}
	email := strings.ToLower(addr.Address)
	if len(email) > maxStaffEmailLen {
		return nil, domain.Invalid("email", fmt.Sprintf("must be at most %d characters", maxStaffEmailLen))
	}
	if !in.Role.Valid() {
		return nil, domain.Invalid("role", "unknown role "+string(in.Role))
	}

	now := s.clock()
	user := &domain.User{
		ID:        uuid.NewString(),
		TenantID:  actor.TenantID,
		Name:      name,
		Email:     email,
		Role:      in.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	s.log.Info("staff member created", "user_id", user.ID, "tenant_id", user.TenantID, "role", user.Role, "actor_id", actor.ID)
	return user, nil
}

// ListStaff lists the actor's firm, optionally narrowed to one role
func (s *UserService) ListStaff(ctx context.Context, actor domain.Actor, role domain.Role) ([]*domain.User, error) {
	if role != "" && !role.Valid() {
		return nil, domain.Invalid("role", "unknown role "+string(role))
	}
	users, err := s.userRepo.ListByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return users, nil
	}
	out := users[:0]
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// GetStaff gets one staff member of the actor's firm
func (s *UserService) GetStaff(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, actor.TenantID, id)
}

// Summary counts the actor's firm per role
func (s *UserService) Summary(ctx context.Context, actor domain.Actor) (*StaffSummary, error) {
	summary := &StaffSummary{ByRole: make(map[domain.Role]int64)}
	for _, role := range []domain.Role{
		domain.RoleFirmAdmin, domain.RoleCreditHead, domain.RoleDebtCollector,
		domain.RoleLegalHead, domain.RoleAdvocate,
	} {
		n, err := s.userRepo.CountByRole(ctx, actor.TenantID, role)
		if err != nil {
			return nil, err
		}
		summary.ByRole[role] = n
		summary.Total += n
	}
	return summary, nil
}
