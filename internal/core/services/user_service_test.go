package services

import (
	"context"
	"strings"
	"testing"

	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateStaff(t *testing.T) {
	h := newHarness(t)
	users := NewUserService(h.users, logger.Nop())
	users.clock = h.clock.Now
	admin := h.addUser(t, "admin", tenantA, domain.RoleFirmAdmin)
	head := h.addUser(t, "head", tenantA, domain.RoleCreditHead)
	ctx := context.Background()

	u, err := users.CreateStaff(ctx, admin, CreateStaffInput{Name: " Wanjiru ", Email: "Wanjiru@Firm.test", Role: domain.RoleAdvocate})
	require.NoError(t, err)
	assert.Equal(t, tenantA, u.TenantID)
	assert.Equal(t, "Wanjiru", u.Name)
	assert.Equal(t, "wanjiru@firm.test", u.Email)
	assert.True(t, u.IsActive)

	_, err = users.CreateStaff(ctx, head, CreateStaffInput{Name: "X", Email: "x@firm.test", Role: domain.RoleAdvocate})
	assert.True(t, domain.IsRejection(err, domain.ReasonUnauthorized))

	_, err = users.CreateStaff(ctx, admin, CreateStaffInput{Name: "X", Email: "not-an-email", Role: domain.RoleAdvocate})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	_, err = users.CreateStaff(ctx, admin, CreateStaffInput{Name: "X", Email: "x@firm.test", Role: "paralegal"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)

	_, err = users.CreateStaff(ctx, admin, CreateStaffInput{Name: "Again", Email: "wanjiru@firm.test", Role: domain.RoleAdvocate})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = users.CreateStaff(ctx, admin, CreateStaffInput{Name: strings.Repeat("n", 101), Email: "long@firm.test", Role: domain.RoleAdvocate})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestUserService_CreateStaffStoresBareAddress(t *testing.T) {
	h := newHarness(t)
	users := NewUserService(h.users, logger.Nop())
	admin := h.addUser(t, "admin", tenantA, domain.RoleFirmAdmin)
	ctx := context.Background()

	u, err := users.CreateStaff(ctx, admin, CreateStaffInput{Name: "Jane", Email: "Jane Doe <Jane@Firm.test>", Role: domain.RoleAdvocate})
	require.NoError(t, err)
	assert.Equal(t, "jane@firm.test", u.Email)

	_, err = users.CreateStaff(ctx, admin, CreateStaffInput{Name: "Jane", Email: "jane@firm.test", Role: domain.RoleAdvocate})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestUserService_EmailUniquePerFirm(t *testing.T) {
	h := newHarness(t)
	users := NewUserService(h.users, logger.Nop())
	adminA := h.addUser(t, "admin-a", tenantA, domain.RoleFirmAdmin)
	adminB := h.addUser(t, "admin-b", tenantB, domain.RoleFirmAdmin)
	ctx := context.Background()

	a, err := users.CreateStaff(ctx, adminA, CreateStaffInput{Name: "Sam", Email: "sam@shared.test", Role: domain.RoleAdvocate})
	require.NoError(t, err)
	b, err := users.CreateStaff(ctx, adminB, CreateStaffInput{Name: "Sam", Email: "sam@shared.test", Role: domain.RoleAdvocate})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, tenantB, b.TenantID)
}

func TestUserService_DirectoryIsTenantScoped(t *testing.T) {
	h := newHarness(t)
	users := NewUserService(h.users, logger.Nop())
	admin := h.addUser(t, "admin", tenantA, domain.RoleFirmAdmin)
	h.addUser(t, "adv-1", tenantA, domain.RoleAdvocate)
	h.addUser(t, "adv-2", tenantA, domain.RoleAdvocate)
	h.addUser(t, "other", tenantB, domain.RoleAdvocate)
	ctx := context.Background()

	all, err := users.ListStaff(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	advocates, err := users.ListStaff(ctx, admin, domain.RoleAdvocate)
	require.NoError(t, err)
	assert.Len(t, advocates, 2)

	_, err = users.GetStaff(ctx, admin, "other")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	summary, err := users.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	assert.Equal(t, int64(2), summary.ByRole[domain.RoleAdvocate])
	assert.Equal(t, int64(0), summary.ByRole[domain.RoleLegalHead])
}
