package permissions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nongxian/models"
	"nongxian/permissions"
)

func TestCanAccessPage_Moderator(t *testing.T) {
	mod := models.AdminUser{Role: models.RoleModerator, IsActive: true}

	assert.False(t, permissions.CanAccessPage(mod, permissions.PaymentManagement))
	assert.True(t, permissions.CanAccessPage(mod, permissions.OrderManagement))
	assert.True(t, permissions.CanAccessPage(mod, permissions.ProductManagement))
	assert.True(t, permissions.CanAccessPage(mod, permissions.CategoryManagement))
	assert.False(t, permissions.CanAccessPage(mod, permissions.CouponManagement))
}

func TestCanAccessPage_ExplicitPermissionsAdd(t *testing.T) {
	user := models.AdminUser{Role: models.RoleUser, IsActive: true}
	assert.False(t, permissions.CanAccessPage(user, permissions.CouponManagement))

	user.Permissions = []string{permissions.CouponManagement}
	assert.True(t, permissions.CanAccessPage(user, permissions.CouponManagement))
	assert.False(t, permissions.CanAccessPage(user, permissions.PaymentManagement))
}

func TestCanAccessPage_AnyRequirementSuffices(t *testing.T) {
	// shipping opens with either order or logistics management
	user := models.AdminUser{Role: models.RoleUser, IsActive: true, Permissions: []string{permissions.LogisticsManagement}}
	assert.True(t, permissions.CanAccessPage(user, permissions.PageShipping))

	mod := models.AdminUser{Role: models.RoleModerator, IsActive: true}
	assert.True(t, permissions.CanAccessPage(mod, permissions.PageShipping))
}

func TestCanAccessPage_OpenPages(t *testing.T) {
	user := models.AdminUser{Role: models.RoleUser}
	assert.True(t, permissions.CanAccessPage(user, permissions.PageDashboard))
	assert.True(t, permissions.CanAccessPage(user, "unknown-page"))
}

func TestCanAccessPage_InactiveDenied(t *testing.T) {
	admin := models.AdminUser{Role: models.RoleAdmin, IsActive: false}
	assert.False(t, permissions.CanAccessPage(admin, permissions.OrderManagement))
	assert.True(t, permissions.CanAccessPage(admin, permissions.PageDashboard))
}

func TestEffective_Union(t *testing.T) {
	mod := models.AdminUser{
		Role:        models.RoleModerator,
		Permissions: []string{permissions.CouponManagement, permissions.OrderManagement},
	}
	assert.Equal(t, []string{
		permissions.CategoryManagement,
		permissions.CouponManagement,
		permissions.OrderManagement,
		permissions.ProductManagement,
	}, permissions.Effective(mod))

	admin := models.AdminUser{Role: models.RoleAdmin}
	assert.ElementsMatch(t, permissions.All, permissions.Effective(admin))
}
