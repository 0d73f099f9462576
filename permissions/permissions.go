// Package permissions maps back-office roles and explicit grants to the
// admin pages a user may open.
package permissions

import (
	"sort"

	"nongxian/models"
)

// Capabilities
const (
	ProductManagement   = "product-management"
	OrderManagement     = "order-management"
	CategoryManagement  = "category-management"
	CouponManagement    = "coupon-management"
	PaymentManagement   = "payment-management"
	LogisticsManagement = "logistics-management"
	EmailManagement     = "email-management"
	UserManagement      = "user-management"
	SystemSettings      = "system-settings"
)

// All lists every capability, in display order.
var All = []string{
	ProductManagement,
	OrderManagement,
	CategoryManagement,
	CouponManagement,
	PaymentManagement,
	LogisticsManagement,
	EmailManagement,
	UserManagement,
	SystemSettings,
}

// RoleDefaults is what a role grants before explicit permissions are added.
var RoleDefaults = map[string][]string{
	models.RoleAdmin:     All,
	models.RoleModerator: {ProductManagement, OrderManagement, CategoryManagement},
	models.RoleUser:      {},
}

// Page keys
const (
	PageDashboard = "dashboard"
	PageShipping  = "shipping-management"
)

// PageRequirements lists, per page, the capabilities any one of which opens
// it. Pages not listed are open to every signed-in user.
var PageRequirements = map[string][]string{
	PageDashboard:       {},
	ProductManagement:   {ProductManagement},
	OrderManagement:     {OrderManagement},
	CategoryManagement:  {CategoryManagement},
	CouponManagement:    {CouponManagement},
	PaymentManagement:   {PaymentManagement},
	LogisticsManagement: {LogisticsManagement},
	EmailManagement:     {EmailManagement},
	UserManagement:      {UserManagement},
	SystemSettings:      {SystemSettings},
	PageShipping:        {OrderManagement, LogisticsManagement},
}

// Effective is the union of the role defaults and the explicit permissions,
// sorted.
func Effective(user models.AdminUser) []string {
	set := effectiveSet(user.Role, user.Permissions)
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func effectiveSet(role string, explicit []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range RoleDefaults[role] {
		set[p] = struct{}{}
	}
	for _, p := range explicit {
		set[p] = struct{}{}
	}
	return set
}

// CanAccessPage reports whether user may open pageKey. Inactive users only
// get pages without requirements.
func CanAccessPage(user models.AdminUser, pageKey string) bool {
	return Allowed(user.Role, user.Permissions, user.IsActive, pageKey)
}

// Allowed is CanAccessPage over the raw fields, for callers that hold token
// claims rather than a stored user.
func Allowed(role string, explicit []string, active bool, pageKey string) bool {
	required := PageRequirements[pageKey]
	if len(required) == 0 {
		return true
	}
	if !active {
		return false
	}
	have := effectiveSet(role, explicit)
	for _, p := range required {
		if _, ok := have[p]; ok {
			return true
		}
	}
	return false
}
