package models

import "time"

const (
	CouponFixed      = "fixed"
	CouponPercentage = "percentage"
)

type UserRestrictions struct {
	NewUsersOnly    bool `json:"newUsersOnly" bson:"newUsersOnly"`
	MaxUsagePerUser int  `json:"maxUsagePerUser" bson:"maxUsagePerUser"`
}

// Coupon is keyed by its code.
type Coupon struct {
	ID                   string           `json:"-" bson:"_id,omitempty"`
	Code                 string           `json:"code" bson:"code"`
	Name                 string           `json:"name" bson:"name"`
	Description          string           `json:"description,omitempty" bson:"description,omitempty"`
	Type                 string           `json:"type" bson:"type"`
	Value                float64          `json:"value" bson:"value"`
	MinimumAmount        int              `json:"minimumAmount" bson:"minimumAmount"`
	MaximumDiscount      *int             `json:"maximumDiscount" bson:"maximumDiscount"`
	UsageLimit           *int             `json:"usageLimit" bson:"usageLimit"`
	UsedCount            int              `json:"usedCount" bson:"usedCount"`
	ValidFrom            time.Time        `json:"validFrom" bson:"validFrom"`
	ValidTo              time.Time        `json:"validTo" bson:"validTo"`
	IsActive             bool             `json:"isActive" bson:"isActive"`
	ApplicableCategories []string         `json:"applicableCategories" bson:"applicableCategories"`
	ExcludedProducts     []string         `json:"excludedProducts" bson:"excludedProducts"`
	UserRestrictions     UserRestrictions `json:"userRestrictions" bson:"userRestrictions"`
	CreatedAt            time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// CouponUsage is one redemption, written when an order uses the coupon.
type CouponUsage struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	CouponCode string    `json:"couponCode" bson:"couponCode"`
	UserID     string    `json:"userId" bson:"userId"`
	OrderID    string    `json:"orderId" bson:"orderId"`
	UsedAt     time.Time `json:"usedAt" bson:"usedAt"`
}

// AppliedCoupon is the coupon snapshot stored on an order.
type AppliedCoupon struct {
	Code     string  `json:"code" bson:"code"`
	Name     string  `json:"name" bson:"name"`
	Type     string  `json:"type" bson:"type"`
	Value    float64 `json:"value" bson:"value"`
	Discount int     `json:"discount" bson:"discount"`
}
