package defaults

import (
	"time"

	"nongxian/models"
)

func intPtr(v int) *int { return &v }

// Coupons are valid for one year from now.
func Coupons(now time.Time) []models.Coupon {
	validTo := now.AddDate(1, 0, 0)
	return []models.Coupon{
		{
			Code: "WELCOME100", Name: "新會員首購禮", Description: "首次購物滿 500 元折 100 元",
			Type: models.CouponFixed, Value: 100, MinimumAmount: 500,
			ValidFrom: now, ValidTo: validTo, IsActive: true,
			ApplicableCategories: []string{}, ExcludedProducts: []string{},
			UserRestrictions: models.UserRestrictions{NewUsersOnly: true, MaxUsagePerUser: 1},
			CreatedAt: now, UpdatedAt: now,
		},
		{
			Code: "FRUIT20", Name: "水果季八折", Description: "水果類商品打八折，最高折抵 300 元",
			Type: models.CouponPercentage, Value: 20, MaximumDiscount: intPtr(300),
			ValidFrom: now, ValidTo: validTo, IsActive: true,
			ApplicableCategories: []string{CategoryFruit}, ExcludedProducts: []string{},
			UserRestrictions: models.UserRestrictions{MaxUsagePerUser: 3},
			CreatedAt: now, UpdatedAt: now,
		},
		{
			Code: "ORGANIC10", Name: "有機生活九折", Description: "全館滿 1000 元打九折，限量 100 張",
			Type: models.CouponPercentage, Value: 10, MinimumAmount: 1000, UsageLimit: intPtr(100),
			ValidFrom: now, ValidTo: validTo, IsActive: true,
			ApplicableCategories: []string{}, ExcludedProducts: []string{"p-mango"},
			CreatedAt: now, UpdatedAt: now,
		},
	}
}
