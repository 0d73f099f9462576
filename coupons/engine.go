// Package coupons validates, prices and redeems discount coupons, and
// carries the back-office coupon CRUD.
package coupons

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"nongxian/apperr"
	"nongxian/metrics"
	"nongxian/models"
	"nongxian/store"
	"nongxian/utils"
)

// Validation messages, in the order the checks run.
const (
	ErrNotFound         = "優惠券不存在"
	ErrInactive         = "優惠券已停用"
	ErrNotStarted       = "優惠券尚未生效"
	ErrExpired          = "優惠券已過期"
	ErrUsageLimit       = "優惠券使用次數已達上限"
	ErrUserLimit        = "您已使用過此優惠券"
	errMinimumAmountFmt = "訂單金額需滿 NT$ %d 才能使用此優惠券"
	ErrNoApplicable     = "此優惠券不適用於購物車中的商品"
	ErrExcludedProduct  = "購物車中包含不適用此優惠券的商品"
)

type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Error  string         `json:"error,omitempty"`
	Coupon *models.Coupon `json:"coupon"`
}

type ApplyResult struct {
	Success     bool           `json:"success"`
	Discount    int            `json:"discount"`
	FinalAmount int            `json:"finalAmount"`
	Coupon      *models.Coupon `json:"coupon,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type Service struct {
	coupons store.Repository[models.Coupon]
	usage   store.Repository[models.CouponUsage]
	now     func() time.Time
}

func NewService(coupons store.Repository[models.Coupon], usage store.Repository[models.CouponUsage]) *Service {
	return &Service{coupons: coupons, usage: usage, now: time.Now}
}

// WithClock replaces the time source used for validity windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NormalizeCode trims and upper-cases a code as typed by a shopper.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate runs the coupon checks in order and reports the first failure.
// A failed check is a result, not an error; errors mean the store failed.
func (s *Service) Validate(ctx context.Context, code string, items []models.CartItem, subtotal int, userID string) (ValidationResult, error) {
	res, err := s.validate(ctx, code, items, subtotal, userID)
	if err == nil {
		metrics.RecordCouponValidation(res.Valid)
	}
	return res, err
}

func (s *Service) validate(ctx context.Context, code string, items []models.CartItem, subtotal int, userID string) (ValidationResult, error) {
	code = NormalizeCode(code)
	if code == "" {
		return ValidationResult{Error: ErrNotFound}, nil
	}

	coupon, err := s.coupons.GetByID(ctx, code)
	if apperr.Is(err, apperr.NotFound) {
		return ValidationResult{Error: ErrNotFound}, nil
	}
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load coupon %s: %w", code, err)
	}
	coupon.Code = code

	if !coupon.IsActive {
		return ValidationResult{Error: ErrInactive}, nil
	}
	now := s.now()
	if now.Before(coupon.ValidFrom) {
		return ValidationResult{Error: ErrNotStarted}, nil
	}
	if now.After(coupon.ValidTo) {
		return ValidationResult{Error: ErrExpired}, nil
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return ValidationResult{Error: ErrUsageLimit}, nil
	}

	if perUser := coupon.UserRestrictions.MaxUsagePerUser; perUser > 0 && userID != "" {
		used, err := s.usedBy(ctx, code, userID)
		if err != nil {
			return ValidationResult{}, err
		}
		if used >= perUser {
			return ValidationResult{Error: ErrUserLimit}, nil
		}
	}

	if subtotal < coupon.MinimumAmount {
		return ValidationResult{Error: fmt.Sprintf(errMinimumAmountFmt, coupon.MinimumAmount)}, nil
	}

	if len(coupon.ApplicableCategories) > 0 {
		allowed := utils.ToSet(coupon.ApplicableCategories)
		categories := make([]string, 0, len(items))
		for _, it := range items {
			categories = append(categories, it.Category)
		}
		if !utils.ContainsAny(allowed, categories) {
			return ValidationResult{Error: ErrNoApplicable}, nil
		}
	}

	if len(coupon.ExcludedProducts) > 0 {
		excluded := utils.ToSet(coupon.ExcludedProducts)
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		if utils.ContainsAny(excluded, ids) {
			return ValidationResult{Error: ErrExcludedProduct}, nil
		}
	}

	return ValidationResult{Valid: true, Coupon: &coupon}, nil
}

// usedBy counts the redemptions of code by userID. The usage log is
// filtered by code in the store and by user here.
func (s *Service) usedBy(ctx context.Context, code, userID string) (int, error) {
	logs, err := s.usage.GetWhere(ctx, "couponCode", store.Eq, code)
	if err != nil {
		return 0, fmt.Errorf("load usage of %s: %w", code, err)
	}
	n := 0
	for _, u := range logs {
		if u.UserID == userID {
			n++
		}
	}
	return n, nil
}

// CalculateDiscount prices a coupon against a cart. When the coupon is
// limited to categories only matching lines count towards the base.
func CalculateDiscount(coupon models.Coupon, items []models.CartItem, subtotal int) int {
	base := subtotal
	if len(coupon.ApplicableCategories) > 0 {
		allowed := utils.ToSet(coupon.ApplicableCategories)
		base = 0
		for _, it := range items {
			if _, ok := allowed[it.Category]; ok {
				base += it.LineTotal()
			}
		}
	}

	var discount float64
	switch coupon.Type {
	case models.CouponFixed:
		discount = math.Min(coupon.Value, float64(base))
	case models.CouponPercentage:
		discount = float64(base) * coupon.Value / 100
		if coupon.MaximumDiscount != nil {
			discount = math.Min(discount, float64(*coupon.MaximumDiscount))
		}
	}

	discount = math.Floor(discount)
	if discount < 0 {
		return 0
	}
	return int(discount)
}

// Apply validates and prices a coupon for the cart without recording use.
func (s *Service) Apply(ctx context.Context, code string, items []models.CartItem, subtotal int, userID string) (ApplyResult, error) {
	res, err := s.Validate(ctx, code, items, subtotal, userID)
	if err != nil {
		return ApplyResult{}, err
	}
	if !res.Valid {
		return ApplyResult{Success: false, Error: res.Error, FinalAmount: subtotal}, nil
	}

	discount := CalculateDiscount(*res.Coupon, items, subtotal)
	final := subtotal - discount
	if final < 0 {
		final = 0
	}
	return ApplyResult{
		Success:     true,
		Discount:    discount,
		FinalAmount: final,
		Coupon:      res.Coupon,
	}, nil
}

// Use records a redemption of code for an order: the usage log entry first,
// then the usage counter, bounded by the coupon's limit. The two writes are
// independent; a failed increment leaves the log entry in place.
func (s *Service) Use(ctx context.Context, code, userID, orderID string) error {
	code = NormalizeCode(code)
	coupon, err := s.coupons.GetByID(ctx, code)
	if err != nil {
		return fmt.Errorf("load coupon %s: %w", code, err)
	}

	usage := models.CouponUsage{
		CouponCode: code,
		UserID:     userID,
		OrderID:    orderID,
		UsedAt:     s.now(),
	}
	if _, err := s.usage.Add(ctx, usage); err != nil {
		return fmt.Errorf("log usage of %s: %w", code, err)
	}

	if err := s.coupons.Increment(ctx, code, "usedCount", coupon.UsageLimit); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return apperr.ConflictError(ErrUsageLimit, err)
		}
		return fmt.Errorf("increment usage of %s: %w", code, err)
	}
	return nil
}
