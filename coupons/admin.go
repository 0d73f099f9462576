package coupons

import (
	"context"
	"regexp"
	"sort"

	"nongxian/apperr"
	"nongxian/models"
	"nongxian/store"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

func checkCoupon(c models.Coupon) error {
	switch {
	case !codePattern.MatchString(c.Code):
		return apperr.ValidationError("優惠券代碼只能包含大寫英文、數字與底線")
	case c.Name == "":
		return apperr.ValidationError("請輸入優惠券名稱")
	case c.Type != models.CouponFixed && c.Type != models.CouponPercentage:
		return apperr.ValidationError("優惠券類型錯誤")
	case c.Value <= 0:
		return apperr.ValidationError("折扣值必須大於 0")
	case c.Type == models.CouponPercentage && c.Value > 100:
		return apperr.ValidationError("折扣百分比不可超過 100")
	case c.MinimumAmount < 0:
		return apperr.ValidationError("最低消費金額不可為負數")
	case c.MaximumDiscount != nil && *c.MaximumDiscount <= 0:
		return apperr.ValidationError("最高折抵金額必須大於 0")
	case c.UsageLimit != nil && *c.UsageLimit <= 0:
		return apperr.ValidationError("使用次數上限必須大於 0")
	case c.ValidFrom.IsZero() || c.ValidTo.IsZero():
		return apperr.ValidationError("請設定優惠券有效期間")
	case c.ValidFrom.After(c.ValidTo):
		return apperr.ValidationError("生效日期不可晚於到期日期")
	}
	return nil
}

// Create stores a new coupon under its normalized code.
func (s *Service) Create(ctx context.Context, c models.Coupon) (models.Coupon, error) {
	c.Code = NormalizeCode(c.Code)
	if c.Type != models.CouponPercentage {
		c.MaximumDiscount = nil
	}
	if err := checkCoupon(c); err != nil {
		return models.Coupon{}, err
	}
	if c.ApplicableCategories == nil {
		c.ApplicableCategories = []string{}
	}
	if c.ExcludedProducts == nil {
		c.ExcludedProducts = []string{}
	}

	now := s.now()
	c.ID = c.Code
	c.UsedCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.coupons.AddWithID(ctx, c.Code, c); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return models.Coupon{}, apperr.ConflictError("優惠券代碼已存在", err)
		}
		return models.Coupon{}, err
	}
	return c, nil
}

// List returns every coupon, newest first.
func (s *Service) List(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.GetAll(ctx, "createdAt", store.Desc, 0)
}

func (s *Service) Get(ctx context.Context, code string) (models.Coupon, error) {
	c, err := s.coupons.GetByID(ctx, NormalizeCode(code))
	if apperr.Is(err, apperr.NotFound) {
		return c, apperr.NotFoundError(ErrNotFound, err)
	}
	return c, err
}

// Update replaces the editable fields of a coupon. The code and the usage
// counter are kept.
func (s *Service) Update(ctx context.Context, code string, c models.Coupon) (models.Coupon, error) {
	current, err := s.Get(ctx, code)
	if err != nil {
		return models.Coupon{}, err
	}

	c.Code = current.Code
	if c.Type != models.CouponPercentage {
		c.MaximumDiscount = nil
	}
	if err := checkCoupon(c); err != nil {
		return models.Coupon{}, err
	}
	if c.ApplicableCategories == nil {
		c.ApplicableCategories = []string{}
	}
	if c.ExcludedProducts == nil {
		c.ExcludedProducts = []string{}
	}

	now := s.now()
	fields := map[string]any{
		"name":                 c.Name,
		"description":          c.Description,
		"type":                 c.Type,
		"value":                c.Value,
		"minimumAmount":        c.MinimumAmount,
		"maximumDiscount":      c.MaximumDiscount,
		"usageLimit":           c.UsageLimit,
		"validFrom":            c.ValidFrom,
		"validTo":              c.ValidTo,
		"isActive":             c.IsActive,
		"applicableCategories": c.ApplicableCategories,
		"excludedProducts":     c.ExcludedProducts,
		"userRestrictions":     c.UserRestrictions,
		"updatedAt":            now,
	}
	if err := s.coupons.Update(ctx, current.Code, fields); err != nil {
		return models.Coupon{}, err
	}
	return s.Get(ctx, current.Code)
}

func (s *Service) SetActive(ctx context.Context, code string, active bool) error {
	code = NormalizeCode(code)
	err := s.coupons.Update(ctx, code, map[string]any{"isActive": active, "updatedAt": s.now()})
	if apperr.Is(err, apperr.NotFound) {
		return apperr.NotFoundError(ErrNotFound, err)
	}
	return err
}

// Delete removes the coupon; its usage log stays.
func (s *Service) Delete(ctx context.Context, code string) error {
	err := s.coupons.Delete(ctx, NormalizeCode(code))
	if apperr.Is(err, apperr.NotFound) {
		return apperr.NotFoundError(ErrNotFound, err)
	}
	return err
}

// Usage lists the redemptions of a coupon, most recent first.
func (s *Service) Usage(ctx context.Context, code string) ([]models.CouponUsage, error) {
	logs, err := s.usage.GetWhere(ctx, "couponCode", store.Eq, NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	sortUsage(logs)
	return logs, nil
}

func sortUsage(logs []models.CouponUsage) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].UsedAt.After(logs[j].UsedAt)
	})
}
