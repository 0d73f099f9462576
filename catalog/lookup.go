// Package catalog serves the storefront reference data (products,
// categories, payment and delivery options) and its back-office editing.
// Every lookup falls back to the built-in defaults when the store has not
// been seeded.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"nongxian/apperr"
	"nongxian/db"
	"nongxian/defaults"
	"nongxian/models"
	"nongxian/store"
)

type Catalog struct {
	repos *db.Repos
}

func New(repos *db.Repos) *Catalog {
	return &Catalog{repos: repos}
}

// Logistics returns the stored logistics settings, or the defaults when the
// singleton is missing. Empty lists in a stored document fall back as well.
func (c *Catalog) Logistics(ctx context.Context) (models.LogisticsSettings, error) {
	s, err := c.repos.Logistics.GetByID(ctx, defaults.LogisticsSettingsID)
	if apperr.Is(err, apperr.NotFound) {
		return defaults.Logistics(time.Now()), nil
	}
	if err != nil {
		return models.LogisticsSettings{}, fmt.Errorf("load logistics settings: %w", err)
	}
	if len(s.Carriers) == 0 {
		s.Carriers = defaults.Carriers()
	}
	if len(s.DeliveryMethods) == 0 {
		s.DeliveryMethods = defaults.DeliveryMethods()
	}
	return s, nil
}

// DeliveryMethod finds an enabled delivery method by id.
func (c *Catalog) DeliveryMethod(ctx context.Context, id string) (models.DeliveryMethod, error) {
	s, err := c.Logistics(ctx)
	if err != nil {
		return models.DeliveryMethod{}, err
	}
	for _, m := range s.DeliveryMethods {
		if m.ID == id && m.Enabled {
			return m, nil
		}
	}
	return models.DeliveryMethod{}, apperr.ValidationError("請選擇有效的配送方式")
}

// EnabledDeliveryMethods lists the delivery methods a shopper can pick.
func (c *Catalog) EnabledDeliveryMethods(ctx context.Context) ([]models.DeliveryMethod, error) {
	s, err := c.Logistics(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.DeliveryMethod, 0, len(s.DeliveryMethods))
	for _, m := range s.DeliveryMethods {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out, nil
}

// AreaExtraFee is the surcharge of the delivery area containing city.
func (c *Catalog) AreaExtraFee(ctx context.Context, city string) (int, error) {
	s, err := c.Logistics(ctx)
	if err != nil {
		return 0, err
	}
	for _, a := range s.DeliveryAreas {
		for _, name := range a.Cities {
			if name == city {
				if !a.Available {
					return 0, apperr.ValidationError(fmt.Sprintf("%s 目前不提供配送", a.Name))
				}
				return a.ExtraFee, nil
			}
		}
	}
	return 0, nil
}

// Carrier resolves a carrier code from the logistics settings, then from
// the built-in table.
func (c *Catalog) Carrier(ctx context.Context, code string) (models.Carrier, error) {
	s, err := c.Logistics(ctx)
	if err != nil {
		return models.Carrier{}, err
	}
	for _, cr := range s.Carriers {
		if cr.Code == code {
			return cr, nil
		}
	}
	if cr, ok := defaults.Carrier(code); ok {
		return cr, nil
	}
	return models.Carrier{}, apperr.ValidationError("請選擇有效的物流業者")
}

// EnabledPaymentMethods lists enabled methods by sort order. An empty
// collection yields the built-in methods.
func (c *Catalog) EnabledPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	all, err := c.repos.PaymentMethods.GetAll(ctx, "sortOrder", store.Asc, 0)
	if err != nil {
		return nil, fmt.Errorf("load payment methods: %w", err)
	}
	if len(all) == 0 {
		all = defaults.PaymentMethods(time.Now())
	}
	out := make([]models.PaymentMethod, 0, len(all))
	for _, m := range all {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out, nil
}

// ActiveCategories lists categories by sort order.
func (c *Catalog) ActiveCategories(ctx context.Context) ([]models.Category, error) {
	all, err := c.repos.Categories.GetWhere(ctx, "isActive", store.Eq, true)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].SortOrder < all[j].SortOrder })
	return all, nil
}

// ActiveProducts lists products on sale, optionally within one category.
func (c *Catalog) ActiveProducts(ctx context.Context, category string) ([]models.Product, error) {
	var (
		all []models.Product
		err error
	)
	if category != "" {
		all, err = c.repos.Products.GetWhere(ctx, "category", store.Eq, category)
	} else {
		all, err = c.repos.Products.GetWhere(ctx, "isActive", store.Eq, true)
	}
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	out := all[:0]
	for _, p := range all {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// PriceItems rebuilds cart lines from the stored products. Only the id and
// quantity of each line come from the shopper.
func (c *Catalog) PriceItems(ctx context.Context, items []models.CartItem) ([]models.CartItem, error) {
	if len(items) == 0 {
		return nil, apperr.ValidationError("購物車是空的")
	}
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" || it.Quantity <= 0 {
			return nil, apperr.ValidationError("購物車商品資料錯誤")
		}
		p, err := c.repos.Products.GetByID(ctx, it.ID)
		if apperr.Is(err, apperr.NotFound) || (err == nil && !p.IsActive) {
			return nil, apperr.ValidationError(fmt.Sprintf("商品 %s 已下架或不存在", it.ID))
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", it.ID, err)
		}
		out = append(out, models.CartItem{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Quantity: it.Quantity,
			Price:    p.Price,
			Image:    p.Image,
			Farm:     p.Farm,
			Location: p.Location,
		})
	}
	return out, nil
}
