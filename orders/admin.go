package orders

import (
	"context"
	"sort"

	"nongxian/apperr"
	"nongxian/models"
	"nongxian/store"
)

// List returns orders newest first, optionally only those with status.
func (s *Service) List(ctx context.Context, status string, limit int) ([]models.Order, error) {
	if status == "" {
		return s.orders.GetAll(ctx, "createdAt", store.Desc, limit)
	}
	if !models.IsOrderStatus(status) {
		return nil, apperr.ValidationError("訂單狀態錯誤")
	}
	list, err := s.orders.GetWhere(ctx, "status", store.Eq, status)
	if err != nil {
		return nil, err
	}
	return newestFirst(list, limit), nil
}

// ListByUser returns the orders placed by one user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return []models.Order{}, nil
	}
	list, err := s.orders.GetWhere(ctx, "userId", store.Eq, userID)
	if err != nil {
		return nil, err
	}
	return newestFirst(list, 0), nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if apperr.Is(err, apperr.NotFound) {
		return o, apperr.NotFoundError("找不到訂單", err)
	}
	return o, err
}

// UpdateStatus sets any of the known statuses. Transitions are not
// restricted, and shipping info is left alone.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	if !models.IsOrderStatus(status) {
		return apperr.ValidationError("訂單狀態錯誤")
	}
	return s.update(ctx, id, map[string]any{"status": status, "updatedAt": s.now()})
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	if !models.IsPaymentStatus(status) {
		return apperr.ValidationError("付款狀態錯誤")
	}
	return s.update(ctx, id, map[string]any{"paymentStatus": status, "updatedAt": s.now()})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.orders.Delete(ctx, id)
	if apperr.Is(err, apperr.NotFound) {
		return apperr.NotFoundError("找不到訂單", err)
	}
	return err
}

func (s *Service) update(ctx context.Context, id string, fields map[string]any) error {
	err := s.orders.Update(ctx, id, fields)
	if apperr.Is(err, apperr.NotFound) {
		return apperr.NotFoundError("找不到訂單", err)
	}
	return err
}

func newestFirst(list []models.Order, limit int) []models.Order {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}
