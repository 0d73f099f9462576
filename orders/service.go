package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"nongxian/apperr"
	"nongxian/catalog"
	"nongxian/coupons"
	"nongxian/defaults"
	"nongxian/mailer"
	"nongxian/metrics"
	"nongxian/models"
	"nongxian/mq"
	"nongxian/store"
)

// Notifier sends the emails of a new order.
type Notifier interface {
	OrderConfirmation(ctx context.Context, order models.Order) (*mailer.SendResult, error)
	AdminNewOrder(ctx context.Context, order models.Order) (*mailer.SendResult, error)
}

type Service struct {
	orders   store.Repository[models.Order]
	catalog  *catalog.Catalog
	coupons  *coupons.Service
	notifier Notifier
	events   mq.Emitter
	now      func() time.Time
}

func NewService(orders store.Repository[models.Order], cat *catalog.Catalog, cps *coupons.Service, notifier Notifier, events mq.Emitter) *Service {
	if events == nil {
		events = mq.Nop{}
	}
	return &Service{orders: orders, catalog: cat, coupons: cps, notifier: notifier, events: events, now: time.Now}
}

// WithClock replaces the time source used for ids and timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submission is everything the storefront sends when the shopper confirms.
type Submission struct {
	UserID     string            `json:"userId"`
	Shipping   ShippingForm      `json:"shipping"`
	Payment    PaymentForm       `json:"payment"`
	Items      []models.CartItem `json:"items"`
	CouponCode string            `json:"couponCode"`
}

type SubmitResult struct {
	Success   bool         `json:"success"`
	OrderID   string       `json:"orderId"`
	Order     models.Order `json:"order"`
	EmailSent bool         `json:"emailSent"`
}

// ShippingFee is the method's fee, waived at or above its free-shipping
// threshold.
func ShippingFee(m models.DeliveryMethod, subtotal int) int {
	if m.FreeShippingThreshold > 0 && subtotal >= m.FreeShippingThreshold {
		return 0
	}
	return m.Fee
}

// PaymentStatusFor marks card payments paid at checkout; everything else
// waits for payment.
func PaymentStatusFor(method string) string {
	if method == defaults.PaymentCreditCard {
		return models.PaymentPaid
	}
	return models.PaymentPending
}

// CouponHolder is who a redemption counts against for per-user caps: the
// signed-in user, or the checkout email for guests.
func CouponHolder(userID, email string) string {
	if userID != "" {
		return userID
	}
	return "guest:" + strings.ToLower(strings.TrimSpace(email))
}

// Quote runs the wizard validation and prices the order without saving it.
func (s *Service) Quote(ctx context.Context, sub Submission) (models.Order, error) {
	deliveries, err := s.catalog.EnabledDeliveryMethods(ctx)
	if err != nil {
		return models.Order{}, err
	}
	payments, err := s.catalog.EnabledPaymentMethods(ctx)
	if err != nil {
		return models.Order{}, err
	}

	co := NewCheckout(deliveryIDs(deliveries), paymentIDs(payments))
	if err := co.SetShipping(sub.Shipping); err != nil {
		return models.Order{}, err
	}
	if err := co.SetPayment(sub.Payment); err != nil {
		return models.Order{}, err
	}
	form := *co.Shipping()

	items, err := s.catalog.PriceItems(ctx, sub.Items)
	if err != nil {
		return models.Order{}, err
	}
	subtotal := models.Subtotal(items)

	method, err := s.catalog.DeliveryMethod(ctx, form.DeliveryMethod)
	if err != nil {
		return models.Order{}, err
	}
	extra, err := s.catalog.AreaExtraFee(ctx, form.City)
	if err != nil {
		return models.Order{}, err
	}
	fee := ShippingFee(method, subtotal) + extra

	var (
		discount int
		applied  *models.AppliedCoupon
	)
	if code := coupons.NormalizeCode(sub.CouponCode); code != "" {
		res, err := s.coupons.Apply(ctx, code, items, subtotal, CouponHolder(sub.UserID, form.Email))
		if err != nil {
			return models.Order{}, err
		}
		if !res.Success {
			return models.Order{}, apperr.ValidationError(res.Error)
		}
		discount = res.Discount
		applied = &models.AppliedCoupon{
			Code:     res.Coupon.Code,
			Name:     res.Coupon.Name,
			Type:     res.Coupon.Type,
			Value:    res.Coupon.Value,
			Discount: res.Discount,
		}
	}

	total := subtotal + fee - discount
	if total < 0 {
		total = 0
	}

	now := s.now()
	return models.Order{
		UserID:          sub.UserID,
		CustomerName:    form.Name,
		CustomerEmail:   form.Email,
		CustomerPhone:   form.Phone,
		Items:           items,
		Subtotal:        subtotal,
		ShippingFee:     fee,
		DiscountAmount:  discount,
		AppliedCoupon:   applied,
		Total:           total,
		ShippingAddress: form.ShippingAddress(),
		DeliveryMethod:  form.DeliveryMethod,
		PaymentMethod:   sub.Payment.PaymentMethod,
		PaymentStatus:   PaymentStatusFor(sub.Payment.PaymentMethod),
		Status:          models.OrderPending,
		Notes:           form.Notes,
		EmailNotifications: map[string]models.EmailNotification{
			models.NotifyOrderConfirmation: {Status: models.NotificationNotSent},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Submit places the order. Only validation and the order write can fail it;
// coupon redemption, emails and the event are best effort.
func (s *Service) Submit(ctx context.Context, sub Submission) (result SubmitResult, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.RecordCheckoutDuration(status, time.Since(start).Seconds())
	}()

	order, err := s.Quote(ctx, sub)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.persist(ctx, &order); err != nil {
		return SubmitResult{}, err
	}
	log.Printf("order %s placed: total %d, payment %s", order.ID, order.Total, order.PaymentMethod)

	if order.AppliedCoupon != nil {
		if err := s.coupons.Use(ctx, order.AppliedCoupon.Code, CouponHolder(order.UserID, order.CustomerEmail), order.ID); err != nil {
			log.Printf("order %s: recording coupon %s failed: %v", order.ID, order.AppliedCoupon.Code, err)
		}
	}

	emailSent := s.notifyPlaced(ctx, &order)

	s.events.Emit(ctx, mq.Event{
		Type:    mq.OrderCreated,
		OrderID: order.ID,
		Status:  order.Status,
		Total:   order.Total,
	})

	return SubmitResult{Success: true, OrderID: order.ID, Order: order, EmailSent: emailSent}, nil
}

// persist stores the order under ORD<unix-millis>. Orders placed in the
// same millisecond take the next free one.
func (s *Service) persist(ctx context.Context, order *models.Order) error {
	base := order.CreatedAt.UnixMilli()
	var err error
	for i := int64(0); i < 5; i++ {
		order.ID = fmt.Sprintf("ORD%d", base+i)
		err = s.orders.AddWithID(ctx, order.ID, *order)
		if !apperr.Is(err, apperr.Conflict) {
			break
		}
	}
	if err != nil {
		return apperr.InternalError("訂單建立失敗，請稍後再試", err)
	}
	return nil
}

// notifyPlaced sends the customer confirmation and the admin notice, and
// records the confirmation outcome on the order.
func (s *Service) notifyPlaced(ctx context.Context, order *models.Order) bool {
	if s.notifier == nil {
		return false
	}

	n := models.EmailNotification{Status: models.NotificationNotSent}
	_, err := s.notifier.OrderConfirmation(ctx, *order)
	switch {
	case err == nil:
		sentAt := s.now()
		n = models.EmailNotification{Sent: true, SentAt: &sentAt, Status: models.NotificationSent}
	case errors.Is(err, mailer.ErrDisabled):
	default:
		log.Printf("order %s: confirmation email failed: %v", order.ID, err)
		n = models.EmailNotification{Status: models.NotificationFailed, Error: err.Error()}
	}

	if _, err := s.notifier.AdminNewOrder(ctx, *order); err != nil && !errors.Is(err, mailer.ErrDisabled) {
		log.Printf("order %s: admin notification failed: %v", order.ID, err)
	}

	order.EmailNotifications[models.NotifyOrderConfirmation] = n
	order.UpdatedAt = s.now()
	err = s.orders.Update(ctx, order.ID, map[string]any{
		"emailNotifications." + models.NotifyOrderConfirmation: n,
		"updatedAt": order.UpdatedAt,
	})
	if err != nil {
		log.Printf("order %s: saving email status failed: %v", order.ID, err)
	}
	return n.Sent
}

func deliveryIDs(methods []models.DeliveryMethod) []string {
	ids := make([]string, 0, len(methods))
	for _, m := range methods {
		ids = append(ids, m.ID)
	}
	return ids
}

func paymentIDs(methods []models.PaymentMethod) []string {
	ids := make([]string, 0, len(methods))
	for _, m := range methods {
		ids = append(ids, m.ID)
	}
	return ids
}
