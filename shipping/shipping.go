// Package shipping records shipments on orders, notifies customers and
// prints shipping labels.
package shipping

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"nongxian/apperr"
	"nongxian/catalog"
	"nongxian/mailer"
	"nongxian/models"
	"nongxian/mq"
	"nongxian/store"
)

// Notifier sends the shipping notice.
type Notifier interface {
	ShippingNotice(ctx context.Context, order models.Order) (*mailer.SendResult, error)
}

// Form is what the back office submits when an order ships.
// EstimatedDelivery is a date (2006-01-02) or an RFC 3339 time.
type Form struct {
	Carrier           string `json:"carrier"`
	TrackingNumber    string `json:"trackingNumber"`
	EstimatedDelivery string `json:"estimatedDelivery"`
	Notes             string `json:"notes"`
}

type Result struct {
	Order     models.Order `json:"order"`
	EmailSent bool         `json:"emailSent"`
}

type Service struct {
	orders   store.Repository[models.Order]
	catalog  *catalog.Catalog
	notifier Notifier
	events   mq.Emitter
	now      func() time.Time
	font     string
}

func NewService(orders store.Repository[models.Order], cat *catalog.Catalog, notifier Notifier, events mq.Emitter) *Service {
	if events == nil {
		events = mq.Nop{}
	}
	return &Service{orders: orders, catalog: cat, notifier: notifier, events: events, now: time.Now}
}

// WithClock replaces the time source used for the shipped date.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithLabelFont sets the TTF font used on labels.
func (s *Service) WithLabelFont(path string) *Service {
	s.font = path
	return s
}

// Eligible reports whether the back office should offer shipping for the
// order. Ship itself does not check it.
func Eligible(o models.Order) bool {
	return o.Status == models.OrderProcessing || o.Status == models.OrderShipped
}

// TrackingURL substitutes the tracking number into a carrier template that
// uses either {trackingNumber} or {}.
func TrackingURL(template, number string) string {
	url := strings.ReplaceAll(template, "{trackingNumber}", number)
	return strings.ReplaceAll(url, "{}", number)
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.ValidationError("預計送達日期格式錯誤")
}

// Ship marks the order shipped. The first shipment's info is kept on later
// calls; the notification can be sent again. With notify false no email is
// attempted and the notice is recorded as not sent. Status, shipping info
// and notifications are written in one update.
func (s *Service) Ship(ctx context.Context, orderID string, f Form, notify bool) (Result, error) {
	f.Carrier = strings.TrimSpace(f.Carrier)
	f.TrackingNumber = strings.TrimSpace(f.TrackingNumber)
	if f.Carrier == "" {
		return Result{}, apperr.ValidationError("請選擇物流業者")
	}
	if f.TrackingNumber == "" {
		return Result{}, apperr.ValidationError("請輸入貨運單號")
	}
	eta, err := parseDate(f.EstimatedDelivery)
	if err != nil {
		return Result{}, err
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if apperr.Is(err, apperr.NotFound) {
		return Result{}, apperr.NotFoundError("找不到訂單", err)
	}
	if err != nil {
		return Result{}, err
	}

	now := s.now()
	if order.ShippingInfo == nil {
		carrier, err := s.catalog.Carrier(ctx, f.Carrier)
		if err != nil {
			return Result{}, err
		}
		order.ShippingInfo = &models.ShippingInfo{
			Carrier:           carrier.Code,
			CarrierName:       carrier.Name,
			TrackingNumber:    f.TrackingNumber,
			TrackingURL:       TrackingURL(carrier.TrackingURL, f.TrackingNumber),
			ShippedDate:       now,
			EstimatedDelivery: eta,
			Notes:             strings.TrimSpace(f.Notes),
		}
	}
	order.Status = models.OrderShipped
	if order.EmailNotifications == nil {
		order.EmailNotifications = map[string]models.EmailNotification{}
	}

	n := models.EmailNotification{Status: models.NotificationNotSent}
	if notify && s.notifier != nil {
		_, err := s.notifier.ShippingNotice(ctx, order)
		switch {
		case err == nil:
			sentAt := s.now()
			n = models.EmailNotification{Sent: true, SentAt: &sentAt, Status: models.NotificationSent}
		case errors.Is(err, mailer.ErrDisabled):
		default:
			log.Printf("order %s: shipping notice failed: %v", order.ID, err)
			n = models.EmailNotification{Status: models.NotificationFailed, Error: err.Error()}
		}
	}
	order.EmailNotifications[models.NotifyShippingNotification] = n
	order.UpdatedAt = now

	err = s.orders.Update(ctx, order.ID, map[string]any{
		"status":             order.Status,
		"shippingInfo":       order.ShippingInfo,
		"emailNotifications": order.EmailNotifications,
		"updatedAt":          order.UpdatedAt,
	})
	if err != nil {
		return Result{}, apperr.InternalError("出貨資料更新失敗", err)
	}
	log.Printf("order %s shipped via %s (%s)", order.ID, order.ShippingInfo.Carrier, order.ShippingInfo.TrackingNumber)

	s.events.Emit(ctx, mq.Event{
		Type:     mq.OrderShipped,
		OrderID:  order.ID,
		Status:   order.Status,
		Carrier:  order.ShippingInfo.Carrier,
		Tracking: order.ShippingInfo.TrackingNumber,
	})
	return Result{Order: order, EmailSent: n.Sent}, nil
}
