package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"time"

	"nongxian/apperr"
	"nongxian/config"
	"nongxian/defaults"
	"nongxian/metrics"
	"nongxian/models"
	"nongxian/store"
)

// ErrDisabled is returned when the notification is switched off in the
// email settings.
var ErrDisabled = errors.New("notification disabled")

var taipei = time.FixedZone("Asia/Taipei", 8*60*60)

// Notifier renders and sends the order emails.
type Notifier struct {
	sender    Sender
	templates *Templates
	settings  store.Repository[models.EmailSettings]
	cfg       config.MailConfig
	storeURL  string
}

func NewNotifier(sender Sender, templates *Templates, settings store.Repository[models.EmailSettings], cfg config.MailConfig, storeURL string) *Notifier {
	return &Notifier{sender: sender, templates: templates, settings: settings, cfg: cfg, storeURL: storeURL}
}

// Settings loads the stored email settings, or the configured defaults.
func (n *Notifier) Settings(ctx context.Context) models.EmailSettings {
	fallback := defaults.EmailSettings(time.Now(), n.cfg.RelayURL, n.cfg.FromEmail, n.cfg.FromName, n.cfg.AdminEmail)
	if n.settings == nil {
		return fallback
	}
	s, err := n.settings.GetByID(ctx, defaults.EmailSettingsID)
	if err != nil {
		if !apperr.Is(err, apperr.NotFound) {
			log.Printf("load email settings: %v", err)
		}
		return fallback
	}
	if s.SenderEmail == "" {
		s.SenderEmail = fallback.SenderEmail
	}
	if s.SenderName == "" {
		s.SenderName = fallback.SenderName
	}
	if s.AdminEmail == "" {
		s.AdminEmail = fallback.AdminEmail
	}
	return s
}

// OrderConfirmation mails the customer a summary of the new order.
func (n *Notifier) OrderConfirmation(ctx context.Context, order models.Order) (*SendResult, error) {
	s := n.Settings(ctx)
	if !s.OrderConfirmation {
		return nil, ErrDisabled
	}
	return n.send(ctx, s, defaults.TemplateOrderConfirmation, order.CustomerEmail, OrderVars(order, n.storeURL))
}

// AdminNewOrder tells the shop admin an order came in.
func (n *Notifier) AdminNewOrder(ctx context.Context, order models.Order) (*SendResult, error) {
	s := n.Settings(ctx)
	if !s.AdminNotification {
		return nil, ErrDisabled
	}
	if s.AdminEmail == "" {
		return nil, apperr.ValidationError("未設定管理員信箱")
	}
	return n.send(ctx, s, defaults.TemplateAdminNewOrder, s.AdminEmail, OrderVars(order, n.storeURL))
}

// ShippingNotice mails the customer the tracking details of a shipped order.
func (n *Notifier) ShippingNotice(ctx context.Context, order models.Order) (*SendResult, error) {
	s := n.Settings(ctx)
	if !s.ShippingNotice {
		return nil, ErrDisabled
	}
	if order.ShippingInfo == nil {
		return nil, apperr.ValidationError("訂單尚無出貨資訊")
	}
	return n.send(ctx, s, defaults.TemplateShippingNotice, order.CustomerEmail, ShippingVars(order))
}

func (n *Notifier) send(ctx context.Context, s models.EmailSettings, templateID, to string, vars map[string]string) (*SendResult, error) {
	tpl, err := n.templates.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	r := RenderTemplate(tpl, vars)
	res, err := n.sender.Send(ctx, Message{
		To:          Recipients{to},
		Subject:     r.Subject,
		HTMLContent: r.HTML,
		TextContent: r.Text,
		From:        &Address{Email: s.SenderEmail, Name: s.SenderName},
	})
	if err != nil {
		metrics.RecordEmailSend(templateID, models.NotificationFailed)
		return nil, fmt.Errorf("send %s to %s: %w", templateID, to, err)
	}
	metrics.RecordEmailSend(templateID, models.NotificationSent)
	return res, nil
}

// OrderVars are the placeholders of the order templates.
func OrderVars(o models.Order, storeURL string) map[string]string {
	var rows, lines strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&rows, `<tr><td style="padding:4px 0">%s</td><td>x %d</td><td style="text-align:right">NT$ %d</td></tr>`,
			html.EscapeString(it.Name), it.Quantity, it.LineTotal())
		fmt.Fprintf(&lines, "- %s x %d  NT$ %d\n", it.Name, it.Quantity, it.LineTotal())
	}

	delivery := o.DeliveryMethod
	if m, ok := defaults.DeliveryMethod(o.DeliveryMethod); ok {
		delivery = m.Name
	}

	return map[string]string{
		"orderId":         o.ID,
		"orderDate":       o.CreatedAt.In(taipei).Format("2006/01/02 15:04"),
		"customerName":    o.CustomerName,
		"customerEmail":   o.CustomerEmail,
		"customerPhone":   o.CustomerPhone,
		"itemsHtml":       rows.String(),
		"itemsText":       strings.TrimRight(lines.String(), "\n"),
		"subtotal":        strconv.Itoa(o.Subtotal),
		"shippingFee":     strconv.Itoa(o.ShippingFee),
		"discount":        strconv.Itoa(o.DiscountAmount),
		"total":           strconv.Itoa(o.Total),
		"paymentMethod":   defaults.PaymentMethodName(o.PaymentMethod),
		"paymentStatus":   o.PaymentStatus,
		"deliveryMethod":  delivery,
		"shippingAddress": FormatAddress(o.ShippingAddress),
		"notes":           o.Notes,
		"storeUrl":        storeURL,
	}
}

// ShippingVars are the placeholders of the shipping notice.
func ShippingVars(o models.Order) map[string]string {
	vars := map[string]string{
		"orderId":           o.ID,
		"customerName":      o.CustomerName,
		"estimatedDelivery": "依物流公司配送時間為準",
	}
	if info := o.ShippingInfo; info != nil {
		vars["carrierName"] = info.CarrierName
		vars["trackingNumber"] = info.TrackingNumber
		vars["trackingUrl"] = info.TrackingURL
		vars["shippingNotes"] = info.Notes
		if info.EstimatedDelivery != nil {
			vars["estimatedDelivery"] = info.EstimatedDelivery.In(taipei).Format("2006/01/02")
		}
	}
	return vars
}

func FormatAddress(a models.ShippingAddress) string {
	return strings.TrimSpace(a.ZipCode + " " + a.City + a.District + a.Address)
}
