package mailer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nongxian/apperr"
	"nongxian/config"
	"nongxian/defaults"
	"nongxian/mailer"
	"nongxian/models"
	"nongxian/store"
)

func TestRecipients_StringOrList(t *testing.T) {
	var m mailer.Message
	require.NoError(t, json.Unmarshal([]byte(`{"to":"a@b.tw","subject":"s"}`), &m))
	assert.Equal(t, mailer.Recipients{"a@b.tw"}, m.To)

	require.NoError(t, json.Unmarshal([]byte(`{"to":["a@b.tw","c@d.tw"]}`), &m))
	assert.Equal(t, mailer.Recipients{"a@b.tw", "c@d.tw"}, m.To)

	assert.Error(t, json.Unmarshal([]byte(`{"to":42}`), &m))
}

func TestRender(t *testing.T) {
	got := mailer.Render("{{name}} 您好，訂單 {{orderId}} {{unknown}}", map[string]string{
		"name":    "王小明",
		"orderId": "ORD1",
	})
	assert.Equal(t, "王小明 您好，訂單 ORD1 {{unknown}}", got)
}

func TestClient_Send(t *testing.T) {
	var got mailer.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(mailer.Response{
			Success: true,
			Message: "Email sent successfully",
			Data:    &mailer.SendResult{MessageID: "m-1", To: got.To, Subject: got.Subject, Attempts: 1},
		})
	}))
	defer srv.Close()

	c := mailer.NewClient(srv.URL, mailer.WithTimeout(time.Second))
	res, err := c.Send(context.Background(), mailer.Message{To: mailer.Recipients{"a@b.tw"}, Subject: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "m-1", res.MessageID)
	assert.Equal(t, "hi", got.Subject)
}

func TestClient_SendFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"relay reports failure", http.StatusOK, `{"success":false,"message":"Invalid recipient"}`},
		{"server error", http.StatusInternalServerError, `{"success":false,"message":"boom"}`},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := mailer.NewClient(srv.URL).Send(context.Background(), mailer.Message{To: mailer.Recipients{"a@b.tw"}})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.Transport))
		})
	}

	_, err := mailer.NewClient("").Send(context.Background(), mailer.Message{})
	assert.True(t, apperr.Is(err, apperr.Transport))
}

func TestTemplates_FallbackToBuiltin(t *testing.T) {
	repo := store.NewMemoryRepository[models.EmailTemplate]("emailTemplates")
	tpls := mailer.NewTemplates(repo)
	ctx := context.Background()

	got, err := tpls.Get(ctx, defaults.TemplateShippingNotice)
	require.NoError(t, err)
	assert.Equal(t, "出貨通知", got.Name)

	custom := models.EmailTemplate{Name: "自訂", Subject: "custom {{orderId}}", IsActive: true}
	require.NoError(t, repo.AddWithID(ctx, defaults.TemplateShippingNotice, custom))
	got, err = tpls.Get(ctx, defaults.TemplateShippingNotice)
	require.NoError(t, err)
	assert.Equal(t, "自訂", got.Name)

	// inactive stored templates fall back too
	require.NoError(t, repo.Update(ctx, defaults.TemplateShippingNotice, map[string]any{"isActive": false}))
	got, err = tpls.Get(ctx, defaults.TemplateShippingNotice)
	require.NoError(t, err)
	assert.Equal(t, "出貨通知", got.Name)

	_, err = tpls.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

type recordingSender struct {
	sent []mailer.Message
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) (*mailer.SendResult, error) {
	s.sent = append(s.sent, msg)
	return &mailer.SendResult{MessageID: "x", To: msg.To, Subject: msg.Subject, Attempts: 1}, nil
}

func TestNotifier_OrderConfirmation(t *testing.T) {
	sender := &recordingSender{}
	settings := store.NewMemoryRepository[models.EmailSettings]("emailSettings")
	cfg := config.MailConfig{FromEmail: "shop@nongxian.tw", FromName: "農鮮市集", AdminEmail: "admin@nongxian.tw"}
	n := mailer.NewNotifier(sender, mailer.NewTemplates(nil), settings, cfg, "https://shop.example")

	order := models.Order{
		ID:            "ORD1700000000000",
		CustomerName:  "王小明",
		CustomerEmail: "ming@example.com",
		Items:         []models.CartItem{{Name: "愛文芒果 <禮盒>", Price: 680, Quantity: 2}},
		Total:         1360,
		PaymentMethod: defaults.PaymentCreditCard,
	}
	_, err := n.OrderConfirmation(context.Background(), order)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, mailer.Recipients{"ming@example.com"}, msg.To)
	assert.Equal(t, "【農鮮市集】訂單確認 ORD1700000000000", msg.Subject)
	assert.Contains(t, msg.HTMLContent, "愛文芒果 &lt;禮盒&gt;")
	assert.Contains(t, msg.TextContent, "付款方式：信用卡")
	assert.Equal(t, "shop@nongxian.tw", msg.From.Email)

	_, err = n.AdminNewOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, mailer.Recipients{"admin@nongxian.tw"}, sender.sent[1].To)
}

func TestNotifier_EscapesCustomerInputInHTML(t *testing.T) {
	sender := &recordingSender{}
	settings := store.NewMemoryRepository[models.EmailSettings]("emailSettings")
	cfg := config.MailConfig{FromEmail: "shop@nongxian.tw", AdminEmail: "admin@nongxian.tw"}
	n := mailer.NewNotifier(sender, mailer.NewTemplates(nil), settings, cfg, "https://shop.example")

	order := models.Order{
		ID:              "ORD1700000000001",
		CustomerName:    `<a href="https://evil.example">客服</a>`,
		CustomerEmail:   "ming@example.com",
		CustomerPhone:   "0912345678<img src=x>",
		Notes:           "<script>alert(1)</script>",
		Items:           []models.CartItem{{Name: "芭樂 & 檸檬", Price: 250, Quantity: 1}},
		ShippingAddress: models.ShippingAddress{City: "台北市", Address: `<b>復興南路</b>`},
		PaymentMethod:   defaults.PaymentATM,
	}
	_, err := n.AdminNewOrder(context.Background(), order)
	require.NoError(t, err)
	_, err = n.OrderConfirmation(context.Background(), order)
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)

	for _, msg := range sender.sent {
		assert.NotContains(t, msg.HTMLContent, "<a href=\"https://evil.example\">")
		assert.NotContains(t, msg.HTMLContent, "<script>")
		assert.NotContains(t, msg.HTMLContent, "<img")
		assert.NotContains(t, msg.HTMLContent, "<b>")
		assert.Contains(t, msg.HTMLContent, "芭樂 &amp; 檸檬")
		assert.Contains(t, msg.HTMLContent, "<table")
	}
	admin := sender.sent[0]
	assert.Contains(t, admin.HTMLContent, "&lt;script&gt;alert(1)&lt;/script&gt;")
	// plain text keeps what the customer typed
	assert.Contains(t, admin.TextContent, "<script>alert(1)</script>")
	assert.Contains(t, sender.sent[1].HTMLContent, "&lt;b&gt;復興南路&lt;/b&gt;")
}

func TestNotifier_Disabled(t *testing.T) {
	sender := &recordingSender{}
	settings := store.NewMemoryRepository[models.EmailSettings]("emailSettings")
	s := defaults.EmailSettings(time.Now(), "", "shop@nongxian.tw", "農鮮市集", "admin@nongxian.tw")
	s.ShippingNotice = false
	require.NoError(t, settings.AddWithID(context.Background(), defaults.EmailSettingsID, s))

	n := mailer.NewNotifier(sender, mailer.NewTemplates(nil), settings, config.MailConfig{}, "")
	order := models.Order{ID: "ORD1", ShippingInfo: &models.ShippingInfo{TrackingNumber: "T1"}}
	_, err := n.ShippingNotice(context.Background(), order)
	assert.ErrorIs(t, err, mailer.ErrDisabled)
	assert.Empty(t, sender.sent)
}
