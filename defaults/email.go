package defaults

import (
	"time"

	"nongxian/models"
)

// EmailSettingsID is the id of the singleton email settings document.
const EmailSettingsID = "default"

// Template ids
const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateShippingNotice    = "shipping_notification"
	TemplateAdminNewOrder     = "admin_new_order"
)

// EmailSettings seeds the sender identity; the relay and addresses come
// from configuration.
func EmailSettings(now time.Time, relayURL, senderEmail, senderName, adminEmail string) models.EmailSettings {
	return models.EmailSettings{
		ID:                EmailSettingsID,
		RelayURL:          relayURL,
		SenderEmail:       senderEmail,
		SenderName:        senderName,
		AdminEmail:        adminEmail,
		OrderConfirmation: true,
		ShippingNotice:    true,
		AdminNotification: true,
		UpdatedAt:         now,
	}
}

// EmailTemplates are the three built-in templates. The mailer renders them
// when the store has no active template of the same id.
func EmailTemplates(now time.Time) []models.EmailTemplate {
	return []models.EmailTemplate{
		{
			ID:      TemplateOrderConfirmation,
			Name:    "訂單確認通知",
			Subject: "【農鮮市集】訂單確認 {{orderId}}",
			HTMLContent: `<div style="font-family:sans-serif;max-width:600px;margin:auto">
<h2 style="color:#2e7d32">感謝您的訂購，{{customerName}}！</h2>
<p>我們已收到您的訂單 <strong>{{orderId}}</strong>（{{orderDate}}）。</p>
<table style="width:100%;border-collapse:collapse">{{itemsHtml}}</table>
<p>商品小計：NT$ {{subtotal}}<br>運費：NT$ {{shippingFee}}<br>折扣：-NT$ {{discount}}<br><strong>訂單總額：NT$ {{total}}</strong></p>
<p>付款方式：{{paymentMethod}}<br>配送方式：{{deliveryMethod}}<br>收件地址：{{shippingAddress}}</p>
<p><a href="{{storeUrl}}">回到農鮮市集</a></p>
</div>`,
			TextContent: `感謝您的訂購，{{customerName}}！
訂單編號：{{orderId}}（{{orderDate}}）
{{itemsText}}
商品小計：NT$ {{subtotal}}
運費：NT$ {{shippingFee}}
折扣：-NT$ {{discount}}
訂單總額：NT$ {{total}}
付款方式：{{paymentMethod}}
配送方式：{{deliveryMethod}}
收件地址：{{shippingAddress}}`,
			Variables: []string{"customerName", "orderId", "orderDate", "itemsHtml", "itemsText", "subtotal", "shippingFee",
				"discount", "total", "paymentMethod", "deliveryMethod", "shippingAddress", "storeUrl"},
			IsActive:  true,
			UpdatedAt: now,
		},
		{
			ID:      TemplateShippingNotice,
			Name:    "出貨通知",
			Subject: "【農鮮市集】您的訂單 {{orderId}} 已出貨",
			HTMLContent: `<div style="font-family:sans-serif;max-width:600px;margin:auto">
<h2 style="color:#2e7d32">{{customerName}} 您好，您的訂單已出貨！</h2>
<p>訂單編號：<strong>{{orderId}}</strong></p>
<p>物流業者：{{carrierName}}<br>貨運單號：{{trackingNumber}}<br>預計送達：{{estimatedDelivery}}</p>
<p><a href="{{trackingUrl}}">查詢貨態</a></p>
<p>{{shippingNotes}}</p>
</div>`,
			TextContent: `{{customerName}} 您好，您的訂單 {{orderId}} 已出貨。
物流業者：{{carrierName}}
貨運單號：{{trackingNumber}}
預計送達：{{estimatedDelivery}}
查詢貨態：{{trackingUrl}}
{{shippingNotes}}`,
			Variables: []string{"customerName", "orderId", "carrierName", "trackingNumber", "trackingUrl",
				"estimatedDelivery", "shippingNotes"},
			IsActive:  true,
			UpdatedAt: now,
		},
		{
			ID:      TemplateAdminNewOrder,
			Name:    "新訂單管理員通知",
			Subject: "【新訂單】{{orderId}} - NT$ {{total}}",
			HTMLContent: `<div style="font-family:sans-serif">
<h3>新訂單 {{orderId}}</h3>
<p>顧客：{{customerName}}（{{customerEmail}}，{{customerPhone}}）</p>
<table style="width:100%;border-collapse:collapse">{{itemsHtml}}</table>
<p>訂單總額：NT$ {{total}}，付款方式：{{paymentMethod}}，付款狀態：{{paymentStatus}}</p>
<p>備註：{{notes}}</p>
</div>`,
			TextContent: `新訂單 {{orderId}}
顧客：{{customerName}}（{{customerEmail}}，{{customerPhone}}）
{{itemsText}}
訂單總額：NT$ {{total}}
付款方式：{{paymentMethod}}，付款狀態：{{paymentStatus}}
備註：{{notes}}`,
			Variables: []string{"orderId", "customerName", "customerEmail", "customerPhone", "itemsHtml", "itemsText",
				"total", "paymentMethod", "paymentStatus", "notes"},
			IsActive:  true,
			UpdatedAt: now,
		},
	}
}

// EmailTemplate returns the built-in template with the given id.
func EmailTemplate(id string) (models.EmailTemplate, bool) {
	for _, t := range EmailTemplates(time.Time{}) {
		if t.ID == id {
			return t, true
		}
	}
	return models.EmailTemplate{}, false
}
