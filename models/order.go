package models

import (
	"slices"
	"time"
)

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Notification status values recorded in Order.EmailNotifications.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationNotSent = "not_sent"
)

// Notification keys.
const (
	NotifyOrderConfirmation    = "orderConfirmation"
	NotifyShippingNotification = "shippingNotification"
)

var (
	OrderStatuses   = []string{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}
	PaymentStatuses = []string{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}
)

func IsOrderStatus(s string) bool   { return slices.Contains(OrderStatuses, s) }
func IsPaymentStatus(s string) bool { return slices.Contains(PaymentStatuses, s) }

type ShippingAddress struct {
	Recipient string `json:"recipient" bson:"recipient"`
	Phone     string `json:"phone" bson:"phone"`
	City      string `json:"city" bson:"city"`
	District  string `json:"district,omitempty" bson:"district,omitempty"`
	ZipCode   string `json:"zipCode,omitempty" bson:"zipCode,omitempty"`
	Address   string `json:"address" bson:"address"`
}

type ShippingInfo struct {
	Carrier           string     `json:"carrier" bson:"carrier"`
	CarrierName       string     `json:"carrierName" bson:"carrierName"`
	TrackingNumber    string     `json:"trackingNumber" bson:"trackingNumber"`
	TrackingURL       string     `json:"trackingUrl" bson:"trackingUrl"`
	ShippedDate       time.Time  `json:"shippedDate" bson:"shippedDate"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty" bson:"estimatedDelivery,omitempty"`
	Notes             string     `json:"notes,omitempty" bson:"notes,omitempty"`
}

type EmailNotification struct {
	Sent   bool       `json:"sent" bson:"sent"`
	SentAt *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	Status string     `json:"status" bson:"status"`
	Error  string     `json:"error,omitempty" bson:"error,omitempty"`
}

type Order struct {
	ID                 string                       `json:"id" bson:"_id,omitempty"`
	UserID             string                       `json:"userId,omitempty" bson:"userId,omitempty"`
	CustomerName       string                       `json:"customerName" bson:"customerName"`
	CustomerEmail      string                       `json:"customerEmail" bson:"customerEmail"`
	CustomerPhone      string                       `json:"customerPhone" bson:"customerPhone"`
	Items              []CartItem                   `json:"items" bson:"items"`
	Subtotal           int                          `json:"subtotal" bson:"subtotal"`
	ShippingFee        int                          `json:"shippingFee" bson:"shippingFee"`
	DiscountAmount     int                          `json:"discountAmount" bson:"discountAmount"`
	AppliedCoupon      *AppliedCoupon               `json:"appliedCoupon" bson:"appliedCoupon"`
	Total              int                          `json:"total" bson:"total"`
	ShippingAddress    ShippingAddress              `json:"shippingAddress" bson:"shippingAddress"`
	DeliveryMethod     string                       `json:"deliveryMethod" bson:"deliveryMethod"`
	PaymentMethod      string                       `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus      string                       `json:"paymentStatus" bson:"paymentStatus"`
	Status             string                       `json:"status" bson:"status"`
	Notes              string                       `json:"notes,omitempty" bson:"notes,omitempty"`
	ShippingInfo       *ShippingInfo                `json:"shippingInfo" bson:"shippingInfo"`
	EmailNotifications map[string]EmailNotification `json:"emailNotifications" bson:"emailNotifications"`
	CreatedAt          time.Time                    `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time                    `json:"updatedAt" bson:"updatedAt"`
}
