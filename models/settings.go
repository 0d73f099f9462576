package models

import "time"

// Carrier is a shipping company. TrackingURL holds "{trackingNumber}" or "{}"
// where the tracking number goes.
type Carrier struct {
	Code        string `json:"code" bson:"code"`
	Name        string `json:"name" bson:"name"`
	TrackingURL string `json:"trackingUrl" bson:"trackingUrl"`
	Phone       string `json:"phone,omitempty" bson:"phone,omitempty"`
	Enabled     bool   `json:"enabled" bson:"enabled"`
}

type DeliveryMethod struct {
	ID                    string `json:"id" bson:"id"`
	Name                  string `json:"name" bson:"name"`
	Description           string `json:"description,omitempty" bson:"description,omitempty"`
	Fee                   int    `json:"fee" bson:"fee"`
	FreeShippingThreshold int    `json:"freeShippingThreshold" bson:"freeShippingThreshold"`
	EstimatedDays         string `json:"estimatedDays,omitempty" bson:"estimatedDays,omitempty"`
	Carrier               string `json:"carrier,omitempty" bson:"carrier,omitempty"`
	Enabled               bool   `json:"enabled" bson:"enabled"`
}

type PickupLocation struct {
	ID      string `json:"id" bson:"id"`
	Name    string `json:"name" bson:"name"`
	Address string `json:"address" bson:"address"`
	Hours   string `json:"hours,omitempty" bson:"hours,omitempty"`
	Phone   string `json:"phone,omitempty" bson:"phone,omitempty"`
	Enabled bool   `json:"enabled" bson:"enabled"`
}

type DeliveryArea struct {
	ID        string   `json:"id" bson:"id"`
	Name      string   `json:"name" bson:"name"`
	Cities    []string `json:"cities" bson:"cities"`
	ExtraFee  int      `json:"extraFee" bson:"extraFee"`
	Available bool     `json:"available" bson:"available"`
}

// LogisticsSettings is a singleton document.
type LogisticsSettings struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	Carriers        []Carrier        `json:"carriers" bson:"carriers"`
	DeliveryMethods []DeliveryMethod `json:"deliveryMethods" bson:"deliveryMethods"`
	PickupLocations []PickupLocation `json:"pickupLocations" bson:"pickupLocations"`
	DeliveryAreas   []DeliveryArea   `json:"deliveryAreas" bson:"deliveryAreas"`
	UpdatedAt       time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// EmailSettings is a singleton document.
type EmailSettings struct {
	ID                string    `json:"id" bson:"_id,omitempty"`
	RelayURL          string    `json:"relayUrl" bson:"relayUrl"`
	SenderEmail       string    `json:"senderEmail" bson:"senderEmail"`
	SenderName        string    `json:"senderName" bson:"senderName"`
	AdminEmail        string    `json:"adminEmail" bson:"adminEmail"`
	OrderConfirmation bool      `json:"orderConfirmation" bson:"orderConfirmation"`
	ShippingNotice    bool      `json:"shippingNotification" bson:"shippingNotification"`
	AdminNotification bool      `json:"adminNotification" bson:"adminNotification"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// EmailTemplate bodies use {{name}} placeholders.
type EmailTemplate struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Subject     string    `json:"subject" bson:"subject"`
	HTMLContent string    `json:"htmlContent" bson:"htmlContent"`
	TextContent string    `json:"textContent" bson:"textContent"`
	Variables   []string  `json:"variables,omitempty" bson:"variables,omitempty"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
