package models

import "time"

type Category struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Icon        string    `json:"icon,omitempty" bson:"icon,omitempty"`
	SortOrder   int       `json:"sortOrder" bson:"sortOrder"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

type Product struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	Name          string    `json:"name" bson:"name"`
	Description   string    `json:"description,omitempty" bson:"description,omitempty"`
	Category      string    `json:"category" bson:"category"`
	Price         int       `json:"price" bson:"price"`
	OriginalPrice int       `json:"originalPrice,omitempty" bson:"originalPrice,omitempty"`
	Unit          string    `json:"unit,omitempty" bson:"unit,omitempty"`
	Stock         int       `json:"stock" bson:"stock"`
	Image         string    `json:"image,omitempty" bson:"image,omitempty"`
	Farm          string    `json:"farm,omitempty" bson:"farm,omitempty"`
	Location      string    `json:"location,omitempty" bson:"location,omitempty"`
	Tags          []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	IsOrganic     bool      `json:"isOrganic" bson:"isOrganic"`
	IsActive      bool      `json:"isActive" bson:"isActive"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

type PaymentMethod struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Icon        string    `json:"icon,omitempty" bson:"icon,omitempty"`
	Fee         int       `json:"fee" bson:"fee"`
	SortOrder   int       `json:"sortOrder" bson:"sortOrder"`
	Enabled     bool      `json:"enabled" bson:"enabled"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}
