package models

import "time"

// IdempotencyRecord remembers the response of a mutating request keyed by
// the client's Idempotency-Key header. Status is zero while the first
// request is still running.
type IdempotencyRecord struct {
	Key         string    `bson:"_id" json:"key"`
	Method      string    `bson:"method" json:"method"`
	Path        string    `bson:"path" json:"path"`
	UserID      string    `bson:"userid" json:"userid"`
	RequestHash string    `bson:"request_hash" json:"request_hash"`
	Status      int       `bson:"status,omitempty" json:"status,omitempty"`
	Body        string    `bson:"body,omitempty" json:"body,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time `bson:"expires_at" json:"expires_at"`
}
