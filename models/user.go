package models

import "time"

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// AdminUser is a back-office account. PasswordHash is a bcrypt hash.
type AdminUser struct {
	UID          string     `json:"uid" bson:"_id,omitempty"`
	Email        string     `json:"email" bson:"email"`
	DisplayName  string     `json:"displayName" bson:"displayName"`
	Role         string     `json:"role" bson:"role"`
	Permissions  []string   `json:"permissions" bson:"permissions"`
	IsActive     bool       `json:"isActive" bson:"isActive"`
	PasswordHash string     `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`
}
