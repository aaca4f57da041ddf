// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trashforcoin/internal/access"
)

// Session represents a persisted login session. Only the SHA-256 of the token is stored.
type Session struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    int64        `gorm:"column:user_id;not null;index"`
	TokenHash string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time   `gorm:"column:revoked_at"`
	CreatedAt time.Time    `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "tbl_sessions" }

// Identity is an authenticated session together with the actor it speaks for.
type Identity struct {
	SessionID snowflake.ID
	ExpiresAt time.Time
	Actor     access.Actor
}

// CartKey is the cart session key owned by this login.
func (i Identity) CartKey() string {
	return i.SessionID.String()
}
