package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CalendarScope names the resource a calendar feed token is bound to.
type CalendarScope string

const (
	CalendarScopeTeacher   CalendarScope = "teacher"
	CalendarScopeClassroom CalendarScope = "classroom"
	CalendarScopeClass     CalendarScope = "class"
	CalendarScopeSubject   CalendarScope = "subject"
	CalendarScopeStudent   CalendarScope = "student"
)

// Valid reports whether the scope is supported.
func (s CalendarScope) Valid() bool {
	switch s {
	case CalendarScopeTeacher, CalendarScopeClassroom, CalendarScopeClass, CalendarScopeSubject, CalendarScopeStudent:
		return true
	default:
		return false
	}
}

// CalendarClaims is the JWT payload of a calendar feed token. The token
// grants read access to one resource's occupancies and nothing else.
type CalendarClaims struct {
	Scope       CalendarScope `json:"scope"`
	ResourceID  string        `json:"resource_id"`
	GroupNumber *int          `json:"group_number,omitempty"`
	jwt.RegisteredClaims
}

// CalendarToken is a minted feed token together with its expiry and the
// ready-to-use feed URL.
type CalendarToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	FeedURL   string    `json:"feed_url"`
}
