package models

import (
	"time"
)

// StaffRole controls access to settings and administration endpoints.
type StaffRole string

const (
	StaffRoleAdmin StaffRole = "admin"
	StaffRoleStaff StaffRole = "staff"
)

// StaffUser is a shop employee who signs in with a 4-digit PIN.
type StaffUser struct {
	BaseModel
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         StaffRole  `gorm:"not null;default:'staff'" json:"role"`
	PinHash      string     `gorm:"not null" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	LastPinLogin *time.Time `json:"last_pin_login"`
}

// PinAttempt tracks failed logins per PIN hash for brute-force lockout.
type PinAttempt struct {
	PinHash       string     `gorm:"primaryKey;size:64" json:"pin_hash"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LockUntil     *time.Time `json:"lock_until"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
}
