package models

import (
	"time"
)

// Role determines which authentication policy and permissions apply to a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User represents a customer or admin account.
type User struct {
	BaseModel
	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	PasswordHash string `json:"-"`
	Role         Role   `gorm:"type:varchar(16)" json:"role"`

	// Registration verification. VerificationToken is set while the account
	// is unverified and cleared once the emailed code is confirmed.
	IsVerified        bool    `json:"is_verified"`
	VerificationToken *string `json:"-"`

	// Accounts without a date of birth stay on the legacy login path with no
	// failure counter, lockout, or step-up challenge.
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`

	FailedLoginAttempts int        `json:"-"`
	IsLocked            bool       `json:"-"`
	LockUntil           *time.Time `json:"-"`

	// StepUpToken is non-null only between a successful birthday challenge
	// and the OTP that completes the step-up flow.
	StepUpToken *string `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	Orders []Order `json:"orders,omitempty"`
}

// PasswordResetToken tracks forgot-password codes sent by email.
type PasswordResetToken struct {
	BaseModel
	Email     string     `gorm:"index" json:"email"`
	Token     string     `gorm:"uniqueIndex" json:"token"`
	Code      string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	Verified  bool       `json:"verified"`
	UsedAt    *time.Time `json:"used_at"`
}
