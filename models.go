package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleGuest is an guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember us a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
)

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	// UserStatusPending marks an account created by a verification request
	// that has not proven any credential yet.
	UserStatusPending UserStatus = "pending"
	// UserStatusActive marks an account with at least one verified credential.
	UserStatusActive UserStatus = "active"
	// UserStatusSuspended marks a temporarily blocked account.
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusDisabled marks a permanently blocked account.
	UserStatusDisabled UserStatus = "disabled"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status         UserStatus     `bun:"status,notnull" json:"status,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string         `bun:"email,unique,nullzero" json:"email,omitempty"`
	Phone          string         `bun:"phone_number,nullzero" json:"phone_number,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"password_hash,omitempty"`
	EmailValidated bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	PhoneValidated bool           `bun:"is_phone_verified" json:"is_phone_verified,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	SuspendedAt    *time.Time     `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the status column for rows written before the
// lifecycle field existed.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusPending
	}
}

// IsPending reports whether the account has no verified credential yet.
func (u *User) IsPending() bool { return u.Status == UserStatusPending }

// IsActive reports whether the account can authenticate.
func (u *User) IsActive() bool { return u.Status == UserStatusActive }

// IsSuspended reports whether the account is temporarily blocked.
func (u *User) IsSuspended() bool { return u.Status == UserStatusSuspended }

// IsDisabled reports whether the account is permanently blocked.
func (u *User) IsDisabled() bool { return u.Status == UserStatusDisabled }

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// CredentialVerified reports whether the channel identified by method has
// been proven for this account.
func (u *User) CredentialVerified(method VerificationMethod) bool {
	switch method {
	case MethodEmailCode, MethodOAuth:
		return u.EmailValidated
	case MethodSMSCode:
		return u.PhoneValidated
	default:
		return false
	}
}

// VerificationCode is a time-boxed, single-use numeric code. The owner column
// derives deterministically from (method, credential), one row per owner.
type VerificationCode struct {
	bun.BaseModel `bun:"table:verification_codes,alias:vc"`
	Owner         string    `bun:"owner,pk" json:"owner"`
	Code          string    `bun:"code,notnull" json:"code"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// ExpiredAt reports whether the row is past its TTL at the given instant.
func (v *VerificationCode) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(v.CreatedAt) > ttl
}
