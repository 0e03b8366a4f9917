package authkit

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditFields are the bookkeeping columns shared by every model.
// They are filled from the context auditor when the model is written.
type AuditFields struct {
	CreatedBy string     `bun:"created_by,nullzero" json:"created_by,omitempty"`
	UpdatedBy string     `bun:"updated_by,nullzero" json:"updated_by,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

func (a *AuditFields) stamp(ctx context.Context, query bun.Query) {
	now := time.Now().UTC()
	auditor, ok := CurrentAuditor(ctx)

	switch query.(type) {
	case *bun.InsertQuery:
		if a.CreatedAt == nil {
			a.CreatedAt = &now
		}
		if ok && a.CreatedBy == "" {
			a.CreatedBy = auditor
		}
		a.UpdatedAt = &now
		if ok {
			a.UpdatedBy = auditor
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = &now
		if ok {
			a.UpdatedBy = auditor
		}
	}
}

// auditColumns are never overwritten by Save on existing rows
var auditColumns = []string{"created_at", "created_by"}

// LoginRole is a named role a user login can hold
type LoginRole struct {
	bun.BaseModel `bun:"table:login_roles,alias:lr"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull,unique" json:"name"`
	Description   *string   `bun:"description" json:"description,omitempty"`
	AuditFields
}

var _ bun.BeforeAppendModelHook = (*LoginRole)(nil)

func (r *LoginRole) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	r.stamp(ctx, query)
	return nil
}

// Validate will run validation rules
func (r LoginRole) Validate() error {
	return invalidRecord(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 64)),
	), "invalid login role")
}

// UserLogin holds the credentials and lock state of a user
type UserLogin struct {
	bun.BaseModel `bun:"table:user_logins,alias:ul"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	Active        bool       `bun:"active,notnull" json:"active"`
	Locked        bool       `bun:"locked,notnull" json:"locked"`
	LockedAt      *time.Time `bun:"locked_at,nullzero" json:"locked_at,omitempty"`
	LockedBy      string     `bun:"locked_by,nullzero" json:"locked_by,omitempty"`
	RoleID        *uuid.UUID `bun:"role_id,type:uuid" json:"role_id,omitempty"`
	Role          *LoginRole `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	Avatar        []byte     `bun:"avatar" json:"-"`
	AvatarType    string     `bun:"avatar_type,nullzero" json:"avatar_type,omitempty"`
	AuditFields
}

var _ bun.BeforeAppendModelHook = (*UserLogin)(nil)

func (u *UserLogin) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	u.stamp(ctx, query)
	return nil
}

// Validate will run validation rules
func (u UserLogin) Validate() error {
	return invalidRecord(validation.ValidateStruct(&u,
		validation.Field(&u.Username, validation.Required, validation.Length(3, 128)),
	), "invalid user login")
}

// setLocked moves the lock state and reports whether anything changed.
// Repeating the current state is a no-op.
func (u *UserLogin) setLocked(locked bool, at time.Time, by string) bool {
	if u.Locked == locked {
		return false
	}

	u.Locked = locked
	if locked {
		u.LockedAt = &at
		u.LockedBy = by
		return true
	}

	u.LockedAt = nil
	u.LockedBy = ""
	return true
}

// UserLoginInfo is a read only projection of a user login
type UserLoginInfo struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Active      bool       `json:"active"`
	Locked      bool       `json:"locked"`
	LockedAt    *time.Time `json:"locked_at,omitempty"`
	LockedBy    string     `json:"locked_by,omitempty"`
	RoleName    string     `json:"role,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	HasAvatar   bool       `json:"has_avatar"`
}

// NewUserLoginInfo projects a UserLogin. The Role relation is used when loaded.
func NewUserLoginInfo(u *UserLogin) *UserLoginInfo {
	if u == nil {
		return nil
	}

	info := &UserLoginInfo{
		ID:          u.ID,
		Username:    u.Username,
		Active:      u.Active,
		Locked:      u.Locked,
		LockedAt:    u.LockedAt,
		LockedBy:    u.LockedBy,
		LastLoginAt: u.LastLoginAt,
		HasAvatar:   len(u.Avatar) > 0,
	}

	if u.Role != nil {
		info.RoleName = u.Role.Name
	}

	return info
}
