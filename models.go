package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest is a guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember is a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an owner role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

// User is the account model. It is a single flat entity: staff and
// self-service surfaces share the same canonical id, there is no
// base/profile record split.
//
// Email and username carry real unique constraints so the application
// level checks in Users.Save are backed by the storage layer.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	IsActive      bool       `bun:"is_active" json:"is_active,omitempty"`
	IsStaff       bool       `bun:"is_staff" json:"is_staff,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// FullName joins first and last name with a single space. Parts are not
// trimmed or validated.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) String() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FullName()
	}
	return u.Email
}

// Site maps a configured site id to the domain used when building
// absolute confirmation links.
type Site struct {
	bun.BaseModel `bun:"table:sites,alias:site"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	Domain        string     `bun:"domain,notnull" json:"domain,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
