package users

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// UserForm is the staff facing edit payload. The factory functions below
// replace runtime form introspection: forms are explicit structs bound
// at startup, validated with ozzo rules.
type UserForm struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Role      string `form:"role" json:"role"`
	IsActive  bool   `form:"is_active" json:"is_active"`
	Password  string `form:"password" json:"password"`
}

// NewUserForm pre-populates a form from an existing record.
func NewUserForm(u *User) *UserForm {
	if u == nil {
		return &UserForm{}
	}
	return &UserForm{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
	}
}

// Validate will run validation rules
func (f UserForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.FirstName, validation.Length(0, 200)),
		validation.Field(&f.LastName, validation.Length(0, 200)),
		validation.Field(&f.Username, validation.Length(0, 150)),
		validation.Field(&f.Email, validation.Required, is.Email),
		validation.Field(&f.Role, validation.In(RoleGuest, RoleMember, RoleAdmin, RoleOwner)),
		validation.Field(&f.Password, validation.Length(10, 100)),
	)
}

// Apply copies the editable fields onto the record.
func (f *UserForm) Apply(u *User) {
	u.FirstName = f.FirstName
	u.LastName = f.LastName
	u.Username = f.Username
	u.Email = f.Email
	if f.Role != "" {
		u.Role = f.Role
	}
	u.IsActive = f.IsActive
}

// ProfileForm is the self service payload: the only fields an account
// may edit about itself.
type ProfileForm struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
}

// NewProfileForm pre-populates a profile form from an existing record.
func NewProfileForm(u *User) *ProfileForm {
	if u == nil {
		return &ProfileForm{}
	}
	return &ProfileForm{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// Validate will run validation rules
func (f ProfileForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.FirstName, validation.Length(0, 200)),
		validation.Field(&f.LastName, validation.Length(0, 200)),
		validation.Field(&f.Email, validation.Required, is.Email),
	)
}

// Apply copies the editable fields onto the record.
func (f *ProfileForm) Apply(u *User) {
	u.FirstName = f.FirstName
	u.LastName = f.LastName
	u.Email = f.Email
}
