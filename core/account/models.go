package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

// SelfServiceRoles are the roles a visitor may pick when registering. Admins are seeded.
var SelfServiceRoles = []string{core.RoleStudent, core.RoleTeacher}

type Account struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash []byte    `json:"-" bson:"passwordHash"`
	Age          int       `json:"age" bson:"age"`
	Address      string    `json:"address" bson:"address"`
	Role         string    `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsAdmin() bool   { return a.Role == core.RoleAdmin }
func (a *Account) IsTeacher() bool { return a.Role == core.RoleTeacher }
func (a *Account) IsStudent() bool { return a.Role == core.RoleStudent }

// Principal returns the principal acting as this account.
func (a *Account) Principal() core.Principal {
	return core.Principal{ID: a.ID, Email: a.Email, Role: a.Role}
}

// Summary is the public view of an account embedded in other resources.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *Account) Summary() *Summary {
	return &Summary{ID: a.ID, Name: a.Name, Email: a.Email}
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Age      int    `json:"age" validate:"required,min=1,max=150"`
	Address  string `json:"address" validate:"required"`
	Role     string `json:"role" validate:"omitempty,role"`
}

func (na *NewAccount) clean() {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Address = core.CleanString(na.Address)
	na.Role = core.CleanString(na.Role, true /* lower */)
}

// UpdateAccount defines what information may be provided to modify an existing Account.
// Empty fields keep their current value. The role can not be changed.
type UpdateAccount struct {
	Name     string `json:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
	Age      int    `json:"age" validate:"omitempty,min=1,max=150"`
	Address  string `json:"address"`

	// filled from the original account before validation, for the password policy
	currentName  string
	currentEmail string
}

func (ua *UpdateAccount) clean(orig Account) {
	ua.Name = core.CleanString(ua.Name)
	ua.Email = core.CleanString(ua.Email, true /* lower */)
	ua.Address = core.CleanString(ua.Address)
	ua.currentName = orig.Name
	ua.currentEmail = orig.Email
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type QueryFilter struct {
	Search string `query:"search"`
	Role   string `query:"role"`
}
