package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account that can sign in to the service book.
// Classic accounts carry a bcrypt hash; Google accounts have GoogleID
// set and an empty password.
type User struct {
	BaseModel
	Name        string `json:"name"`
	Email       string `gorm:"index" json:"email"`
	Password    string `json:"-"`
	GoogleID    string `gorm:"index" json:"-"`
	Thumbnail   string `json:"thumbnail"`
	IsApproved  bool   `json:"isApproved"`
	IsValidMail bool   `json:"isValidMail"`

	RefreshTokens       []RefreshToken       `json:"-"`
	PasswordResetTokens []PasswordResetToken `json:"-"`
}

// Info returns the fields exposed to clients after login.
func (u *User) Info() map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"thumbnail":   u.Thumbnail,
		"isValidMail": u.IsValidMail,
	}
}

// RefreshToken is an outstanding refresh token issued to a user. Rows
// are appended on login and removed on logout or password reset.
type RefreshToken struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetToken is an outstanding single-use reset token. The row
// is deleted when the reset completes, so a second use fails.
type PasswordResetToken struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
