package models

import (
	"time"
)

// Role is the closed set of user profiles.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User is the internal identity record. ExternalID stays nil for roster rows
// imported from CSV until their first login; Email is the join key between the two.
type User struct {
	ID         string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ExternalID *string `gorm:"uniqueIndex" json:"external_id"`
	Email      string  `gorm:"uniqueIndex;not null" json:"email"`
	Name       *string `json:"name"`
	Lastname   *string `json:"lastname"`
	AvatarURL  *string `gorm:"type:text" json:"avatar_url"`
	Role       Role    `gorm:"type:varchar(16);index;not null;default:'student'" json:"role"`
	Group      *string `gorm:"column:group_name;index" json:"group"`

	GameSessions []GameSession `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Logins       []UserLogin   `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	Timestamps
}

// FullName joins name and lastname, skipping the missing parts.
func (u *User) FullName() string {
	var parts []string
	if u.Name != nil && *u.Name != "" {
		parts = append(parts, *u.Name)
	}
	if u.Lastname != nil && *u.Lastname != "" {
		parts = append(parts, *u.Lastname)
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return parts[0] + " " + parts[1]
}

// UserLogin is an audit row written on every successful sign-in.
type UserLogin struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	LoggedInAt time.Time `gorm:"not null" json:"logged_in_at"`
	IPAddress  string    `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent  string    `gorm:"type:text" json:"user_agent"`

	Timestamps
}

// Timestamps adds GORM auto-times. Nothing in this service soft-deletes.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
