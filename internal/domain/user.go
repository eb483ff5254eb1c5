package domain

import "time"

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey"`                   // Primary key
	Username  string    `gorm:"size:50;uniqueIndex;not null"` // Unique lower-case username
	Email     *string   `gorm:"size:254;uniqueIndex"`         // Optional email, unique when present
	Password  string    `gorm:"not null" json:"-"`            // bcrypt hash (salt embedded)
	CreatedAt time.Time `gorm:"autoCreateTime"`               // Signup time
}
