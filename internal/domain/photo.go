package domain

import "time"

// Photo Model
type Photo struct {
	ID          uint      `gorm:"primaryKey"`                                              // Primary key
	UserID      uint      `gorm:"not null;index"`                                          // Foreign key to the owning User
	Filename    string    `gorm:"size:255;not null"`                                       // Client filename, display only
	StorageKey  string    `gorm:"size:255;uniqueIndex;not null"`                           // Key inside the photo storage
	Caption     *string   `gorm:"size:200"`                                                // Optional caption
	ContentType string    `gorm:"size:100"`                                                // MIME type reported by the client
	Size        int64     `gorm:"not null;default:0"`                                      // Stored size in bytes
	CreatedAt   time.Time `gorm:"autoCreateTime"`                                          // Upload time
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"` // Owning user, one-to-many from User
}

// CaptionText returns the caption or an empty string when none was given.
func (p Photo) CaptionText() string {
	if p.Caption == nil {
		return ""
	}
	return *p.Caption
}
