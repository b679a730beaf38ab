package entities

import "time"

// User is an account. Password holds the "<salt_hex>.<digest_hex>" credential
// and is never serialized.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Admin     bool      `gorm:"not null;default:false" json:"admin"`
	Reports   []Report  `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
