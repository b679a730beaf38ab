package entities

import "time"

// Report is a single observed sale price for a car.
type Report struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Price     int       `gorm:"not null" json:"price"`
	Make      string    `gorm:"index:idx_reports_make_model;size:100;not null" json:"make"`
	Model     string    `gorm:"index:idx_reports_make_model;size:100;not null" json:"model"`
	Year      int       `gorm:"not null" json:"year"`
	Lng       float64   `gorm:"not null" json:"lng"`
	Lat       float64   `gorm:"not null" json:"lat"`
	Mileage   int       `gorm:"not null" json:"mileage"`
	Approved  bool      `gorm:"not null;default:false" json:"approved"`
	UserID    uint      `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Report) TableName() string {
	return "reports"
}
