package models

import "time"

type MarkerStatus string

const (
	MarkerDirty   MarkerStatus = "dirty"
	MarkerCleaned MarkerStatus = "cleaned"
)

// Marker is a reported polluted location. It is created dirty and may be
// cleaned exactly once; a cleaned marker never changes again.
type Marker struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Lat           float64      `gorm:"not null" json:"lat"`
	Lng           float64      `gorm:"not null" json:"lng"`
	Status        MarkerStatus `gorm:"type:varchar(15);not null;default:'dirty';index" json:"status"`
	ImageURL      string       `gorm:"type:varchar(512);not null" json:"image_url"`
	ImageKey      string       `gorm:"type:varchar(255);not null" json:"-"`
	CleanImageURL *string      `gorm:"type:varchar(512)" json:"clean_image_url,omitempty"`
	CleanImageKey *string      `gorm:"type:varchar(255)" json:"-"`
	Note          string       `gorm:"type:text" json:"note"`
	ReporterID    *uint        `gorm:"index" json:"-"`
	CleanerID     *uint        `gorm:"index" json:"-"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	CleanedAt     *time.Time   `json:"cleaned_at,omitempty"`
}

func (m *Marker) IsCleaned() bool {
	return m.Status == MarkerCleaned
}
