package models

import "time"

// Hunter is a registered user collecting points for reports and cleanups.
type Hunter struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FullName       string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"type:varchar(255);not null" json:"-"`
	Score          int       `gorm:"not null;default:0;index" json:"score"`
	CollectedCount int       `gorm:"not null;default:0" json:"collected_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LeaderboardEntry is the public view of a hunter; it leaves out the email.
type LeaderboardEntry struct {
	ID             uint   `json:"id"`
	FullName       string `json:"full_name"`
	Score          int    `json:"score"`
	CollectedCount int    `json:"collected_count"`
}

func (h Hunter) LeaderboardEntry() LeaderboardEntry {
	return LeaderboardEntry{
		ID:             h.ID,
		FullName:       h.FullName,
		Score:          h.Score,
		CollectedCount: h.CollectedCount,
	}
}
