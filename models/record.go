// models/record.go
package models

import (
	"time"
)

// Counter field names accepted in achievement requirements.
const (
	FieldPoints         = "points"
	FieldCorrectAnswers = "correct_answers"
	FieldPurchases      = "purchases"
)

// UserRecord is the durable per-user progression state. Records are created
// lazily on first reference and never deleted.
type UserRecord struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"uniqueIndex;not null;size:64" json:"user_id"`

	// Progression counters
	Points         int `gorm:"default:0" json:"points"`
	CorrectAnswers int `gorm:"default:0" json:"correct_answers"`
	Purchases      int `gorm:"default:0" json:"purchases"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Unlocks []Unlock `gorm:"foreignKey:RecordID" json:"unlocks,omitempty"`
}

// Unlock marks one achievement as earned by one record. Rows are only ever
// inserted; the unlocked set is monotonic.
type Unlock struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RecordID       uint      `gorm:"not null;index;uniqueIndex:idx_unlocks_record_key" json:"record_id"`
	AchievementKey string    `gorm:"not null;size:100;uniqueIndex:idx_unlocks_record_key" json:"achievement_key"`
	UnlockedAt     time.Time `json:"unlocked_at"`

	Record UserRecord `gorm:"foreignKey:RecordID" json:"-"`
}

// Counter returns the named requirement counter. The second result is false
// for field names that do not exist on the record.
func (r *UserRecord) Counter(field string) (int, bool) {
	switch field {
	case FieldPoints:
		return r.Points, true
	case FieldCorrectAnswers:
		return r.CorrectAnswers, true
	case FieldPurchases:
		return r.Purchases, true
	default:
		return 0, false
	}
}

// Unlocked reports whether the record already owns the achievement key.
func (r *UserRecord) Unlocked(key string) bool {
	for _, u := range r.Unlocks {
		if u.AchievementKey == key {
			return true
		}
	}
	return false
}

func (UserRecord) TableName() string {
	return "user_records"
}

func (Unlock) TableName() string {
	return "unlocks"
}
