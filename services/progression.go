// services/progression.go - Progression engine
package services

import (
	"fmt"
	"time"

	"kandibot/models"

	"gorm.io/gorm"
)

// CorrectAnswerReward is the number of points awarded per correct quiz
// answer.
const CorrectAnswerReward = 10

// Progression applies game events to user records and evaluates the
// achievement catalog against the updated state. Counter changes and newly
// earned unlocks always commit in the same transaction: an achievement is
// never reported as unlocked unless it was durably persisted.
type Progression struct {
	store   *RecordStore
	catalog *Catalog
}

func NewProgression(store *RecordStore, catalog *Catalog) *Progression {
	return &Progression{store: store, catalog: catalog}
}

// RecordCorrectAnswer increments the correct-answer counter, awards the
// fixed point reward and returns the display names of any achievements that
// unlocked as a result.
func (p *Progression) RecordCorrectAnswer(userID string) ([]string, error) {
	return p.apply(userID, func(rec *models.UserRecord) {
		rec.CorrectAnswers++
		rec.Points += CorrectAnswerReward
	})
}

// RecordPurchase debits price points (clamped at zero) and increments the
// purchase counter. The clamp is a safety floor, not a rejection: callers
// must verify affordability before invoking this operation.
func (p *Progression) RecordPurchase(userID string, price int) ([]string, error) {
	return p.apply(userID, func(rec *models.UserRecord) {
		rec.Points -= price
		if rec.Points < 0 {
			rec.Points = 0
		}
		rec.Purchases++
	})
}

// Evaluate re-checks the catalog against the user's current record without
// mutating any counter. Useful as an idempotent re-check; already unlocked
// keys are never reported again.
func (p *Progression) Evaluate(userID string) ([]string, error) {
	return p.apply(userID, func(*models.UserRecord) {})
}

// apply runs mutate on the user's record, scans the whole catalog for
// newly satisfied achievements and persists everything in one transaction.
// The catalog is small and bounded, so the full scan per call is fine.
func (p *Progression) apply(userID string, mutate func(*models.UserRecord)) ([]string, error) {
	var newly []string

	_, err := p.store.Update(userID, func(tx *gorm.DB, rec *models.UserRecord) error {
		newly = newly[:0]
		mutate(rec)

		for _, def := range p.catalog.All() {
			if rec.Unlocked(def.Key) {
				continue
			}

			satisfied := true
			for field, threshold := range def.Requirement {
				value, _ := rec.Counter(field)
				if value < threshold {
					satisfied = false
					break
				}
			}
			if !satisfied {
				continue
			}

			unlock := models.Unlock{
				RecordID:       rec.ID,
				AchievementKey: def.Key,
				UnlockedAt:     time.Now(),
			}
			if err := tx.Create(&unlock).Error; err != nil {
				return fmt.Errorf("failed to persist unlock %s for user %s: %w", def.Key, userID, err)
			}
			rec.Unlocks = append(rec.Unlocks, unlock)
			newly = append(newly, def.DisplayName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newly, nil
}
