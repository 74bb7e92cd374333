// services/records.go - Keyed record store
package services

import (
	"errors"
	"fmt"
	"sync"

	"kandibot/models"

	"gorm.io/gorm"
)

// RecordStore owns all access to per-user progression records. Every
// mutation runs inside one database transaction behind a single gate, so
// all changes for one user-triggered event land atomically relative to
// other concurrent events.
type RecordStore struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

// Get returns the record for userID, creating and persisting a zeroed
// record when none exists yet.
func (s *RecordStore) Get(userID string) (*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetch(s.db, userID)
}

// Update applies fn to the user's record inside one transaction and saves
// the result. fn receives the transaction handle so related rows (unlocks,
// receipts) commit or roll back together with the counter changes.
func (s *RecordStore) Update(userID string, fn func(tx *gorm.DB, rec *models.UserRecord) error) (*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *models.UserRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = s.fetch(tx, userID)
		if err != nil {
			return err
		}
		if err := fn(tx, rec); err != nil {
			return err
		}
		if err := tx.Omit("Unlocks").Save(rec).Error; err != nil {
			return fmt.Errorf("failed to persist record for user %s: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecordStore) fetch(tx *gorm.DB, userID string) (*models.UserRecord, error) {
	var rec models.UserRecord
	err := tx.Preload("Unlocks").Where("user_id = ?", userID).First(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load record for user %s: %w", userID, err)
	}

	rec = models.UserRecord{UserID: userID}
	if err := tx.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to create record for user %s: %w", userID, err)
	}
	return &rec, nil
}
