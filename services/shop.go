// services/shop.go - Shop transactions
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kandibot/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Expected purchase outcomes, reported to the user as declined actions.
var (
	ErrItemNotFound      = errors.New("item not found in the shop")
	ErrInsufficientFunds = errors.New("not enough points for this item")
	ErrRoleUnavailable   = errors.New("role is not available on this server")
)

// RoleManager resolves and grants platform roles. Role operations may fail
// with a permission-denied condition outside this service's control.
type RoleManager interface {
	ResolveRole(ctx context.Context, channelID, name string) (string, error)
	GrantRole(ctx context.Context, channelID, userID, roleID string) error
}

// Receipt summarizes one completed purchase. RoleWarning carries a
// non-fatal role-grant failure that happened after the debit; the purchase
// itself stands.
type Receipt struct {
	Purchase        models.Purchase
	Item            models.ShopItem
	RemainingPoints int
	NewAchievements []string
	RoleWarning     string
}

// Shop validates affordability and fulfillment preconditions before handing
// the debit to the progression engine. The engine's zero clamp never
// rejects on its own, so the affordability check here is authoritative.
type Shop struct {
	db          *gorm.DB
	items       []models.ShopItem
	byKey       map[string]models.ShopItem
	store       *RecordStore
	progression *Progression
	roles       RoleManager
}

func NewShop(db *gorm.DB, items []models.ShopItem, store *RecordStore, progression *Progression, roles RoleManager) *Shop {
	byKey := make(map[string]models.ShopItem, len(items))
	for _, item := range items {
		byKey[item.Key] = item
	}
	return &Shop{
		db:          db,
		items:       items,
		byKey:       byKey,
		store:       store,
		progression: progression,
		roles:       roles,
	}
}

// Items returns the inventory in content-file order.
func (s *Shop) Items() []models.ShopItem {
	return s.items
}

// Purchase buys itemKey for userID. Roles are resolved before any point is
// deducted, so a missing role never leaves a partial charge. A role-grant
// failure after the debit is reported on the receipt, not rolled back.
func (s *Shop) Purchase(ctx context.Context, userID, channelID, itemKey string) (*Receipt, error) {
	item, ok := s.byKey[itemKey]
	if !ok {
		return nil, ErrItemNotFound
	}

	rec, err := s.store.Get(userID)
	if err != nil {
		return nil, err
	}
	if rec.Points < item.Price {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, rec.Points, item.Price)
	}

	roleID := ""
	if item.Role != "" {
		roleID, err = s.roles.ResolveRole(ctx, channelID, item.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrRoleUnavailable, item.Role)
		}
	}

	unlocked, err := s.progression.RecordPurchase(userID, item.Price)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		Item:            item,
		NewAchievements: unlocked,
		Purchase: models.Purchase{
			ID:          uuid.NewString(),
			UserID:      userID,
			ItemKey:     item.Key,
			Price:       item.Price,
			GrantedRole: item.Role,
			CreatedAt:   time.Now(),
		},
	}

	if roleID != "" {
		if err := s.roles.GrantRole(ctx, channelID, userID, roleID); err != nil {
			receipt.RoleWarning = fmt.Sprintf("could not grant role %s: %v", item.Role, err)
		} else {
			receipt.Purchase.RoleGranted = true
		}
	}

	if err := s.db.Create(&receipt.Purchase).Error; err != nil {
		// The debit already committed; the receipt row is audit only.
		log.Printf("⚠️ Failed to persist purchase receipt %s: %v", receipt.Purchase.ID, err)
	}

	updated, err := s.store.Get(userID)
	if err != nil {
		return nil, err
	}
	receipt.RemainingPoints = updated.Points

	return receipt, nil
}
