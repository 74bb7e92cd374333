package services

import (
	"context"
	"errors"
	"testing"

	"kandibot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRoleManager struct {
	resolveErr error
	grantErr   error
	granted    []string
}

func (f *fakeRoleManager) ResolveRole(_ context.Context, _, name string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "role-" + name, nil
}

func (f *fakeRoleManager) GrantRole(_ context.Context, _, _, roleID string) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.granted = append(f.granted, roleID)
	return nil
}

var testShopItems = []models.ShopItem{
	{Key: "vip", DisplayName: "VIP Role", Price: 100, Role: "VIP"},
	{Key: "badge", DisplayName: "Quiz Master Badge", Price: 50},
}

func newTestShop(t *testing.T, roles RoleManager) (*Shop, *RecordStore) {
	t.Helper()
	db := newTestDB(t)
	store := NewRecordStore(db)
	progression := NewProgression(store, newTestCatalog(t, testCatalogJSON))
	return NewShop(db, testShopItems, store, progression, roles), store
}

func fund(t *testing.T, store *RecordStore, userID string, points int) {
	t.Helper()
	_, err := store.Update(userID, func(_ *gorm.DB, rec *models.UserRecord) error {
		rec.Points = points
		return nil
	})
	require.NoError(t, err)
}

func TestShopPurchaseUnknownItem(t *testing.T) {
	shop, _ := newTestShop(t, &fakeRoleManager{})

	_, err := shop.Purchase(context.Background(), "user-1", "ch-1", "yacht")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestShopPurchaseInsufficientFundsLeavesRecordUntouched(t *testing.T) {
	shop, store := newTestShop(t, &fakeRoleManager{})
	fund(t, store, "user-1", 30)

	_, err := shop.Purchase(context.Background(), "user-1", "ch-1", "badge")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	rec, err := store.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, 30, rec.Points)
	assert.Equal(t, 0, rec.Purchases)
}

func TestShopPurchaseRoleUnavailableBeforeDebit(t *testing.T) {
	roles := &fakeRoleManager{resolveErr: errors.New("no such role")}
	shop, store := newTestShop(t, roles)
	fund(t, store, "user-1", 200)

	_, err := shop.Purchase(context.Background(), "user-1", "ch-1", "vip")
	require.ErrorIs(t, err, ErrRoleUnavailable)

	rec, err := store.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Points, "no debit on fulfillment failure")
	assert.Equal(t, 0, rec.Purchases)
}

func TestShopPurchaseSuccessGrantsRole(t *testing.T) {
	roles := &fakeRoleManager{}
	shop, store := newTestShop(t, roles)
	fund(t, store, "user-1", 150)

	receipt, err := shop.Purchase(context.Background(), "user-1", "ch-1", "vip")
	require.NoError(t, err)

	assert.Equal(t, 50, receipt.RemainingPoints)
	assert.True(t, receipt.Purchase.RoleGranted)
	assert.Empty(t, receipt.RoleWarning)
	assert.Equal(t, []string{"role-VIP"}, roles.granted)
	assert.Contains(t, receipt.NewAchievements, "Gimmie your money!!")

	rec, err := store.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.Points)
	assert.Equal(t, 1, rec.Purchases)
}

func TestShopPurchaseGrantFailureKeepsDebit(t *testing.T) {
	roles := &fakeRoleManager{grantErr: errors.New("missing permissions")}
	shop, store := newTestShop(t, roles)
	fund(t, store, "user-1", 150)

	receipt, err := shop.Purchase(context.Background(), "user-1", "ch-1", "vip")
	require.NoError(t, err, "grant failure after debit is a warning, not an error")

	assert.False(t, receipt.Purchase.RoleGranted)
	assert.Contains(t, receipt.RoleWarning, "VIP")
	assert.Equal(t, 50, receipt.RemainingPoints)

	rec, err := store.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.Points, "the purchase stands")
}

func TestShopPurchasePersistsReceipt(t *testing.T) {
	shop, store := newTestShop(t, &fakeRoleManager{})
	fund(t, store, "user-1", 60)

	receipt, err := shop.Purchase(context.Background(), "user-1", "ch-1", "badge")
	require.NoError(t, err)

	var rows []models.Purchase
	require.NoError(t, shop.db.Where("user_id = ?", "user-1").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, receipt.Purchase.ID, rows[0].ID)
	assert.Equal(t, "badge", rows[0].ItemKey)
	assert.Equal(t, 50, rows[0].Price)
	assert.False(t, rows[0].RoleGranted)
}

func TestShopPurchaseExactBalance(t *testing.T) {
	shop, store := newTestShop(t, &fakeRoleManager{})
	fund(t, store, "user-1", 50)

	receipt, err := shop.Purchase(context.Background(), "user-1", "ch-1", "badge")
	require.NoError(t, err)
	assert.Equal(t, 0, receipt.RemainingPoints)
}
