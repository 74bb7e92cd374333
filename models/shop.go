// models/shop.go
package models

import "time"

// ShopItem is one purchasable entry from data/shop_items.json. Items with a
// Role grant that platform role on successful purchase.
type ShopItem struct {
	Key         string `json:"-"`
	DisplayName string `json:"name"`
	Price       int    `json:"price"`
	Role        string `json:"role,omitempty"`
}

// Purchase is the receipt row written for every completed shop transaction.
type Purchase struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"not null;index;size:64" json:"user_id"`
	ItemKey     string    `gorm:"not null;size:100" json:"item_key"`
	Price       int       `gorm:"not null" json:"price"`
	GrantedRole string    `gorm:"size:100" json:"granted_role,omitempty"`
	RoleGranted bool      `gorm:"default:false" json:"role_granted"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Purchase) TableName() string {
	return "purchases"
}
