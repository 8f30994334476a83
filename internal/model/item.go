package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemStatusListed    ItemStatus = "listed"
	ItemStatusReserved  ItemStatus = "reserved"
	ItemStatusSold      ItemStatus = "sold"
	ItemStatusSuspended ItemStatus = "suspended"
)

// Label is the display text shown to users. It is derived, never persisted.
func (s ItemStatus) Label() string {
	switch s {
	case ItemStatusListed:
		return "On sale"
	case ItemStatusReserved:
		return "Awaiting payment"
	case ItemStatusSold:
		return "Sold"
	case ItemStatusSuspended:
		return "Suspended"
	default:
		return string(s)
	}
}

type Item struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	SellerUID   string          `gorm:"column:seller_uid;size:128;index;not null"`
	Title       string          `gorm:"size:120;not null"`
	Description string          `gorm:"type:text;not null"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency    string          `gorm:"size:8;not null"`
	Status      ItemStatus      `gorm:"column:status;size:32;index;not null"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

func (Item) TableName() string {
	return "items"
}
