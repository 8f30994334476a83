package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderState string

const (
	OrderStatePendingPayment OrderState = "pending_payment"
	OrderStatePurchased      OrderState = "purchased"
	OrderStateShipped        OrderState = "shipped"
	OrderStateDelivered      OrderState = "delivered"
	OrderStateCompleted      OrderState = "completed"
)

var orderStateRank = map[OrderState]int{
	OrderStatePendingPayment: 1,
	OrderStatePurchased:      2,
	OrderStateShipped:        3,
	OrderStateDelivered:      4,
	OrderStateCompleted:      5,
}

// Rank orders states along the lifecycle; unknown states rank 0.
func (s OrderState) Rank() int {
	return orderStateRank[s]
}

func (s OrderState) Terminal() bool {
	return s == OrderStateCompleted
}

func (s OrderState) Label() string {
	switch s {
	case OrderStatePendingPayment:
		return "Awaiting payment"
	case OrderStatePurchased:
		return "Awaiting shipment"
	case OrderStateShipped:
		return "Shipped"
	case OrderStateDelivered:
		return "Delivered"
	case OrderStateCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

type Order struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement"`
	ItemID           uint64          `gorm:"column:item_id;index;not null"`
	ItemTitle        string          `gorm:"column:item_title;size:120;not null"`
	BuyerUID         string          `gorm:"column:buyer_uid;size:128;index;not null"`
	SellerUID        string          `gorm:"column:seller_uid;size:128;index;not null"`
	Price            decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
	Currency         string          `gorm:"column:currency;size:8;not null"`
	PaymentReference string          `gorm:"column:payment_reference;size:255;uniqueIndex:uk_orders_payment_reference;not null"`
	State            OrderState      `gorm:"column:state;size:32;index;not null"`
	PurchasedAt      *time.Time      `gorm:"column:purchased_at"`
	ShippedAt        *time.Time      `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time      `gorm:"column:delivered_at"`
	CompletedAt      *time.Time      `gorm:"column:completed_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// TimestampColumn names the column stamped when an order enters state s.
func TimestampColumn(s OrderState) string {
	switch s {
	case OrderStatePurchased:
		return "purchased_at"
	case OrderStateShipped:
		return "shipped_at"
	case OrderStateDelivered:
		return "delivered_at"
	case OrderStateCompleted:
		return "completed_at"
	default:
		return ""
	}
}

// Stamp sets the in-memory timestamp matching state s.
func (o *Order) Stamp(s OrderState, at time.Time) {
	t := at
	switch s {
	case OrderStatePurchased:
		o.PurchasedAt = &t
	case OrderStateShipped:
		o.ShippedAt = &t
	case OrderStateDelivered:
		o.DeliveredAt = &t
	case OrderStateCompleted:
		o.CompletedAt = &t
	}
}
