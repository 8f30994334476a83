package model

import "time"

type ReviewOutcome string

const (
	ReviewOutcomeGood ReviewOutcome = "good"
	ReviewOutcomeBad  ReviewOutcome = "bad"
)

func (o ReviewOutcome) Valid() bool {
	return o == ReviewOutcomeGood || o == ReviewOutcomeBad
}

type Review struct {
	ID          uint64        `gorm:"primaryKey;autoIncrement"`
	OrderID     uint64        `gorm:"column:order_id;uniqueIndex:uk_reviews_order_id;not null"`
	ItemID      uint64        `gorm:"column:item_id;index;not null"`
	ReviewerUID string        `gorm:"column:reviewer_uid;size:128;index;not null"`
	SellerUID   string        `gorm:"column:seller_uid;size:128;index:idx_reviews_seller_outcome;not null"`
	Outcome     ReviewOutcome `gorm:"column:outcome;size:16;index:idx_reviews_seller_outcome;not null"`
	Comment     string        `gorm:"column:comment;type:text;not null"`
	CreatedAt   time.Time     `gorm:"autoCreateTime"`
}

func (Review) TableName() string {
	return "reviews"
}
