package model

import "time"

// UserContact holds the token used to reach a user on the external notification channel.
type UserContact struct {
	UID         string    `gorm:"column:uid;primaryKey;size:128"`
	NotifyToken string    `gorm:"column:notify_token;size:255"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (UserContact) TableName() string {
	return "user_contacts"
}
