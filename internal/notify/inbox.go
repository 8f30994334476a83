package notify

import (
	"context"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

// Inbox stores the message as an in-app notification row.
type Inbox struct {
	repo repository.NotificationRepository
}

func NewInbox(repo repository.NotificationRepository) *Inbox {
	return &Inbox{repo: repo}
}

func (c *Inbox) Name() string { return "inbox" }

func (c *Inbox) Send(ctx context.Context, msg Message) error {
	if msg.RecipientUID == "" {
		return nil
	}
	n := &model.Notification{
		UserUID: msg.RecipientUID,
		Type:    msg.Event,
		Title:   msg.Title,
		Body:    msg.Body,
	}
	if msg.ItemID != 0 {
		itemID := msg.ItemID
		n.ItemID = &itemID
	}
	if msg.OrderID != 0 {
		orderID := msg.OrderID
		n.OrderID = &orderID
	}
	return c.repo.Create(ctx, n)
}
