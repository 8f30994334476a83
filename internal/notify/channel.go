// Package notify delivers order events to users over best-effort channels.
package notify

import "context"

// Event names carried by Message.Event.
const (
	EventOrderPurchased = "order.purchased"
	EventOrderShipped   = "order.shipped"
	EventOrderDelivered = "order.delivered"
	EventOrderCompleted = "order.completed"
)

type Message struct {
	Event        string `json:"event"`
	RecipientUID string `json:"recipientUid"`
	OrderID      uint64 `json:"orderId"`
	ItemID       uint64 `json:"itemId"`
	Title        string `json:"title"`
	Body         string `json:"body"`
}

// Text is the single-line form used by plain-text channels.
func (m Message) Text() string {
	if m.Body == "" {
		return m.Title
	}
	return m.Title + "\n" + m.Body
}

type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
