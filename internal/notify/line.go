package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shinyyama/evolon-market/internal/repository"
)

// Line posts to a LINE Notify compatible endpoint using the recipient's
// personal token. Recipients without a token are skipped.
type Line struct {
	endpoint string
	contacts repository.ContactRepository
	client   *http.Client
}

func NewLine(endpoint string, contacts repository.ContactRepository, client *http.Client) *Line {
	if client == nil {
		client = http.DefaultClient
	}
	return &Line{endpoint: endpoint, contacts: contacts, client: client}
}

func (c *Line) Name() string { return "line" }

func (c *Line) Send(ctx context.Context, msg Message) error {
	contact, err := c.contacts.FindByUID(ctx, msg.RecipientUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("line: lookup token: %w", err)
	}
	if contact.NotifyToken == "" {
		return nil
	}
	return c.post(ctx, contact.NotifyToken, msg.Text())
}

func (c *Line) post(ctx context.Context, token, text string) error {
	form := url.Values{"message": {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("line: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
