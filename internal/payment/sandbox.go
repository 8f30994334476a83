package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SandboxIntent is the sandbox's record of one created intent.
type SandboxIntent struct {
	Reference string
	Amount    int64
	Currency  string
	Memo      string
	Settled   bool
}

// Sandbox is an in-process gateway for local runs and tests. Intents settle only
// when Settle is called.
type Sandbox struct {
	mu          sync.Mutex
	intents     map[string]*SandboxIntent
	unavailable bool
	secret      string
}

func NewSandbox(webhookSecret string) *Sandbox {
	return &Sandbox{
		intents: make(map[string]*SandboxIntent),
		secret:  webhookSecret,
	}
}

func (s *Sandbox) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, memo string) (Intent, error) {
	units, err := MinorUnits(amount, currency)
	if err != nil {
		return Intent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return Intent{}, fmt.Errorf("%w: sandbox create_intent", ErrUnavailable)
	}
	ref := "pi_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s.intents[ref] = &SandboxIntent{
		Reference: ref,
		Amount:    units,
		Currency:  strings.ToLower(currency),
		Memo:      memo,
	}
	return Intent{Reference: ref, ClientHandle: ref + "_secret"}, nil
}

func (s *Sandbox) IsSettled(ctx context.Context, reference string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return false, fmt.Errorf("%w: sandbox is_settled", ErrUnavailable)
	}
	in, ok := s.intents[reference]
	if !ok {
		return false, nil
	}
	return in.Settled, nil
}

// Settle marks the intent as paid. It reports false for unknown references.
func (s *Sandbox) Settle(reference string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[reference]
	if !ok {
		return false
	}
	in.Settled = true
	return true
}

func (s *Sandbox) SetUnavailable(down bool) {
	s.mu.Lock()
	s.unavailable = down
	s.mu.Unlock()
}

func (s *Sandbox) Intent(reference string) (SandboxIntent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[reference]
	if !ok {
		return SandboxIntent{}, false
	}
	return *in, true
}

type sandboxWebhook struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Reference string `json:"reference"`
}

// ParseWebhook accepts {"id","type","reference"} bodies whose signature equals
// the configured secret. An empty secret accepts any signature.
func (s *Sandbox) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if s.secret != "" && signature != s.secret {
		return WebhookEvent{}, ErrInvalidSignature
	}
	var body sandboxWebhook
	if err := json.Unmarshal(payload, &body); err != nil {
		return WebhookEvent{}, fmt.Errorf("sandbox webhook: %w", err)
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}
	if body.Type == "" {
		body.Type = "payment_intent.succeeded"
	}
	return WebhookEvent{ID: body.ID, Type: body.Type, Reference: body.Reference}, nil
}
