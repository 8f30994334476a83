package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("AUTH_MODE", "header")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port=%q", cfg.Port)
	}
	if cfg.PaymentGateway != GatewaySandbox {
		t.Fatalf("gateway=%q", cfg.PaymentGateway)
	}
	if cfg.GatewayTimeout != 5*time.Second {
		t.Fatalf("gateway timeout=%v", cfg.GatewayTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers=%v", cfg.KafkaBrokers)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Store:           StoreMemory,
			PaymentGateway:  GatewaySandbox,
			AuthMode:        AuthHeader,
			PaymentCurrency: "jpy",
			GatewayTimeout:  time.Second,
			NotifyWorkers:   1,
			NotifyQueueSize: 1,
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid memory", func(c *Config) {}, false},
		{"mysql without credentials", func(c *Config) { c.Store = StoreMySQL }, true},
		{"mysql with cloud sql", func(c *Config) {
			c.Store = StoreMySQL
			c.DBUser, c.DBName, c.InstanceConnectionName = "app", "market", "proj:region:inst"
		}, false},
		{"stripe without key", func(c *Config) { c.PaymentGateway = GatewayStripe }, true},
		{"firebase without project", func(c *Config) { c.AuthMode = AuthFirebase }, true},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, true},
		{"zero timeout", func(c *Config) { c.GatewayTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
