package db

import (
	"strings"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/shinyyama/evolon-market/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantNet  string
		wantAddr string
	}{
		{"host and port", config.Config{DBHost: "db.local", DBPort: "3307"}, "tcp", "db.local:3307"},
		{"explicit tcp", config.Config{DBHost: "tcp(10.0.0.1:3306)"}, "tcp", "10.0.0.1:3306"},
		{"explicit unix", config.Config{DBHost: "unix(/tmp/mysql.sock)"}, "unix", "/tmp/mysql.sock"},
		{"bare socket path", config.Config{DBHost: "/var/run/mysqld.sock"}, "unix", "/var/run/mysqld.sock"},
		{"cloud sql", config.Config{DBHost: "ignored", InstanceConnectionName: "p:r:i"}, "unix", "/cloudsql/p:r:i"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.DBUser, tt.cfg.DBPassword, tt.cfg.DBName = "app", "secret", "market"
			dsn := BuildDSN(&tt.cfg)
			parsed, err := gomysql.ParseDSN(dsn)
			if err != nil {
				t.Fatalf("ParseDSN(%q): %v", dsn, err)
			}
			if parsed.Net != tt.wantNet || parsed.Addr != tt.wantAddr {
				t.Fatalf("got %s(%s) want %s(%s)", parsed.Net, parsed.Addr, tt.wantNet, tt.wantAddr)
			}
			if parsed.User != "app" || parsed.DBName != "market" || !parsed.ParseTime {
				t.Fatalf("unexpected dsn %q", dsn)
			}
			if !strings.Contains(dsn, "charset=utf8mb4") {
				t.Fatalf("charset missing in %q", dsn)
			}
		})
	}
}
