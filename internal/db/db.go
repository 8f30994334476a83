package db

import (
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/shinyyama/evolon-market/internal/config"
	"github.com/shinyyama/evolon-market/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func BuildDSN(cfg *config.Config) string {
	mc := gomysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}

	// Prefer Cloud SQL unix socket when INSTANCE_CONNECTION_NAME is provided.
	switch host := cfg.DBHost; {
	case cfg.InstanceConnectionName != "":
		mc.Net, mc.Addr = "unix", fmt.Sprintf("/cloudsql/%s", cfg.InstanceConnectionName)
	case strings.HasPrefix(host, "tcp(") && strings.HasSuffix(host, ")"):
		mc.Net, mc.Addr = "tcp", strings.TrimSuffix(strings.TrimPrefix(host, "tcp("), ")")
	case strings.HasPrefix(host, "unix(") && strings.HasSuffix(host, ")"):
		mc.Net, mc.Addr = "unix", strings.TrimSuffix(strings.TrimPrefix(host, "unix("), ")")
	case strings.HasPrefix(host, "/"):
		mc.Net, mc.Addr = "unix", host
	default:
		mc.Net, mc.Addr = "tcp", fmt.Sprintf("%s:%s", host, cfg.DBPort)
	}
	return mc.FormatDSN()
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)
	gcfg := &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(mysql.Open(dsn), gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Item{},
		&model.Order{},
		&model.Review{},
		&model.Notification{},
		&model.UserContact{},
	)
}
