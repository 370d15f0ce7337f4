package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDatabase establishes a connection using configuration values and performs automatic migrations.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	cfg := Get()
	conn, err := Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	// 启动期做一次 Ping，提前暴露网络/认证问题（否则错误可能延后到第一次查询）
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	if err := Migrate(conn, modelDefs...); err != nil {
		log.Fatalf("auto migration failed: %v", err)
	}

	db = conn
	return db
}

// Open connects to the configured driver without migrating.
func Open(cfg AppConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	// Configure GORM logger: derive level from app LogLevel and raise slow-sql threshold to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// Foreign keys stay enabled: deleting a user removes its content through ON DELETE CASCADE.
	gormCfg := &gorm.Config{
		Logger:         gLogger,
		TranslateError: true,
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver == "sqlite" {
		// single writer avoids "database is locked" under concurrent requests
		sqlDB.SetMaxOpenConns(1)
		return conn, nil
	}

	// 连接池参数：适中规模 + 更积极的连接回收，减少“bad idle connection”噪音
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	return conn, nil
}

// Migrate creates or extends the tables of the given models in order.
// Users must be migrated before the content tables that reference them.
func Migrate(conn *gorm.DB, modelDefs ...interface{}) error {
	for _, model := range modelDefs {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

func dialectorFor(cfg AppConfig) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
				cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		path := cfg.SQLitePath
		if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		if !strings.Contains(path, "?") {
			path += "?_foreign_keys=on"
		}
		return sqlite.Open(path), nil
	case "mysql", "":
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.DBUser,
				cfg.DBPassword,
				cfg.DBHost,
				cfg.DBPort,
				cfg.DBName,
			)
		}
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "":
		// Suppress per-statement logs; keep warnings (including slow SQL)
		return logger.Warn
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// DB provides access to initialized gorm DB instance.
func DB() *gorm.DB {
	if db == nil {
		log.Fatal("database not initialized, call InitDatabase first")
	}
	return db
}
