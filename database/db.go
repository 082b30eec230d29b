package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the MySQL connection with pooling and retry. The handle is a
// package singleton; repeated calls return the existing one.
func Connect() (*gorm.DB, error) {
	if DB != nil {
		return DB, nil
	}

	dsn, pass, err := buildDSN()
	if err != nil {
		return nil, err
	}

	safeDSN := dsn
	if pass != "" {
		safeDSN = strings.Replace(safeDSN, pass, "******", 1)
	}
	log.Printf("[database] connecting: %s", safeDSN)

	db, err := openWithRetry(dsn)
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(atoi(getenv("DB_MAX_OPEN_CONNS", "25")))
	sqlDB.SetMaxIdleConns(atoi(getenv("DB_MAX_IDLE_CONNS", "25")))
	sqlDB.SetConnMaxLifetime(time.Duration(atoi(getenv("DB_CONN_MAX_LIFETIME", "3600"))) * time.Second)

	if getenv("DB_PING_ON_CONNECT", "true") == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
	}

	DB = db
	return DB, nil
}

// buildDSN assembles the MySQL DSN from DB_* env vars. DB_DSN overrides the
// assembled form entirely. Returns the DSN and the password so callers can
// mask it in logs.
func buildDSN() (string, string, error) {
	pass := getenv("DB_PASS", "")
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn, pass, nil
	}

	params := getenv("DB_PARAMS", "charset=utf8mb4&parseTime=True&loc=Local")

	if !strings.Contains(params, "tls=") {
		switch getenv("DB_TLS", "true") {
		case "true", "preferred":
			if getenv("DB_TLS_VERIFY", "false") == "true" {
				if err := registerVerifiedTLS(); err != nil {
					return "", "", err
				}
				params += "&tls=custom"
			} else {
				params += "&tls=true"
			}
		}
	}
	for _, p := range []string{"timeout", "readTimeout", "writeTimeout"} {
		if !strings.Contains(params, p+"=") {
			params += "&" + p + "=10s"
		}
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s",
		getenv("DB_USER", "root"), pass,
		getenv("DB_HOST", "127.0.0.1"), getenv("DB_PORT", "3306"),
		getenv("DB_NAME", "storefront"), params)
	return dsn, pass, nil
}

// registerVerifiedTLS registers the "custom" TLS config with the mysql driver,
// loading a CA bundle and optional client cert from env paths.
func registerVerifiedTLS() error {
	cfg := &tls.Config{}
	if caPath := getenv("DB_TLS_CA_PATH", ""); caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return fmt.Errorf("reading DB TLS CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return errors.New("no usable certs in DB TLS CA file")
		}
		cfg.RootCAs = pool
	}
	certPath := getenv("DB_TLS_CLIENT_CERT", "")
	keyPath := getenv("DB_TLS_CLIENT_KEY", "")
	if certPath != "" && keyPath != "" {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return fmt.Errorf("loading DB client cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return mysqldriver.RegisterTLSConfig("custom", cfg)
}

func openWithRetry(dsn string) (*gorm.DB, error) {
	logMode := logger.Silent
	if strings.ToLower(getenv("ENV", "development")) == "development" {
		logMode = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logMode)}

	retries := atoi(getenv("DB_CONNECT_RETRIES", "5"))
	backoff := time.Second
	var db *gorm.DB
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		db, err = gorm.Open(gormmysql.Open(dsn), cfg)
		if err == nil {
			return db, nil
		}
		log.Printf("[database] connect attempt %d failed: %v", attempt+1, err)
		time.Sleep(backoff)
		backoff *= 2
	}
	return nil, err
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	if v <= 0 {
		return 0
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}
