package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/godaddy/spree-ccavenue-api/database"
)

// RedisClient is an optional shared Redis client used as the token revocation
// store. It is nil when REDIS_ADDR is not configured; revocation then falls
// back to the revoked_tokens table.
var RedisClient *redis.Client

func init() {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return
	}
	opts := &redis.Options{Addr: addr}
	if p := os.Getenv("REDIS_PASS"); p != "" {
		opts.Password = p
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		var dbn int
		_, _ = fmt.Sscanf(dbStr, "%d", &dbn)
		opts.DB = dbn
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(context.Background()).Err(); err != nil {
		fmt.Printf("warning: redis ping failed: %v\n", err)
		// don't fail startup for redis issues; revocation falls back to DB
		return
	}
	RedisClient = rc
}

// GenerateAdminToken issues a short-lived HS256 access token for an admin.
func GenerateAdminToken(id int64, username string) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := time.Now()
	jti, err := generateJTI(32)
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"id":       id,
		"username": username,
		"role":     "admin",
		"exp":      now.Add(6 * time.Hour).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      jti,
		"aud":      os.Getenv("JWT_AUD"),
		"iss":      os.Getenv("JWT_ISS"),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAccessToken parses and validates an access token: exact HS256,
// exp/nbf, aud/iss when configured, and jti revocation.
func ValidateAccessToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, nil, errors.New("JWT_SECRET is not set")
	}
	token, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Require exact HS256 algorithm to avoid algorithm confusion.
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return token, nil, errors.New("invalid claims")
	}

	now := time.Now()
	if expRaw, ok := claims["exp"].(float64); ok && now.Unix() > int64(expRaw) {
		return token, nil, errors.New("token expired")
	}
	if nbfRaw, ok := claims["nbf"].(float64); ok && now.Unix() < int64(nbfRaw) {
		return token, nil, errors.New("token not yet valid")
	}
	if audEnv := os.Getenv("JWT_AUD"); audEnv != "" {
		if aud, ok := claims["aud"].(string); !ok || aud != audEnv {
			return token, nil, errors.New("invalid audience")
		}
	}
	if issEnv := os.Getenv("JWT_ISS"); issEnv != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != issEnv {
			return token, nil, errors.New("invalid issuer")
		}
	}

	// jti revocation: Redis blacklist first (if configured), else revoked_tokens table
	if jtiRaw, ok := claims["jti"].(string); ok && jtiRaw != "" {
		if RedisClient != nil {
			res, err := RedisClient.Get(context.Background(), "jwt:blacklist:"+jtiRaw).Result()
			if err == nil && res == "1" {
				return token, nil, errors.New("token revoked")
			}
			// ignore redis errors (do not fail auth due to redis outage)
		} else if database.DB != nil {
			var rec struct {
				ID string `gorm:"primaryKey"`
			}
			err := database.DB.Table("revoked_tokens").Where("id = ?", jtiRaw).First(&rec).Error
			if err == nil {
				return token, nil, errors.New("token revoked")
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				// ignore DB errors (do not fail auth because of DB outage)
				_ = err
			}
		}
	}

	return token, claims, nil
}

// RevokeJTI inserts a jti into the revocation store: Redis with TTL when
// configured, else the revoked_tokens table.
func RevokeJTI(jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	if RedisClient != nil {
		return RedisClient.Set(context.Background(), "jwt:blacklist:"+jti, "1", ttl).Err()
	}
	if database.DB != nil {
		res := database.DB.Exec("INSERT INTO revoked_tokens (id, revoked_at) VALUES (?, ?) ON DUPLICATE KEY UPDATE revoked_at = VALUES(revoked_at)", jti, time.Now())
		return res.Error
	}
	return errors.New("no revocation store configured")
}

// generateJTI creates a URL-safe random identifier used as JWT ID
func generateJTI(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	const hex = "0123456789abcdef"
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = hex[int(b[i])%len(hex)]
	}
	return string(out), nil
}
