package config

import (
	"fmt"
	"strings"
	"time"
)

// Required names a setting a binary cannot start without.
type Required string

// checkoutCalls is the most broker calls one checkout makes in sequence:
// get_order, settle, reserve, release, payment and the payment lookup.
const checkoutCalls = 6

const (
	RequireMongo     Required = "MONGO_URI"
	RequireJWTSecret Required = "JWT_SECRET"
)

// Validate reports the first required setting that is missing or an
// unsupported transport/store selection.
func (c Config) Validate(required ...Required) error {
	for _, key := range required {
		switch key {
		case RequireMongo:
			if c.Store == StoreMongo && c.MongoURI == "" {
				return fmt.Errorf("ENV %s is required", key)
			}
		case RequireJWTSecret:
			if c.JWTSecret == "" {
				return fmt.Errorf("ENV %s is required", key)
			}
		}
	}

	switch c.Transport {
	case TransportLocal, TransportRedis:
	default:
		return fmt.Errorf("unsupported TRANSPORT %q", c.Transport)
	}
	switch c.Store {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unsupported STORE %q", c.Store)
	}
	if limit := time.Duration(checkoutCalls) * c.BrokerTimeout; c.SettleTimeout <= limit {
		return fmt.Errorf("CHECKOUT_SETTLE_TIMEOUT (%s) must exceed %d broker timeouts (%s)", c.SettleTimeout, checkoutCalls, limit)
	}
	if c.Transport == TransportRedis && strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("ENV REDIS_ADDR is required for redis transport")
	}
	return nil
}
