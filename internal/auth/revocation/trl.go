// Package revocation maintains the token revocation list consulted on every
// authenticated request. Revoked token ids (jti) are held until the token
// would have expired anyway.
package revocation

import (
	"context"
	"fmt"
	"time"
)

// TokenRevocationList tracks revoked token ids.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close()
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	return nil
}
