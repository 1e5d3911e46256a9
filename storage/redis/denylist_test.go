package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDenylist(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dl := NewDenylist(client)

	if revoked, err := dl.IsRevoked(ctx, "unknown"); err != nil || revoked {
		t.Errorf("IsRevoked(unknown) = %t, %v; want false, nil", revoked, err)
	}

	if err := dl.Revoke(ctx, "jti1", time.Minute); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if revoked, err := dl.IsRevoked(ctx, "jti1"); err != nil || !revoked {
		t.Errorf("IsRevoked(jti1) = %t, %v; want true, nil", revoked, err)
	}

	// entry disappears once the token would have expired anyway
	mr.FastForward(2 * time.Minute)
	if revoked, err := dl.IsRevoked(ctx, "jti1"); err != nil || revoked {
		t.Errorf("IsRevoked(jti1) after expiry = %t, %v; want false, nil", revoked, err)
	}

	// revoking an already-expired token is a no-op
	if err := dl.Revoke(ctx, "jti2", -time.Second); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if revoked, _ := dl.IsRevoked(ctx, "jti2"); revoked {
		t.Error("IsRevoked(jti2) = true, want false")
	}
}
