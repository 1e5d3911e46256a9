package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	dl := NewMemoryDenylist()

	if revoked, _ := dl.IsRevoked(ctx, "unknown"); revoked {
		t.Error("unknown jti should not be revoked")
	}

	if err := dl.Revoke(ctx, "jti1", time.Minute); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if revoked, _ := dl.IsRevoked(ctx, "jti1"); !revoked {
		t.Error("jti1 should be revoked")
	}

	// entries expire with the token they shadow
	if err := dl.Revoke(ctx, "jti2", -time.Second); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if revoked, _ := dl.IsRevoked(ctx, "jti2"); revoked {
		t.Error("expired jti2 should no longer be revoked")
	}
}
