package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/session"
)

func TestDirectoryKeyHidesCredential(t *testing.T) {
	cred := session.FromSID("secret-sid")
	key := DirectoryKey("teams", cred)
	if !strings.HasPrefix(key, "relay:dir:teams:") {
		t.Fatalf("unexpected key %q", key)
	}
	if strings.Contains(key, "secret-sid") {
		t.Fatalf("credential leaked into key %q", key)
	}
	if key != DirectoryKey("teams", cred) {
		t.Fatal("key derivation is not deterministic")
	}
	if key == DirectoryKey("teams", session.FromSID("other")) {
		t.Fatal("different credentials share a key")
	}
	if key == DirectoryKey("subordinates", cred) {
		t.Fatal("different scopes share a key")
	}
}

func TestCacheCodecRoundTrip(t *testing.T) {
	members := []domain.TeamMember{{ID: "a@example.com", Name: "Alice"}, {ID: "b@example.com", Name: "b@example.com"}}
	raw, err := cborEnc.Marshal(members)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded []domain.TeamMember
	if err := cborDec.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != members[0] || decoded[1] != members[1] {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	cache := NewDirectoryCache(nil, time.Minute, nil)
	cache.Put(context.Background(), "teams", "sid=x", []string{"a"})
	var out []string
	if cache.Get(context.Background(), "teams", "sid=x", &out) {
		t.Fatal("disabled cache reported a hit")
	}
}
