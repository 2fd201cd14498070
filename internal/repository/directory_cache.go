package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/spec-kit/ticket-relay/internal/session"
)

const directoryKeyPrefix = "relay:dir:"

// DirectoryCache keeps short-lived copies of user directory lookups. Entries
// are scoped to the credential that fetched them, so one user never reads
// another user's view of the directory.
type DirectoryCache interface {
	Get(ctx context.Context, scope string, cred session.Credential, v any) bool
	Put(ctx context.Context, scope string, cred session.Credential, v any)
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("repository: cbor encoder: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("repository: cbor decoder: " + err.Error())
	}
}

type redisDirectoryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDirectoryCache returns a Redis-backed cache, or a no-op cache when
// client is nil or ttl is not positive.
func NewDirectoryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) DirectoryCache {
	if client == nil || ttl <= 0 {
		return noopDirectoryCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisDirectoryCache{client: client, ttl: ttl, logger: logger}
}

// DirectoryKey derives the cache key for scope and cred. The credential is
// hashed so it never sits in Redis in clear text.
func DirectoryKey(scope string, cred session.Credential) string {
	sum := blake2b.Sum256([]byte(cred.String()))
	return directoryKeyPrefix + scope + ":" + hex.EncodeToString(sum[:16])
}

func (c *redisDirectoryCache) Get(ctx context.Context, scope string, cred session.Credential, v any) bool {
	raw, err := c.client.Get(ctx, DirectoryKey(scope, cred)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("directory cache read failed", zap.String("scope", scope), zap.Error(err))
		}
		return false
	}
	if err := cborDec.Unmarshal(raw, v); err != nil {
		c.logger.Warn("directory cache entry undecodable", zap.String("scope", scope), zap.Error(err))
		return false
	}
	return true
}

func (c *redisDirectoryCache) Put(ctx context.Context, scope string, cred session.Credential, v any) {
	raw, err := cborEnc.Marshal(v)
	if err != nil {
		c.logger.Warn("directory cache encode failed", zap.String("scope", scope), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, DirectoryKey(scope, cred), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("directory cache write failed", zap.String("scope", scope), zap.Error(err))
	}
}

type noopDirectoryCache struct{}

func (noopDirectoryCache) Get(context.Context, string, session.Credential, any) bool { return false }

func (noopDirectoryCache) Put(context.Context, string, session.Credential, any) {}
