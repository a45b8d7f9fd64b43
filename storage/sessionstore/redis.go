package sessionstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/NVK2907/sms-app-sub000/core/session"
)

const redisPrefix = "sms:session:"

// RedisBackend keeps sessions in redis, as two keys per session expiring together.
type RedisBackend struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

var _ Backend = (*RedisBackend)(nil)

func NewRedisBackend(client redis.UniversalClient, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl, now: time.Now}
}

// OpenRedis connects to addr and checks the server answers.
func OpenRedis(ctx context.Context, addr, password string, ttl time.Duration) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return NewRedisBackend(client, ttl), nil
}

func (b *RedisBackend) For(sid string) session.Store { return redisStore{b: b, sid: sid} }

func (b *RedisBackend) Close() error { return b.client.Close() }

type redisStore struct {
	b   *RedisBackend
	sid string
}

func (s redisStore) keys() (identityKey, tokenKey string) {
	return redisPrefix + s.sid + ":identity", redisPrefix + s.sid + ":token"
}

func (s redisStore) Load(ctx context.Context) (*session.Identity, string, error) {
	idKey, tokKey := s.keys()
	vals, err := s.b.client.MGet(ctx, idKey, tokKey).Result()
	if err != nil {
		return nil, "", errors.Wrap(err, "reading session")
	}
	var (
		identity *session.Identity
		token    string
	)
	if raw, ok := vals[0].(string); ok {
		if identity, err = decodeIdentity([]byte(raw)); err != nil {
			return nil, "", err
		}
	}
	if raw, ok := vals[1].(string); ok {
		token = raw
	}
	return identity, token, nil
}

// Save stores identity and token in one transaction. They expire after the backend TTL,
// or earlier when the token expires first.
func (s redisStore) Save(ctx context.Context, identity *session.Identity, token string) error {
	ttl := session.StoreTTL(token, s.b.ttl, s.b.now())
	if ttl < 0 {
		return s.Clear(ctx)
	}
	idb, err := encodeIdentity(identity)
	if err != nil {
		return err
	}
	idKey, tokKey := s.keys()
	_, err = s.b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, idKey, idb, ttl)
		pipe.Set(ctx, tokKey, token, ttl)
		return nil
	})
	return errors.Wrap(err, "saving session")
}

func (s redisStore) Clear(ctx context.Context) error {
	idKey, tokKey := s.keys()
	return errors.Wrap(s.b.client.Del(ctx, idKey, tokKey).Err(), "clearing session")
}
