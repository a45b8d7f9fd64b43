package sessionstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/session"
)

var ErrUnknownBackend = errors.New("unknown session backend")

// Backend keeps the persisted sessions of many portal visitors, keyed by session id.
type Backend interface {
	// For returns the session.Store of one visitor.
	For(sid string) session.Store
	Close() error
}

// Purger is implemented by backends whose expired sessions stay stored until deleted.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

func encodeIdentity(identity *session.Identity) ([]byte, error) {
	b, err := json.Marshal(identity)
	return b, errors.Wrap(err, "encoding identity")
}

func decodeIdentity(b []byte) (*session.Identity, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var identity *session.Identity
	if err := json.Unmarshal(b, &identity); err != nil {
		return nil, errors.Wrap(err, "decoding identity")
	}
	return identity, nil
}

// Open opens the session backend configured in conf.Portal.SessionBackend.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (Backend, error) {
	switch backend := strings.ToLower(conf.Portal.SessionBackend); backend {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "redis":
		return OpenRedis(ctx, conf.Portal.RedisAddr, conf.Portal.RedisPassword, conf.Portal.SessionTTL)
	case "postgres":
		return OpenSQL(ctx, conf.Portal.DatabaseURL, conf.Portal.SessionTTL, logger)
	default:
		return nil, errors.Wrap(ErrUnknownBackend, backend)
	}
}
