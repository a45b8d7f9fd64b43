package sessionstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/session"
)

const schema = `CREATE TABLE IF NOT EXISTS portal_sessions (
	sid        TEXT PRIMARY KEY,
	identity   JSONB NOT NULL,
	token      TEXT NOT NULL,
	expires_at TIMESTAMPTZ
)`

type sessionRow struct {
	Identity  []byte       `db:"identity"`
	Token     string       `db:"token"`
	ExpiresAt sql.NullTime `db:"expires_at"`
}

// SQLBackend keeps sessions in a postgres table, one row per session.
type SQLBackend struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

var (
	_ Backend = (*SQLBackend)(nil)
	_ Purger  = (*SQLBackend)(nil)
)

func NewSQLBackend(db *sqlx.DB, ttl time.Duration) *SQLBackend {
	return &SQLBackend{db: db, ttl: ttl, now: time.Now}
}

// OpenSQL connects to the database, waiting for it to be ready, and creates the
// sessions table if needed.
func OpenSQL(ctx context.Context, url string, ttl time.Duration, logger core.Logger) (*SQLBackend, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	b := NewSQLBackend(db, ttl)
	if err := b.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB, logger core.Logger) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if logger != nil {
			logger.Debug("sessionstore: database not ready", err, map[string]interface{}{"attempt": attempts})
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func (b *SQLBackend) Migrate(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "creating sessions table")
}

func (b *SQLBackend) For(sid string) session.Store { return sqlStore{b: b, sid: sid} }

func (b *SQLBackend) Close() error { return b.db.Close() }

// Purge deletes the expired sessions.
func (b *SQLBackend) Purge(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`, b.now())
	if err != nil {
		return 0, errors.Wrap(err, "purging sessions")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "purging sessions")
}

type sqlStore struct {
	b   *SQLBackend
	sid string
}

func (s sqlStore) Load(ctx context.Context) (*session.Identity, string, error) {
	var row sessionRow
	err := s.b.db.GetContext(ctx, &row, `SELECT identity, token, expires_at FROM portal_sessions WHERE sid = $1`, s.sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "reading session")
	}
	if row.ExpiresAt.Valid && !row.ExpiresAt.Time.After(s.b.now()) {
		return nil, "", nil
	}
	identity, err := decodeIdentity(row.Identity)
	if err != nil {
		return nil, "", err
	}
	return identity, row.Token, nil
}

func (s sqlStore) Save(ctx context.Context, identity *session.Identity, token string) error {
	idb, err := encodeIdentity(identity)
	if err != nil {
		return err
	}
	var expiresAt sql.NullTime
	if ttl := session.StoreTTL(token, s.b.ttl, s.b.now()); ttl != 0 {
		expiresAt = sql.NullTime{Time: s.b.now().Add(ttl), Valid: true}
	}
	_, err = s.b.db.ExecContext(ctx, `
		INSERT INTO portal_sessions (sid, identity, token, expires_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (sid) DO UPDATE SET identity = EXCLUDED.identity, token = EXCLUDED.token, expires_at = EXCLUDED.expires_at`,
		s.sid, idb, token, expiresAt,
	)
	return errors.Wrap(err, "saving session")
}

func (s sqlStore) Clear(ctx context.Context) error {
	_, err := s.b.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE sid = $1`, s.sid)
	return errors.Wrap(err, "clearing session")
}
