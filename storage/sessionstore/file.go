package sessionstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core/session"
)

type fileContent struct {
	Identity json.RawMessage `json:"identity,omitempty"`
	Token    string          `json:"token,omitempty"`
}

// FileStore persists one session in a JSON file readable by its owner only.
type FileStore struct {
	path string
}

var _ session.Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(context.Context) (*session.Identity, string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "reading session file")
	}
	var content fileContent
	if err := json.Unmarshal(b, &content); err != nil {
		return nil, "", errors.Wrap(err, "decoding session file")
	}
	identity, err := decodeIdentity(content.Identity)
	if err != nil {
		return nil, "", err
	}
	return identity, content.Token, nil
}

// Save writes identity and token in one file replacement, so a reader never sees one
// without the other.
func (s *FileStore) Save(_ context.Context, identity *session.Identity, token string) error {
	idb, err := encodeIdentity(identity)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(fileContent{Identity: idb, Token: token}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session file")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "creating session directory")
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "creating session file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing session file")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "securing session file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing session file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replacing session file")
}

func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}
