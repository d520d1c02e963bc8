package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"threadsctl/domain/model"
	"threadsctl/infrastructure/logger"
)

// CredentialRepository stores credentials as a JSON file readable only by its owner.
// Save is a read-merge-write cycle and is not atomic across processes.
type CredentialRepository struct {
	path      string
	overrides model.Credentials
}

// NewCredentialRepository creates a file-backed store. Non-empty fields in
// overrides (typically from the environment) win over the file on load.
func NewCredentialRepository(path string, overrides model.Credentials) *CredentialRepository {
	return &CredentialRepository{path: path, overrides: overrides}
}

func (r *CredentialRepository) Load(ctx context.Context) (model.Credentials, error) {
	c, err := r.Peek(ctx)
	if err != nil {
		return c, err
	}
	if missing := c.Missing(); len(missing) > 0 {
		return c, &model.ConfigError{Kind: model.ConfigMissingCredentials, Fields: missing}
	}
	return c, nil
}

func (r *CredentialRepository) Peek(ctx context.Context) (model.Credentials, error) {
	c, err := r.read()
	if err != nil {
		return model.Credentials{}, err
	}
	return c.Merge(model.PatchFrom(r.overrides)), nil
}

func (r *CredentialRepository) Save(ctx context.Context, patch model.CredentialsPatch) error {
	current, err := r.read()
	if err != nil {
		return err
	}
	merged := current.Merge(patch)

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	raw, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(r.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(r.path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict credentials file: %w", err)
	}
	logger.GetLogger().WithField("path", r.path).Debug("Credentials saved")
	return nil
}

func (r *CredentialRepository) read() (model.Credentials, error) {
	var c model.Credentials
	info, err := os.Stat(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("failed to stat credentials file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		logger.GetLogger().WithFields(map[string]interface{}{
			"path": r.path,
			"mode": fmt.Sprintf("%#o", info.Mode().Perm()),
		}).Warn("Credentials file is readable by other users; run chmod 600 on it")
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return c, fmt.Errorf("failed to read credentials file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("failed to parse credentials file %s: %w", r.path, err)
	}
	return c, nil
}
