package repository

import (
	"context"

	"threadsctl/domain/model"
)

// ICredentialStore persists the single credential record used by the CLI
type ICredentialStore interface {
	// Load returns the stored credentials, failing with *model.ConfigError
	// when app_id, app_secret or access_token is missing.
	Load(ctx context.Context) (model.Credentials, error)
	// Peek returns whatever is stored without validation.
	Peek(ctx context.Context) (model.Credentials, error)
	// Save merges the non-nil patch fields over the stored record.
	Save(ctx context.Context, patch model.CredentialsPatch) error
}
