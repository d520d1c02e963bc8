package persistence

import (
	"context"
	"fmt"
	"time"

	"threadsctl/domain/model"

	"github.com/redis/go-redis/v9"
)

// RedisCredentialRepository keeps the credential record in a redis hash.
// Save writes only the supplied fields with HSET, so concurrent partial
// saves do not clobber each other.
type RedisCredentialRepository struct {
	client    redis.UniversalClient
	key       string
	overrides model.Credentials
}

func NewRedisCredentialRepository(client redis.UniversalClient, key string, overrides model.Credentials) *RedisCredentialRepository {
	return &RedisCredentialRepository{client: client, key: key, overrides: overrides}
}

// NewRedisClient builds a client from host/port settings
func NewRedisClient(addr, username, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})
}

func (r *RedisCredentialRepository) Load(ctx context.Context) (model.Credentials, error) {
	c, err := r.Peek(ctx)
	if err != nil {
		return c, err
	}
	if missing := c.Missing(); len(missing) > 0 {
		return c, &model.ConfigError{Kind: model.ConfigMissingCredentials, Fields: missing}
	}
	return c, nil
}

func (r *RedisCredentialRepository) Peek(ctx context.Context) (model.Credentials, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return model.Credentials{}, fmt.Errorf("failed to read credentials from redis: %w", err)
	}
	c := model.Credentials{
		AppID:       fields["app_id"],
		AppSecret:   fields["app_secret"],
		AccessToken: fields["access_token"],
		UserID:      fields["user_id"],
	}
	if v := fields["expires_at"]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.ExpiresAt = &t
		}
	}
	return c.Merge(model.PatchFrom(r.overrides)), nil
}

func (r *RedisCredentialRepository) Save(ctx context.Context, patch model.CredentialsPatch) error {
	values := patchValues(patch)
	if len(values) == 0 {
		return nil
	}
	if err := r.client.HSet(ctx, r.key, values).Err(); err != nil {
		return fmt.Errorf("failed to write credentials to redis: %w", err)
	}
	return nil
}

func patchValues(p model.CredentialsPatch) map[string]interface{} {
	values := map[string]interface{}{}
	if p.AppID != nil {
		values["app_id"] = *p.AppID
	}
	if p.AppSecret != nil {
		values["app_secret"] = *p.AppSecret
	}
	if p.AccessToken != nil {
		values["access_token"] = *p.AccessToken
	}
	if p.UserID != nil {
		values["user_id"] = *p.UserID
	}
	if p.ExpiresAt != nil {
		values["expires_at"] = p.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return values
}
