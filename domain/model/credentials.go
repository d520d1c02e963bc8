package model

import "time"

// Credentials is the full record kept by the credential store
type Credentials struct {
	AppID       string     `json:"app_id"`
	AppSecret   string     `json:"app_secret"`
	AccessToken string     `json:"access_token"`
	UserID      string     `json:"user_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Missing returns the names of required fields that are empty.
func (c Credentials) Missing() []string {
	var out []string
	if c.AppID == "" {
		out = append(out, "app_id")
	}
	if c.AppSecret == "" {
		out = append(out, "app_secret")
	}
	if c.AccessToken == "" {
		out = append(out, "access_token")
	}
	return out
}

// IsExpired reports whether the access token expiry has passed. Tokens
// without a known expiry are treated as valid.
func (c Credentials) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

// Session returns the request context for API calls made with these credentials
func (c Credentials) Session() Session {
	return Session{AccessToken: c.AccessToken, UserID: c.UserID}
}

// Merge applies the non-nil fields of p over c.
func (c Credentials) Merge(p CredentialsPatch) Credentials {
	if p.AppID != nil {
		c.AppID = *p.AppID
	}
	if p.AppSecret != nil {
		c.AppSecret = *p.AppSecret
	}
	if p.AccessToken != nil {
		c.AccessToken = *p.AccessToken
	}
	if p.UserID != nil {
		c.UserID = *p.UserID
	}
	if p.ExpiresAt != nil {
		t := p.ExpiresAt.UTC()
		c.ExpiresAt = &t
	}
	return c
}

// CredentialsPatch is a partial update; nil fields are left untouched on save
type CredentialsPatch struct {
	AppID       *string
	AppSecret   *string
	AccessToken *string
	UserID      *string
	ExpiresAt   *time.Time
}

// PatchFrom builds a patch carrying every non-empty field of c.
func PatchFrom(c Credentials) CredentialsPatch {
	var p CredentialsPatch
	if c.AppID != "" {
		p.AppID = &c.AppID
	}
	if c.AppSecret != "" {
		p.AppSecret = &c.AppSecret
	}
	if c.AccessToken != "" {
		p.AccessToken = &c.AccessToken
	}
	if c.UserID != "" {
		p.UserID = &c.UserID
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt
	}
	return p
}

// Session is the immutable per-call context: bearer token and resolved user id.
type Session struct {
	AccessToken string
	UserID      string
}

// WithUserID returns a copy of s bound to userID.
func (s Session) WithUserID(userID string) Session {
	s.UserID = userID
	return s
}
