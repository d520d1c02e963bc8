package model

import "time"

type MediaType string

const (
	MediaText     MediaType = "TEXT"
	MediaImage    MediaType = "IMAGE"
	MediaVideo    MediaType = "VIDEO"
	MediaCarousel MediaType = "CAROUSEL"
)

type ContainerStatus string

const (
	StatusInProgress ContainerStatus = "IN_PROGRESS"
	StatusFinished   ContainerStatus = "FINISHED"
	StatusError      ContainerStatus = "ERROR"
	StatusExpired    ContainerStatus = "EXPIRED"
	StatusPublished  ContainerStatus = "PUBLISHED"
)

// Container is the server-side processing job behind a post that is not yet published
type Container struct {
	ID           string          `json:"id"`
	Status       ContainerStatus `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// PublishResult is returned by the publish pipeline
type PublishResult struct {
	ID          string    `json:"id"`
	ContainerID string    `json:"container_id"`
	MediaType   MediaType `json:"media_type"`
	ChildrenIDs []string  `json:"children_ids,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Post is a published thread or reply
type Post struct {
	ID               string  `json:"id"`
	MediaProductType string  `json:"media_product_type,omitempty"`
	MediaType        string  `json:"media_type,omitempty"`
	MediaURL         string  `json:"media_url,omitempty"`
	Permalink        string  `json:"permalink,omitempty"`
	Owner            *Owner  `json:"owner,omitempty"`
	Username         string  `json:"username,omitempty"`
	Text             string  `json:"text,omitempty"`
	Timestamp        string  `json:"timestamp,omitempty"`
	Shortcode        string  `json:"shortcode,omitempty"`
	ThumbnailURL     string  `json:"thumbnail_url,omitempty"`
	IsQuotePost      bool    `json:"is_quote_post,omitempty"`
	IsReply          bool    `json:"is_reply,omitempty"`
	HideStatus       string  `json:"hide_status,omitempty"`
	ReplyAudience    string  `json:"reply_audience,omitempty"`
	RootPost         *PostID `json:"root_post,omitempty"`
	RepliedTo        *PostID `json:"replied_to,omitempty"`
}

type Owner struct {
	ID string `json:"id"`
}

type PostID struct {
	ID string `json:"id"`
}

// Profile is the authenticated user's public profile
type Profile struct {
	ID                string `json:"id"`
	Username          string `json:"username,omitempty"`
	Name              string `json:"name,omitempty"`
	ProfilePictureURL string `json:"threads_profile_picture_url,omitempty"`
	Biography         string `json:"threads_biography,omitempty"`
}

// Cursors is the traversal pair returned alongside paged data
type Cursors struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

type Paging struct {
	Cursors  Cursors `json:"cursors"`
	Next     string  `json:"next,omitempty"`
	Previous string  `json:"previous,omitempty"`
}

// Page holds one page of results in server order
type Page[T any] struct {
	Data   []T     `json:"data"`
	Paging *Paging `json:"paging,omitempty"`
}

// Insight is one metric series returned by the insights endpoints
type Insight struct {
	Name        string         `json:"name"`
	Period      string         `json:"period"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	ID          string         `json:"id,omitempty"`
	Values      []InsightValue `json:"values,omitempty"`
	TotalValue  *TotalValue    `json:"total_value,omitempty"`
}

type InsightValue struct {
	Value   int64  `json:"value"`
	EndTime string `json:"end_time,omitempty"`
}

type TotalValue struct {
	Value int64 `json:"value"`
}

// PublishingLimit reports the account's remaining publish quota
type PublishingLimit struct {
	QuotaUsage int64        `json:"quota_usage"`
	Config     *QuotaConfig `json:"config,omitempty"`
	ReplyUsage int64        `json:"reply_quota_usage,omitempty"`
	ReplyConf  *QuotaConfig `json:"reply_config,omitempty"`
}

type QuotaConfig struct {
	QuotaTotal    int64 `json:"quota_total"`
	QuotaDuration int64 `json:"quota_duration"`
}

// Token is a token endpoint response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}
