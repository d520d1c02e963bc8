package threads

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"threadsctl/domain/dto"
	"threadsctl/domain/model"

	"github.com/google/go-querystring/query"
)

const (
	DefaultProfileFields = "id,username,name,threads_profile_picture_url,threads_biography"
	DefaultPostFields    = "id,media_product_type,media_type,media_url,permalink,owner,username,text,timestamp,shortcode,thumbnail_url,is_quote_post"
	DefaultReplyFields   = "id,text,username,permalink,timestamp,media_type,media_url,shortcode,thumbnail_url,has_replies,root_post,replied_to,is_reply,hide_status"
	containerFields      = "id,status,error_message"
)

func requireID(kind, id string) error {
	if id == "" {
		return &model.ValidationError{Kind: model.ValidationMissingIdentifier, Message: kind + " is required"}
	}
	return nil
}

func encode(v interface{}) (url.Values, error) {
	values, err := query.Values(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request parameters: %w", err)
	}
	return values, nil
}

func (c *Client) GetProfile(ctx context.Context, sess model.Session, fields string) (*model.Profile, error) {
	if fields == "" {
		fields = DefaultProfileFields
	}
	params, err := encode(dto.FieldsRequest{Fields: fields})
	if err != nil {
		return nil, err
	}
	raw, err := c.Request(ctx, sess, http.MethodGet, "me", params)
	if err != nil {
		return nil, err
	}
	var p model.Profile
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetPublishingLimit(ctx context.Context, sess model.Session) (*model.PublishingLimit, error) {
	if err := requireID("user id", sess.UserID); err != nil {
		return nil, err
	}
	params, err := encode(dto.FieldsRequest{Fields: "quota_usage,config,reply_quota_usage,reply_config"})
	if err != nil {
		return nil, err
	}
	raw, err := c.Request(ctx, sess, http.MethodGet, sess.UserID+"/threads_publishing_limit", params)
	if err != nil {
		return nil, err
	}
	var page model.Page[model.PublishingLimit]
	if err := decode(raw, &page); err != nil {
		return nil, err
	}
	if len(page.Data) == 0 {
		return &model.PublishingLimit{}, nil
	}
	return &page.Data[0], nil
}

// CreateContainer creates a media container and returns its id
func (c *Client) CreateContainer(ctx context.Context, sess model.Session, p dto.ContainerParams) (string, error) {
	if err := requireID("user id", sess.UserID); err != nil {
		return "", err
	}
	params, err := encode(p)
	if err != nil {
		return "", err
	}
	raw, err := c.Request(ctx, sess, http.MethodPost, sess.UserID+"/threads", params)
	if err != nil {
		return "", err
	}
	return decodeID(raw, "container")
}

func (c *Client) GetContainer(ctx context.Context, sess model.Session, containerID string) (*model.Container, error) {
	if err := requireID("container id", containerID); err != nil {
		return nil, err
	}
	params, err := encode(dto.FieldsRequest{Fields: containerFields})
	if err != nil {
		return nil, err
	}
	raw, err := c.Request(ctx, sess, http.MethodGet, containerID, params)
	if err != nil {
		return nil, err
	}
	ct := model.Container{ID: containerID}
	if err := decode(raw, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

// PublishContainer publishes a finished container and returns the post id
func (c *Client) PublishContainer(ctx context.Context, sess model.Session, containerID string) (string, error) {
	if err := requireID("user id", sess.UserID); err != nil {
		return "", err
	}
	if err := requireID("container id", containerID); err != nil {
		return "", err
	}
	params := url.Values{"creation_id": {containerID}}
	raw, err := c.Request(ctx, sess, http.MethodPost, sess.UserID+"/threads_publish", params)
	if err != nil {
		return "", err
	}
	return decodeID(raw, "post")
}

func (c *Client) GetPost(ctx context.Context, sess model.Session, postID, fields string) (*model.Post, error) {
	if err := requireID("post id", postID); err != nil {
		return nil, err
	}
	if fields == "" {
		fields = DefaultPostFields
	}
	params, err := encode(dto.FieldsRequest{Fields: fields})
	if err != nil {
		return nil, err
	}
	raw, err := c.Request(ctx, sess, http.MethodGet, postID, params)
	if err != nil {
		return nil, err
	}
	var p model.Post
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListPosts(ctx context.Context, sess model.Session, req dto.ListRequest) (*model.Page[model.Post], error) {
	if err := requireID("user id", sess.UserID); err != nil {
		return nil, err
	}
	if req.Fields == "" {
		req.Fields = DefaultPostFields
	}
	return c.listPosts(ctx, sess, sess.UserID+"/threads", req)
}

func (c *Client) DeletePost(ctx context.Context, sess model.Session, postID string) error {
	if err := requireID("post id", postID); err != nil {
		return err
	}
	_, err := c.Request(ctx, sess, http.MethodDelete, postID, nil)
	return err
}

func (c *Client) ListReplies(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error) {
	if err := requireID("post id", postID); err != nil {
		return nil, err
	}
	if req.Fields == "" {
		req.Fields = DefaultReplyFields
	}
	return c.listPosts(ctx, sess, postID+"/replies", req)
}

func (c *Client) ListConversation(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error) {
	if err := requireID("post id", postID); err != nil {
		return nil, err
	}
	if req.Fields == "" {
		req.Fields = DefaultReplyFields
	}
	return c.listPosts(ctx, sess, postID+"/conversation", req)
}

// ManageReply hides or unhides a reply on one of the user's posts
func (c *Client) ManageReply(ctx context.Context, sess model.Session, replyID string, hide bool) error {
	if err := requireID("reply id", replyID); err != nil {
		return err
	}
	params := url.Values{"hide": {strconv.FormatBool(hide)}}
	_, err := c.Request(ctx, sess, http.MethodPost, replyID+"/manage_reply", params)
	return err
}

func (c *Client) GetPostInsights(ctx context.Context, sess model.Session, postID string, req dto.InsightsRequest) ([]model.Insight, error) {
	if err := requireID("post id", postID); err != nil {
		return nil, err
	}
	return c.insights(ctx, sess, postID+"/insights", req)
}

func (c *Client) GetUserInsights(ctx context.Context, sess model.Session, req dto.InsightsRequest) ([]model.Insight, error) {
	if err := requireID("user id", sess.UserID); err != nil {
		return nil, err
	}
	return c.insights(ctx, sess, sess.UserID+"/threads_insights", req)
}

func (c *Client) listPosts(ctx context.Context, sess model.Session, path string, req dto.ListRequest) (*model.Page[model.Post], error) {
	params, err := encode(req)
	if err != nil {
		return nil, err
	}
	raw, err := c.Request(ctx, sess, http.MethodGet, path, params)
	if err != nil {
		return nil, err
	}
	page := &model.Page[model.Post]{Data: []model.Post{}}
	if err := decode(raw, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) insights(ctx context.Context, sess model.Session, path string, req dto.InsightsRequest) ([]model.Insight, error) {
	params, err := encode(req)
	if err != nil {
		return nil, err
	}
	raw, err := c.Request(ctx, sess, http.MethodGet, path, params)
	if err != nil {
		return nil, err
	}
	var page model.Page[model.Insight]
	if err := decode(raw, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

func decodeID(raw []byte, kind string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := decode(raw, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("threads api returned no %s id", kind)
	}
	return out.ID, nil
}
