package dto

// PostRequest represents a single-media post (text, image or video)
type PostRequest struct {
	MediaType      string `json:"media_type"`
	Text           string `json:"text,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	VideoURL       string `json:"video_url,omitempty"`
	ReplyToID      string `json:"reply_to_id,omitempty"`
	ReplyControl   string `json:"reply_control,omitempty"` // everyone, accounts_you_follow, mentioned_only
	QuotePostID    string `json:"quote_post_id,omitempty"`
	LinkAttachment string `json:"link_attachment,omitempty"`
}

// CarouselRequest represents a multi-media post; media type of each item is
// derived from its URL
type CarouselRequest struct {
	MediaURLs    []string `json:"media_urls"`
	Text         string   `json:"text,omitempty"`
	ReplyToID    string   `json:"reply_to_id,omitempty"`
	ReplyControl string   `json:"reply_control,omitempty"`
}

// ContainerParams is the form body of POST /{user-id}/threads
type ContainerParams struct {
	MediaType      string `url:"media_type"`
	Text           string `url:"text,omitempty"`
	ImageURL       string `url:"image_url,omitempty"`
	VideoURL       string `url:"video_url,omitempty"`
	IsCarouselItem bool   `url:"is_carousel_item,omitempty"`
	Children       string `url:"children,omitempty"` // comma-joined container ids
	ReplyToID      string `url:"reply_to_id,omitempty"`
	ReplyControl   string `url:"reply_control,omitempty"`
	QuotePostID    string `url:"quote_post_id,omitempty"`
	LinkAttachment string `url:"link_attachment,omitempty"`
}

// ListRequest covers the paged read endpoints (threads, replies, conversation)
type ListRequest struct {
	Fields  string `url:"fields,omitempty"`
	Limit   int    `url:"limit,omitempty"`
	Since   string `url:"since,omitempty"`
	Until   string `url:"until,omitempty"`
	Before  string `url:"before,omitempty"`
	After   string `url:"after,omitempty"`
	Reverse bool   `url:"reverse,omitempty"`
}

// InsightsRequest covers post and user insight queries
type InsightsRequest struct {
	Metric    string `url:"metric"`
	Since     int64  `url:"since,omitempty"`
	Until     int64  `url:"until,omitempty"`
	Breakdown string `url:"breakdown,omitempty"`
}

// FieldsRequest selects fields on single-object reads
type FieldsRequest struct {
	Fields string `url:"fields,omitempty"`
}
