package usecase

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"threadsctl/domain/dto"
	"threadsctl/domain/model"
	"threadsctl/domain/repository"
	"threadsctl/infrastructure/logger"
	"threadsctl/infrastructure/utils"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 60 * time.Second
	MinCarouselItems    = 2
	MaxCarouselItems    = 10
	MaxTextLength       = 500
)

var replyControls = map[string]struct{}{
	"everyone":            {},
	"accounts_you_follow": {},
	"mentioned_only":      {},
}

type IPublishUsecase interface {
	Validate(req dto.PostRequest) error
	ValidateCarousel(req dto.CarouselRequest) error
	Publish(ctx context.Context, sess model.Session, req dto.PostRequest) (model.PublishResult, error)
	PublishCarousel(ctx context.Context, sess model.Session, req dto.CarouselRequest) (model.PublishResult, error)
}

type publishUsecase struct {
	threads      repository.IThreads
	pollInterval time.Duration
	pollTimeout  time.Duration
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	progress     func(msg string)
}

type PublishOption func(*publishUsecase)

func WithPollPolicy(interval, timeout time.Duration) PublishOption {
	return func(u *publishUsecase) {
		u.pollInterval = interval
		u.pollTimeout = timeout
	}
}

// WithPollClock replaces the clock and sleep used while waiting on containers
func WithPollClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) PublishOption {
	return func(u *publishUsecase) {
		u.now = now
		u.sleep = sleep
	}
}

// WithProgress registers a callback for human-readable pipeline progress
func WithProgress(fn func(msg string)) PublishOption {
	return func(u *publishUsecase) { u.progress = fn }
}

func NewPublishUsecase(threads repository.IThreads, opts ...PublishOption) IPublishUsecase {
	u := &publishUsecase{
		threads:      threads,
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
		now:          time.Now,
		sleep:        utils.SleepContext,
		progress:     func(string) {},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Validate runs the local argument checks for a single post without any API call.
func (u *publishUsecase) Validate(req dto.PostRequest) error {
	_, err := postParams(req)
	return err
}

// ValidateCarousel checks the item count, every item URL, the text and the
// reply control of a carousel without any API call.
func (u *publishUsecase) ValidateCarousel(req dto.CarouselRequest) error {
	n := len(req.MediaURLs)
	if n < MinCarouselItems || n > MaxCarouselItems {
		return &model.ValidationError{
			Kind:    model.ValidationCarouselSize,
			Message: fmt.Sprintf("a carousel needs %d to %d items, got %d", MinCarouselItems, MaxCarouselItems, n),
		}
	}
	for _, raw := range req.MediaURLs {
		if err := validateMediaURL(raw); err != nil {
			return err
		}
	}
	if err := validateText(req.Text); err != nil {
		return err
	}
	return validateReplyControl(req.ReplyControl)
}

// Publish creates a single-media container, waits for it unless it is plain
// text, and publishes it.
func (u *publishUsecase) Publish(ctx context.Context, sess model.Session, req dto.PostRequest) (model.PublishResult, error) {
	params, err := postParams(req)
	if err != nil {
		return model.PublishResult{}, err
	}
	mediaType := model.MediaType(params.MediaType)

	containerID, err := u.threads.CreateContainer(ctx, sess, params)
	if err != nil {
		return model.PublishResult{}, fmt.Errorf("create %s container: %w", strings.ToLower(params.MediaType), err)
	}
	logger.GetLogger().WithField("container_id", containerID).WithField("media_type", mediaType).Debug("container created")

	if mediaType != model.MediaText {
		if err := u.waitUntilFinished(ctx, sess, containerID); err != nil {
			return model.PublishResult{}, err
		}
	}
	return u.publish(ctx, sess, containerID, mediaType, nil)
}

// PublishCarousel creates one container per item in order, then the parent
// carousel container, and publishes the parent once every container finished.
func (u *publishUsecase) PublishCarousel(ctx context.Context, sess model.Session, req dto.CarouselRequest) (model.PublishResult, error) {
	if err := u.ValidateCarousel(req); err != nil {
		return model.PublishResult{}, err
	}

	n := len(req.MediaURLs)
	children := make([]string, 0, n)
	for i, raw := range req.MediaURLs {
		item := dto.ContainerParams{IsCarouselItem: true}
		if ClassifyMedia(raw) == model.MediaVideo {
			item.MediaType = string(model.MediaVideo)
			item.VideoURL = raw
		} else {
			item.MediaType = string(model.MediaImage)
			item.ImageURL = raw
		}
		u.progress(fmt.Sprintf("Uploading carousel item %d/%d...", i+1, n))
		id, err := u.threads.CreateContainer(ctx, sess, item)
		if err != nil {
			return model.PublishResult{}, fmt.Errorf("create carousel item %d: %w", i+1, err)
		}
		if err := u.waitUntilFinished(ctx, sess, id); err != nil {
			return model.PublishResult{}, err
		}
		children = append(children, id)
	}

	parentID, err := u.threads.CreateContainer(ctx, sess, dto.ContainerParams{
		MediaType:    string(model.MediaCarousel),
		Children:     strings.Join(children, ","),
		Text:         req.Text,
		ReplyToID:    req.ReplyToID,
		ReplyControl: req.ReplyControl,
	})
	if err != nil {
		return model.PublishResult{}, fmt.Errorf("create carousel container: %w", err)
	}
	if err := u.waitUntilFinished(ctx, sess, parentID); err != nil {
		return model.PublishResult{}, err
	}
	return u.publish(ctx, sess, parentID, model.MediaCarousel, children)
}

func (u *publishUsecase) publish(ctx context.Context, sess model.Session, containerID string, mediaType model.MediaType, children []string) (model.PublishResult, error) {
	postID, err := u.threads.PublishContainer(ctx, sess, containerID)
	if err != nil {
		return model.PublishResult{}, fmt.Errorf("publish container %s: %w", containerID, err)
	}
	logger.GetLogger().WithField("post_id", postID).Info("published")
	return model.PublishResult{
		ID:          postID,
		ContainerID: containerID,
		MediaType:   mediaType,
		ChildrenIDs: children,
		PublishedAt: u.now().UTC(),
	}, nil
}

// waitUntilFinished polls the container immediately and then every interval
// until it is FINISHED, fails, or the deadline measured from the first poll passes.
func (u *publishUsecase) waitUntilFinished(ctx context.Context, sess model.Session, containerID string) error {
	deadline := u.now().Add(u.pollTimeout)
	for polls := 1; ; polls++ {
		ct, err := u.threads.GetContainer(ctx, sess, containerID)
		if err != nil {
			return fmt.Errorf("check container %s: %w", containerID, err)
		}
		logger.GetLogger().WithField("container_id", containerID).WithField("status", ct.Status).WithField("poll", polls).Debug("container status")

		switch ct.Status {
		case model.StatusFinished:
			return nil
		case model.StatusError:
			return &model.PollError{Kind: model.PollProviderError, ContainerID: containerID, Message: ct.ErrorMessage}
		case model.StatusExpired:
			return &model.PollError{Kind: model.PollExpired, ContainerID: containerID}
		case model.StatusPublished:
			return &model.PollError{Kind: model.PollProviderError, ContainerID: containerID, Message: "container was already published"}
		}

		if !u.now().Before(deadline) {
			return &model.PollError{Kind: model.PollTimeout, ContainerID: containerID, Message: u.pollTimeout.String()}
		}
		if polls == 1 {
			u.progress(fmt.Sprintf("Waiting for container %s to finish processing...", containerID))
		}
		if err := u.sleep(ctx, u.pollInterval); err != nil {
			return err
		}
	}
}

// ClassifyMedia returns VIDEO for URLs whose path ends in .mp4 or .mov
// (any case) and IMAGE otherwise.
func ClassifyMedia(raw string) model.MediaType {
	p := raw
	if parsed, err := url.Parse(raw); err == nil {
		p = parsed.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mp4", ".mov":
		return model.MediaVideo
	}
	return model.MediaImage
}

func postParams(req dto.PostRequest) (dto.ContainerParams, error) {
	mediaType := model.MediaType(strings.ToUpper(req.MediaType))
	if mediaType == "" {
		switch {
		case req.VideoURL != "":
			mediaType = model.MediaVideo
		case req.ImageURL != "":
			mediaType = model.MediaImage
		default:
			mediaType = model.MediaText
		}
	}

	params := dto.ContainerParams{
		MediaType:      string(mediaType),
		Text:           req.Text,
		ReplyToID:      req.ReplyToID,
		ReplyControl:   req.ReplyControl,
		QuotePostID:    req.QuotePostID,
		LinkAttachment: req.LinkAttachment,
	}
	switch mediaType {
	case model.MediaText:
		if strings.TrimSpace(req.Text) == "" {
			return params, invalidArgument("text is required for a text post")
		}
		if req.LinkAttachment != "" {
			if err := validateMediaURL(req.LinkAttachment); err != nil {
				return params, err
			}
		}
	case model.MediaImage:
		if err := validateMediaURL(req.ImageURL); err != nil {
			return params, err
		}
		params.ImageURL = req.ImageURL
	case model.MediaVideo:
		if err := validateMediaURL(req.VideoURL); err != nil {
			return params, err
		}
		params.VideoURL = req.VideoURL
	default:
		return params, invalidArgument(fmt.Sprintf("unsupported media type %q for a single post", req.MediaType))
	}
	if mediaType != model.MediaText && req.LinkAttachment != "" {
		return params, invalidArgument("link attachments are only allowed on text posts")
	}

	if err := validateText(req.Text); err != nil {
		return params, err
	}
	if err := validateReplyControl(req.ReplyControl); err != nil {
		return params, err
	}
	return params, nil
}

func validateMediaURL(raw string) error {
	if raw == "" {
		return invalidArgument("media url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalidArgument(fmt.Sprintf("%q is not an absolute http(s) url", raw))
	}
	return nil
}

func validateText(text string) error {
	if n := utf8.RuneCountInString(text); n > MaxTextLength {
		return invalidArgument(fmt.Sprintf("text is %d characters; the limit is %d", n, MaxTextLength))
	}
	return nil
}

func validateReplyControl(rc string) error {
	if rc == "" {
		return nil
	}
	if _, ok := replyControls[rc]; !ok {
		return invalidArgument(fmt.Sprintf("reply control must be everyone, accounts_you_follow or mentioned_only, got %q", rc))
	}
	return nil
}

func invalidArgument(msg string) error {
	return &model.ValidationError{Kind: model.ValidationInvalidArgument, Message: msg}
}
