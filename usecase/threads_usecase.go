package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"threadsctl/domain/dto"
	"threadsctl/domain/model"
	"threadsctl/domain/repository"
	"threadsctl/infrastructure/logger"
)

type IThreadsUsecase interface {
	ResolveSession(ctx context.Context) (model.Session, error)
	Me(ctx context.Context, sess model.Session) (*model.Profile, error)
	ListPosts(ctx context.Context, sess model.Session, req dto.ListRequest) (*model.Page[model.Post], error)
	GetPost(ctx context.Context, sess model.Session, postID string) (*model.Post, error)
	Delete(ctx context.Context, sess model.Session, postID string) error
	Replies(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error)
	Conversation(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error)
	SetReplyHidden(ctx context.Context, sess model.Session, replyID string, hide bool) error
	PostInsights(ctx context.Context, sess model.Session, postID string, metrics []string) ([]model.Insight, error)
	UserInsights(ctx context.Context, sess model.Session, req dto.InsightsRequest) ([]model.Insight, error)
	PublishingLimit(ctx context.Context, sess model.Session) (*model.PublishingLimit, error)
}

var (
	DefaultPostMetrics = []string{"views", "likes", "replies", "reposts", "quotes", "shares"}
	DefaultUserMetrics = []string{"views", "likes", "replies", "reposts", "quotes", "followers_count"}
)

type threadsUsecase struct {
	threads repository.IThreads
	store   repository.ICredentialStore
	now     func() time.Time
}

func NewThreadsUsecase(threads repository.IThreads, store repository.ICredentialStore) IThreadsUsecase {
	return &threadsUsecase{threads: threads, store: store, now: time.Now}
}

// NewThreadsUsecaseWithClock is NewThreadsUsecase with a fixed time source for expiry checks
func NewThreadsUsecaseWithClock(threads repository.IThreads, store repository.ICredentialStore, now func() time.Time) IThreadsUsecase {
	return &threadsUsecase{threads: threads, store: store, now: now}
}

// ResolveSession loads the stored credentials and returns a session bound to
// the user id, fetching and saving the id on first use.
func (u *threadsUsecase) ResolveSession(ctx context.Context) (model.Session, error) {
	creds, err := u.store.Load(ctx)
	if err != nil {
		return model.Session{}, err
	}
	if creds.IsExpired(u.now()) {
		return model.Session{}, &model.ConfigError{Kind: model.ConfigTokenExpired}
	}

	sess := creds.Session()
	if sess.UserID != "" {
		return sess, nil
	}

	profile, err := u.threads.GetProfile(ctx, sess, "id")
	if err != nil {
		return model.Session{}, fmt.Errorf("resolve user id: %w", err)
	}
	if profile.ID == "" {
		return model.Session{}, fmt.Errorf("resolve user id: profile response has no id")
	}
	userID := profile.ID
	if err := u.store.Save(ctx, model.CredentialsPatch{UserID: &userID}); err != nil {
		// the session is still usable; the id is fetched again next time
		logger.GetLogger().WithError(err).Warn("failed to save resolved user id")
	}
	return sess.WithUserID(userID), nil
}

func (u *threadsUsecase) Me(ctx context.Context, sess model.Session) (*model.Profile, error) {
	return u.threads.GetProfile(ctx, sess, "")
}

func (u *threadsUsecase) ListPosts(ctx context.Context, sess model.Session, req dto.ListRequest) (*model.Page[model.Post], error) {
	return u.threads.ListPosts(ctx, sess, req)
}

func (u *threadsUsecase) GetPost(ctx context.Context, sess model.Session, postID string) (*model.Post, error) {
	if err := requireIdentifier("post id", postID); err != nil {
		return nil, err
	}
	return u.threads.GetPost(ctx, sess, postID, "")
}

func (u *threadsUsecase) Delete(ctx context.Context, sess model.Session, postID string) error {
	if err := requireIdentifier("post id", postID); err != nil {
		return err
	}
	return u.threads.DeletePost(ctx, sess, postID)
}

func (u *threadsUsecase) Replies(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error) {
	if err := requireIdentifier("post id", postID); err != nil {
		return nil, err
	}
	return u.threads.ListReplies(ctx, sess, postID, req)
}

func (u *threadsUsecase) Conversation(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error) {
	if err := requireIdentifier("post id", postID); err != nil {
		return nil, err
	}
	return u.threads.ListConversation(ctx, sess, postID, req)
}

func (u *threadsUsecase) SetReplyHidden(ctx context.Context, sess model.Session, replyID string, hide bool) error {
	if err := requireIdentifier("reply id", replyID); err != nil {
		return err
	}
	return u.threads.ManageReply(ctx, sess, replyID, hide)
}

func (u *threadsUsecase) PostInsights(ctx context.Context, sess model.Session, postID string, metrics []string) ([]model.Insight, error) {
	if err := requireIdentifier("post id", postID); err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		metrics = DefaultPostMetrics
	}
	return u.threads.GetPostInsights(ctx, sess, postID, dto.InsightsRequest{Metric: strings.Join(metrics, ",")})
}

func (u *threadsUsecase) UserInsights(ctx context.Context, sess model.Session, req dto.InsightsRequest) ([]model.Insight, error) {
	if req.Metric == "" {
		req.Metric = strings.Join(DefaultUserMetrics, ",")
	}
	if req.Since != 0 && req.Until != 0 && req.Until < req.Since {
		return nil, invalidArgument("until must not be before since")
	}
	return u.threads.GetUserInsights(ctx, sess, req)
}

func (u *threadsUsecase) PublishingLimit(ctx context.Context, sess model.Session) (*model.PublishingLimit, error) {
	return u.threads.GetPublishingLimit(ctx, sess)
}

func requireIdentifier(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return &model.ValidationError{Kind: model.ValidationMissingIdentifier, Message: kind + " is required"}
	}
	return nil
}
