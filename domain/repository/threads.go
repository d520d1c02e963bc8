package repository

import (
	"context"

	"threadsctl/domain/dto"
	"threadsctl/domain/model"
)

// IThreads defines the Threads API operations used by the usecases
type IThreads interface {
	// Profile
	GetProfile(ctx context.Context, sess model.Session, fields string) (*model.Profile, error)
	GetPublishingLimit(ctx context.Context, sess model.Session) (*model.PublishingLimit, error)

	// Containers and publishing
	CreateContainer(ctx context.Context, sess model.Session, params dto.ContainerParams) (string, error)
	GetContainer(ctx context.Context, sess model.Session, containerID string) (*model.Container, error)
	PublishContainer(ctx context.Context, sess model.Session, containerID string) (string, error)

	// Posts
	GetPost(ctx context.Context, sess model.Session, postID, fields string) (*model.Post, error)
	ListPosts(ctx context.Context, sess model.Session, req dto.ListRequest) (*model.Page[model.Post], error)
	DeletePost(ctx context.Context, sess model.Session, postID string) error

	// Replies
	ListReplies(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error)
	ListConversation(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error)
	ManageReply(ctx context.Context, sess model.Session, replyID string, hide bool) error

	// Insights
	GetPostInsights(ctx context.Context, sess model.Session, postID string, req dto.InsightsRequest) ([]model.Insight, error)
	GetUserInsights(ctx context.Context, sess model.Session, req dto.InsightsRequest) ([]model.Insight, error)
}

// ITokens defines the provider's token endpoints
type ITokens interface {
	ExchangeLongLived(ctx context.Context, appSecret, shortLivedToken string) (*model.Token, error)
	Refresh(ctx context.Context, accessToken string) (*model.Token, error)
}
