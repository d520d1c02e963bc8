package usecase_test

import (
	"context"

	"threadsctl/domain/dto"
	"threadsctl/domain/model"

	"github.com/stretchr/testify/mock"
)

type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Load(ctx context.Context) (model.Credentials, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Credentials), args.Error(1)
}

func (m *MockCredentialStore) Peek(ctx context.Context) (model.Credentials, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Credentials), args.Error(1)
}

func (m *MockCredentialStore) Save(ctx context.Context, patch model.CredentialsPatch) error {
	args := m.Called(ctx, patch)
	return args.Error(0)
}

type MockTokens struct {
	mock.Mock
}

func (m *MockTokens) ExchangeLongLived(ctx context.Context, appSecret, shortLivedToken string) (*model.Token, error) {
	args := m.Called(ctx, appSecret, shortLivedToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Token), args.Error(1)
}

func (m *MockTokens) Refresh(ctx context.Context, accessToken string) (*model.Token, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Token), args.Error(1)
}

type MockThreads struct {
	mock.Mock
}

func (m *MockThreads) GetProfile(ctx context.Context, sess model.Session, fields string) (*model.Profile, error) {
	args := m.Called(ctx, sess, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockThreads) GetPublishingLimit(ctx context.Context, sess model.Session) (*model.PublishingLimit, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishingLimit), args.Error(1)
}

func (m *MockThreads) CreateContainer(ctx context.Context, sess model.Session, params dto.ContainerParams) (string, error) {
	args := m.Called(ctx, sess, params)
	return args.String(0), args.Error(1)
}

func (m *MockThreads) GetContainer(ctx context.Context, sess model.Session, containerID string) (*model.Container, error) {
	args := m.Called(ctx, sess, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Container), args.Error(1)
}

func (m *MockThreads) PublishContainer(ctx context.Context, sess model.Session, containerID string) (string, error) {
	args := m.Called(ctx, sess, containerID)
	return args.String(0), args.Error(1)
}

func (m *MockThreads) GetPost(ctx context.Context, sess model.Session, postID, fields string) (*model.Post, error) {
	args := m.Called(ctx, sess, postID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockThreads) ListPosts(ctx context.Context, sess model.Session, req dto.ListRequest) (*model.Page[model.Post], error) {
	args := m.Called(ctx, sess, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page[model.Post]), args.Error(1)
}

func (m *MockThreads) DeletePost(ctx context.Context, sess model.Session, postID string) error {
	args := m.Called(ctx, sess, postID)
	return args.Error(0)
}

func (m *MockThreads) ListReplies(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error) {
	args := m.Called(ctx, sess, postID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page[model.Post]), args.Error(1)
}

func (m *MockThreads) ListConversation(ctx context.Context, sess model.Session, postID string, req dto.ListRequest) (*model.Page[model.Post], error) {
	args := m.Called(ctx, sess, postID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page[model.Post]), args.Error(1)
}

func (m *MockThreads) ManageReply(ctx context.Context, sess model.Session, replyID string, hide bool) error {
	args := m.Called(ctx, sess, replyID, hide)
	return args.Error(0)
}

func (m *MockThreads) GetPostInsights(ctx context.Context, sess model.Session, postID string, req dto.InsightsRequest) ([]model.Insight, error) {
	args := m.Called(ctx, sess, postID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Insight), args.Error(1)
}

func (m *MockThreads) GetUserInsights(ctx context.Context, sess model.Session, req dto.InsightsRequest) ([]model.Insight, error) {
	args := m.Called(ctx, sess, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Insight), args.Error(1)
}
