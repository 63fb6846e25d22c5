package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bizlink/workplace-console/internal/domain"
	"github.com/bizlink/workplace-console/internal/graph"
	"github.com/bizlink/workplace-console/internal/identity"
)

// ---- In-memory fakes shared by the service tests ----

type memoryUserRepo struct {
	mu             sync.Mutex
	users          map[int64]domain.User
	communityNames map[string]string
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[int64]domain.User{}, communityNames: map[string]string{}}
}

func (m *memoryUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		return user, nil
	}
	return domain.User{}, fmt.Errorf("get user by id: %w", pgx.ErrNoRows)
}

func (m *memoryUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, fmt.Errorf("get user by username: %w", pgx.ErrNoRows)
}

func (m *memoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) List(ctx context.Context) ([]domain.UserWithCommunity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserWithCommunity
	for _, user := range m.users {
		view := domain.UserWithCommunity{User: user}
		if user.CommunityID != nil {
			view.CommunityName = m.communityNames[*user.CommunityID]
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryUserRepo) LinkWorkplace(ctx context.Context, userID int64, workplaceID, communityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("link user: %w", domain.ErrNotFound)
	}
	user.WorkplaceID = &workplaceID
	user.CommunityID = &communityID
	m.users[userID] = user
	return nil
}

func (m *memoryUserRepo) Unlink(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("unlink user: %w", domain.ErrNotFound)
	}
	user.WorkplaceID = nil
	m.users[userID] = user
	return nil
}

func (m *memoryUserRepo) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
	return nil
}

type memoryCommunityRepo struct {
	mu          sync.Mutex
	communities map[string]domain.Community
}

func newMemoryCommunityRepo() *memoryCommunityRepo {
	return &memoryCommunityRepo{communities: map[string]domain.Community{}}
}

func (m *memoryCommunityRepo) GetByID(ctx context.Context, id string) (domain.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if community, ok := m.communities[id]; ok {
		return community, nil
	}
	return domain.Community{}, fmt.Errorf("get community: %w", pgx.ErrNoRows)
}

func (m *memoryCommunityRepo) List(ctx context.Context) ([]domain.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Community
	for _, community := range m.communities {
		out = append(out, community)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryCommunityRepo) Create(ctx context.Context, community domain.Community) (domain.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	community.CreatedAt = time.Now()
	community.UpdatedAt = community.CreatedAt
	m.communities[community.ID] = community
	return community, nil
}

func (m *memoryCommunityRepo) UpdateAccessToken(ctx context.Context, id, accessToken string) (domain.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	community, ok := m.communities[id]
	if !ok {
		return domain.Community{}, fmt.Errorf("update community token: %w", domain.ErrNotFound)
	}
	community.AccessToken = accessToken
	community.UpdatedAt = time.Now()
	m.communities[id] = community
	return community, nil
}

type memoryPageRepo struct {
	mu    sync.Mutex
	pages []domain.Page
}

func (m *memoryPageRepo) Create(ctx context.Context, page domain.Page) (domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page.CreatedAt = time.Now()
	m.pages = append(m.pages, page)
	return page, nil
}

type memoryCallbackRepo struct {
	mu        sync.Mutex
	nextID    int64
	callbacks []domain.Callback
}

func (m *memoryCallbackRepo) Create(ctx context.Context, path, payload string) (domain.Callback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cb := domain.Callback{ID: m.nextID, Path: path, Payload: payload, CreatedAt: time.Now()}
	m.callbacks = append(m.callbacks, cb)
	return cb, nil
}

func (m *memoryCallbackRepo) List(ctx context.Context, pathContains string) ([]domain.Callback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Callback
	for i := len(m.callbacks) - 1; i >= 0; i-- {
		if pathContains == "" || strings.Contains(m.callbacks[i].Path, pathContains) {
			out = append(out, m.callbacks[i])
		}
	}
	return out, nil
}

func (m *memoryCallbackRepo) Purge(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = nil
	return nil
}

type memoryLinkStore struct {
	mu    sync.Mutex
	links map[string]domain.PendingLink
}

func newMemoryLinkStore() *memoryLinkStore {
	return &memoryLinkStore{links: map[string]domain.PendingLink{}}
}

func (m *memoryLinkStore) Save(ctx context.Context, key string, link domain.PendingLink, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[key] = link
	return nil
}

func (m *memoryLinkStore) Get(ctx context.Context, key string) (*domain.PendingLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link, ok := m.links[key]; ok {
		copied := link
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryLinkStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, key)
	return nil
}

type subscribeCall struct {
	Topic       string
	CallbackURL string
	VerifyToken string
	Fields      []string
}

type fakeGraphClient struct {
	mu           sync.Mutex
	token        *graph.TokenResponse
	tokenErr     error
	profile      *graph.Profile
	community    *graph.CommunityResponse
	communityErr error
	subscribeErr error
	subscribed   []subscribeCall
	exchanged    []string
}

func (f *fakeGraphClient) ExchangeCode(ctx context.Context, redirectURI, code string) (*graph.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, redirectURI)
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	if f.token == nil {
		return nil, fmt.Errorf("token not configured")
	}
	return f.token, nil
}

func (f *fakeGraphClient) Me(ctx context.Context, accessToken string) (*graph.Profile, error) {
	if f.profile == nil {
		return nil, fmt.Errorf("profile not configured")
	}
	return f.profile, nil
}

func (f *fakeGraphClient) Community(ctx context.Context, accessToken, fields string) (*graph.CommunityResponse, error) {
	if f.communityErr != nil {
		return nil, f.communityErr
	}
	if f.community == nil {
		return nil, fmt.Errorf("community not configured")
	}
	return f.community, nil
}

func (f *fakeGraphClient) Subscribe(ctx context.Context, topic, callbackURL, verifyToken string, fields []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, subscribeCall{
		Topic:       topic,
		CallbackURL: callbackURL,
		VerifyToken: verifyToken,
		Fields:      fields,
	})
	return nil
}

type fakeKeySetFetcher struct {
	keys identity.KeySet
	err  error
}

func (f *fakeKeySetFetcher) Fetch(ctx context.Context) (identity.KeySet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.keys, nil
}
