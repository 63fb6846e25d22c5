package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/config"
	"github.com/bizlink/workplace-console/internal/domain"
	"github.com/bizlink/workplace-console/internal/graph"
)

type adminHarness struct {
	service       *AdminService
	graph         *fakeGraphClient
	userRepo      *memoryUserRepo
	communityRepo *memoryCommunityRepo
}

func newAdminHarness(cfg config.Config) *adminHarness {
	graphClient := &fakeGraphClient{}
	userRepo := newMemoryUserRepo()
	communityRepo := newMemoryCommunityRepo()
	svc := NewAdminService(userRepo, communityRepo, graphClient, cfg, zap.NewNop())
	return &adminHarness{service: svc, graph: graphClient, userRepo: userRepo, communityRepo: communityRepo}
}

func TestCommunitiesPrependsCustomIntegration(t *testing.T) {
	cfg := testConfig()
	cfg.AccessToken = "global-token"
	h := newAdminHarness(cfg)
	h.graph.community = &graph.CommunityResponse{
		ID:      "comm-1",
		Install: &graph.Install{InstallType: "CUSTOM", Permissions: []string{"read_content", "manage_group"}},
	}
	_, err := h.communityRepo.Create(context.Background(), domain.Community{ID: "comm-1", Name: "Acme", AccessToken: "t1"})
	require.NoError(t, err)

	views, state, err := h.service.Communities(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "Custom Integration", views[0].Name)
	require.Equal(t, cfg.AppID, views[0].ID)
	require.Equal(t, "global-token", views[0].AccessToken)
	require.Equal(t, "Acme", views[1].Name)
	require.Equal(t, []string{"read_content", "manage_group"}, views[1].Permissions)
	require.Equal(t, "CUSTOM", views[1].InstallType)
	require.Len(t, state, 24)
}

func TestCommunitiesWithoutGlobalToken(t *testing.T) {
	h := newAdminHarness(testConfig())
	h.graph.community = &graph.CommunityResponse{ID: "comm-1", Install: &graph.Install{}}
	_, err := h.communityRepo.Create(context.Background(), domain.Community{ID: "comm-1", Name: "Acme", AccessToken: "t1"})
	require.NoError(t, err)

	views, _, err := h.service.Communities(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "Acme", views[0].Name)
}

func TestCommunitiesFailsFast(t *testing.T) {
	h := newAdminHarness(testConfig())
	h.graph.communityErr = fmt.Errorf("graph down")
	_, err := h.communityRepo.Create(context.Background(), domain.Community{ID: "comm-1", Name: "Acme", AccessToken: "t1"})
	require.NoError(t, err)

	_, _, err = h.service.Communities(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "graph down")
}

func TestUnlinkAndDeleteUser(t *testing.T) {
	h := newAdminHarness(testConfig())
	workplaceID := "100042"
	_, err := h.userRepo.Create(context.Background(), domain.User{ID: 5, Username: "dana", WorkplaceID: &workplaceID})
	require.NoError(t, err)

	require.NoError(t, h.service.UnlinkUser(context.Background(), 5))
	user, err := h.userRepo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	require.Nil(t, user.WorkplaceID)

	require.NoError(t, h.service.DeleteUser(context.Background(), 5))
	users, err := h.service.Users(context.Background())
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestSubscribeWebhooks(t *testing.T) {
	h := newAdminHarness(testConfig())
	require.NoError(t, h.service.SubscribeWebhooks(context.Background()))
	require.Len(t, h.graph.subscribed, 2)

	byTopic := map[string]subscribeCall{}
	for _, call := range h.graph.subscribed {
		byTopic[call.Topic] = call
	}
	require.Equal(t, "https://console.example.com/api/link/callback", byTopic["link"].CallbackURL)
	require.Equal(t, []string{"preview", "collection"}, byTopic["link"].Fields)
	require.Equal(t, "https://console.example.com/api/page/callback", byTopic["page"].CallbackURL)
	require.Equal(t, []string{"mention"}, byTopic["page"].Fields)
	require.Equal(t, "verify-me", byTopic["link"].VerifyToken)
}

func TestSubscribeWebhooksAllOrNothing(t *testing.T) {
	h := newAdminHarness(testConfig())
	h.graph.subscribeErr = fmt.Errorf("subscription rejected")
	err := h.service.SubscribeWebhooks(context.Background())
	require.Error(t, err)
}
