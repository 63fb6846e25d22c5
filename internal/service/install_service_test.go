package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/config"
	"github.com/bizlink/workplace-console/internal/domain"
	"github.com/bizlink/workplace-console/internal/graph"
	"github.com/bizlink/workplace-console/internal/identity"
)

func testConfig() config.Config {
	return config.Config{
		AppID:       "app-id",
		AppSecret:   "app-secret",
		BaseURL:     "https://console.example.com/",
		AppRedirect: "https://console.example.com/community_install",
		VerifyToken: "verify-me",
		LinkTTL:     time.Minute,
	}
}

type installHarness struct {
	service       *InstallService
	graph         *fakeGraphClient
	communityRepo *memoryCommunityRepo
	pageRepo      *memoryPageRepo
	keys          *fakeKeySetFetcher
}

func newInstallHarness() *installHarness {
	graphClient := &fakeGraphClient{}
	communityRepo := newMemoryCommunityRepo()
	pageRepo := &memoryPageRepo{}
	keys := &fakeKeySetFetcher{keys: identity.KeySet{}}
	cfg := testConfig()
	svc := NewInstallService(
		graphClient,
		communityRepo,
		pageRepo,
		keys,
		identity.NewVerifier(cfg.AppID, "https://workplace.com"),
		cfg,
		zap.NewNop(),
	)
	return &installHarness{
		service:       svc,
		graph:         graphClient,
		communityRepo: communityRepo,
		pageRepo:      pageRepo,
		keys:          keys,
	}
}

func TestPageInstall(t *testing.T) {
	h := newInstallHarness()
	h.graph.token = &graph.TokenResponse{AccessToken: "page-token"}
	h.graph.profile = &graph.Profile{ID: "page-1", Name: "Helpdesk"}
	h.graph.community = &graph.CommunityResponse{
		ID:      "comm-1",
		Name:    "Acme",
		Install: &graph.Install{ID: "install-9"},
	}

	page, err := h.service.PageInstall(context.Background(), "the-code")
	require.NoError(t, err)
	require.Equal(t, "page-1", page.ID)
	require.Equal(t, "Helpdesk", page.Name)
	require.Equal(t, "page-token", page.AccessToken)
	require.Equal(t, "comm-1", page.CommunityID)
	require.Equal(t, "Acme", page.CommunityName)
	require.Equal(t, "install-9", page.InstallID)
	require.Len(t, h.pageRepo.pages, 1)
	require.Equal(t, []string{"https://console.example.com/page_install"}, h.graph.exchanged)
}

func TestPageInstallMissingCode(t *testing.T) {
	h := newInstallHarness()
	_, err := h.service.PageInstall(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrMissingCode)
	require.Empty(t, h.graph.exchanged)
}

func TestPageInstallFanOutFailsFast(t *testing.T) {
	h := newInstallHarness()
	h.graph.token = &graph.TokenResponse{AccessToken: "page-token"}
	h.graph.profile = &graph.Profile{ID: "page-1", Name: "Helpdesk"}
	h.graph.communityErr = context.DeadlineExceeded

	_, err := h.service.PageInstall(context.Background(), "the-code")
	require.Error(t, err)
	require.Empty(t, h.pageRepo.pages)
}

func TestCommunityInstallUpsertIsIdempotent(t *testing.T) {
	h := newInstallHarness()
	h.graph.token = &graph.TokenResponse{AccessToken: "token-one"}
	h.graph.community = &graph.CommunityResponse{ID: "comm-1", Name: "Acme"}

	first, err := h.service.CommunityInstall(context.Background(), "code-one")
	require.NoError(t, err)
	require.Equal(t, "token-one", first.AccessToken)

	h.graph.token = &graph.TokenResponse{AccessToken: "token-two"}
	second, err := h.service.CommunityInstall(context.Background(), "code-two")
	require.NoError(t, err)
	require.Equal(t, "comm-1", second.ID)
	require.Equal(t, "token-two", second.AccessToken)

	communities, err := h.communityRepo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, communities, 1)
	require.Equal(t, "token-two", communities[0].AccessToken)
}

func TestUserInstallWithIDToken(t *testing.T) {
	h := newInstallHarness()

	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.RS256, Key: privKey},
		(&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", "key-1"),
	)
	require.NoError(t, err)
	now := time.Now()
	token, err := gojwt.Signed(signer).Claims(gojwt.Claims{
		Subject:  "100042",
		Audience: gojwt.Audience{"app-id"},
		Issuer:   "https://workplace.com",
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(time.Hour)),
	}).Serialize()
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	h.keys.keys = identity.KeySet{
		"key-1": string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	}

	result, err := h.service.UserInstall(context.Background(), token, "")
	require.NoError(t, err)
	require.Equal(t, "100042", result.Token["sub"])
}

func TestUserInstallWithCode(t *testing.T) {
	h := newInstallHarness()
	h.graph.token = &graph.TokenResponse{
		AccessToken: "user-token",
		Raw:         map[string]any{"access_token": "user-token", "expires_in": float64(3600)},
	}

	result, err := h.service.UserInstall(context.Background(), "", "the-code")
	require.NoError(t, err)
	require.Equal(t, "the-code", result.Code)
	require.Equal(t, "user-token", result.Response["access_token"])
	require.Nil(t, result.Token)
	require.Equal(t, []string{"https://console.example.com/user_install"}, h.graph.exchanged)
}

func TestUserInstallWithoutInputs(t *testing.T) {
	h := newInstallHarness()
	_, err := h.service.UserInstall(context.Background(), "", "")
	require.ErrorIs(t, err, domain.ErrMissingCode)
}
