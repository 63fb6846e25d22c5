package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bizlink/workplace-console/internal/config"
	"github.com/bizlink/workplace-console/internal/domain"
	"github.com/bizlink/workplace-console/internal/graph"
	"github.com/bizlink/workplace-console/internal/identity"
	"github.com/bizlink/workplace-console/internal/repository"
)

// UserInstallResult carries whatever the user-install callback produced:
// verified claims for the id_token flow, or the raw token endpoint response
// (plus verified claims when an id_token came back) for the code flow.
type UserInstallResult struct {
	Code     string
	Response map[string]any
	Token    map[string]any
}

// InstallService orchestrates the three OAuth install callback variants.
type InstallService struct {
	graph         graph.Client
	communityRepo repository.CommunityRepository
	pageRepo      repository.PageRepository
	keys          identity.KeySetFetcher
	identity      *identity.Verifier
	cfg           config.Config
	logger        *zap.Logger
}

// NewInstallService wires the install service.
func NewInstallService(
	graphClient graph.Client,
	communityRepo repository.CommunityRepository,
	pageRepo repository.PageRepository,
	keys identity.KeySetFetcher,
	identityVerifier *identity.Verifier,
	cfg config.Config,
	logger *zap.Logger,
) *InstallService {
	return &InstallService{
		graph:         graphClient,
		communityRepo: communityRepo,
		pageRepo:      pageRepo,
		keys:          keys,
		identity:      identityVerifier,
		cfg:           cfg,
		logger:        logger,
	}
}

// PageInstall exchanges the code, fetches page profile and community metadata
// concurrently, and records the page. Both fetches must succeed.
func (s *InstallService) PageInstall(ctx context.Context, code string) (domain.Page, error) {
	if code == "" {
		return domain.Page{}, domain.ErrMissingCode
	}

	token, err := s.graph.ExchangeCode(ctx, s.cfg.BaseURL+"page_install", code)
	if err != nil {
		return domain.Page{}, err
	}

	var (
		profile   *graph.Profile
		community *graph.CommunityResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.graph.Me(gctx, token.AccessToken)
		return err
	})
	g.Go(func() error {
		var err error
		community, err = s.graph.Community(gctx, token.AccessToken, "install,name")
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Page{}, err
	}

	page := domain.Page{
		ID:            profile.ID,
		Name:          profile.Name,
		AccessToken:   token.AccessToken,
		CommunityID:   community.ID,
		CommunityName: community.Name,
	}
	if community.Install != nil {
		page.InstallID = community.Install.ID
	}

	created, err := s.pageRepo.Create(ctx, page)
	if err != nil {
		return domain.Page{}, err
	}
	s.logger.Info("page installed", zap.String("page_id", created.ID), zap.String("community_id", created.CommunityID))
	return created, nil
}

// CommunityInstall exchanges the code and upserts the community: an existing
// row only gets its access token refreshed, so reinstalling is idempotent.
func (s *InstallService) CommunityInstall(ctx context.Context, code string) (domain.Community, error) {
	if code == "" {
		return domain.Community{}, domain.ErrMissingCode
	}

	token, err := s.graph.ExchangeCode(ctx, s.cfg.AppRedirect, code)
	if err != nil {
		return domain.Community{}, err
	}

	response, err := s.graph.Community(ctx, token.AccessToken, "name")
	if err != nil {
		return domain.Community{}, err
	}

	_, err = s.communityRepo.GetByID(ctx, response.ID)
	switch {
	case err == nil:
		updated, err := s.communityRepo.UpdateAccessToken(ctx, response.ID, token.AccessToken)
		if err != nil {
			return domain.Community{}, err
		}
		s.logger.Info("community reinstalled", zap.String("community_id", updated.ID))
		return updated, nil
	case errors.Is(err, pgx.ErrNoRows):
		created, err := s.communityRepo.Create(ctx, domain.Community{
			ID:          response.ID,
			Name:        response.Name,
			AccessToken: token.AccessToken,
		})
		if err != nil {
			return domain.Community{}, err
		}
		s.logger.Info("community installed", zap.String("community_id", created.ID))
		return created, nil
	default:
		return domain.Community{}, err
	}
}

// UserInstall handles the OIDC user-install callback. The key set is fetched
// fresh for every call.
func (s *InstallService) UserInstall(ctx context.Context, idToken, code string) (*UserInstallResult, error) {
	keys, err := s.keys.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if idToken != "" {
		claims, err := s.identity.Verify(keys, idToken)
		if err != nil {
			return nil, err
		}
		return &UserInstallResult{Token: claims}, nil
	}

	if code != "" {
		token, err := s.graph.ExchangeCode(ctx, s.cfg.BaseURL+"user_install", code)
		if err != nil {
			return nil, err
		}
		result := &UserInstallResult{Code: code, Response: token.Raw}
		if token.IDToken != "" {
			claims, err := s.identity.Verify(keys, token.IDToken)
			if err != nil {
				return nil, err
			}
			result.Token = claims
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: expected either an id_token or code", domain.ErrMissingCode)
}
