package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/config"
	"github.com/bizlink/workplace-console/internal/domain"
	"github.com/bizlink/workplace-console/internal/password"
	"github.com/bizlink/workplace-console/internal/repository"
	"github.com/bizlink/workplace-console/internal/signedrequest"
)

// ErrInvalidCredentials signals a failed username/password check.
var ErrInvalidCredentials = errors.New("account: invalid credentials")

// ErrNoPendingLink signals a confirmation attempt with nothing staged.
var ErrNoPendingLink = errors.New("account: no pending link")

// AccountService handles local credentials and the signed-request link flow.
type AccountService struct {
	userRepo  repository.UserRepository
	linkStore repository.LinkStateStore
	verifier  *signedrequest.Verifier
	node      *snowflake.Node
	cfg       config.Config
	logger    *zap.Logger
}

// NewAccountService wires the account service.
func NewAccountService(
	userRepo repository.UserRepository,
	linkStore repository.LinkStateStore,
	verifier *signedrequest.Verifier,
	node *snowflake.Node,
	cfg config.Config,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		userRepo:  userRepo,
		linkStore: linkStore,
		verifier:  verifier,
		node:      node,
		cfg:       cfg,
		logger:    logger,
	}
}

// Authenticate checks local credentials and returns the matching user.
func (s *AccountService) Authenticate(ctx context.Context, username, pass string) (domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if !password.Verify(pass, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Register hashes the password and creates the account.
func (s *AccountService) Register(ctx context.Context, username, pass string) (domain.User, error) {
	hash, err := password.Hash(pass)
	if err != nil {
		s.logger.Warn("registration hash failed", zap.Error(err))
		return domain.User{}, err
	}
	user, err := s.userRepo.Create(ctx, domain.User{
		ID:           s.node.Generate().Int64(),
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		s.logger.Warn("registration failed", zap.String("username", username), zap.Error(err))
		return domain.User{}, err
	}
	return user, nil
}

// StageLink verifies the signed request and stages the decoded payload under
// the caller's session key pending confirmation.
func (s *AccountService) StageLink(ctx context.Context, sessionKey, signedRequest, redirectURI string) error {
	payload, err := s.verifier.Verify(signedRequest, redirectURI)
	if err != nil {
		return err
	}
	link := domain.PendingLink{
		Payload:  payload,
		Redirect: redirectURI,
	}
	if err := s.linkStore.Save(ctx, sessionKey, link, s.cfg.LinkTTL); err != nil {
		return err
	}
	return nil
}

// PendingLink returns the staged link for the session, or nil.
func (s *AccountService) PendingLink(ctx context.Context, sessionKey string) (*domain.PendingLink, error) {
	return s.linkStore.Get(ctx, sessionKey)
}

// ConfirmLink applies the staged link to the user's account and consumes it.
func (s *AccountService) ConfirmLink(ctx context.Context, sessionKey string, userID int64) (*domain.PendingLink, error) {
	link, err := s.linkStore.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNoPendingLink
	}

	workplaceID := payloadString(link.Payload, "user_id")
	communityID := payloadString(link.Payload, "community_id")
	if workplaceID == "" {
		return nil, fmt.Errorf("%w: payload has no user_id", ErrNoPendingLink)
	}
	if err := s.userRepo.LinkWorkplace(ctx, userID, workplaceID, communityID); err != nil {
		return nil, err
	}
	if err := s.linkStore.Delete(ctx, sessionKey); err != nil {
		s.logger.Warn("failed to delete pending link", zap.Error(err))
	}
	s.logger.Info("account linked", zap.Int64("user_id", userID), zap.String("workplace_id", workplaceID))
	return link, nil
}

func payloadString(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
