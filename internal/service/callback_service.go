package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/config"
	"github.com/bizlink/workplace-console/internal/domain"
	"github.com/bizlink/workplace-console/internal/repository"
)

// CallbackService manages the webhook delivery log.
type CallbackService struct {
	callbackRepo repository.CallbackRepository
	cfg          config.Config
	logger       *zap.Logger
}

// NewCallbackService wires the callback service.
func NewCallbackService(callbackRepo repository.CallbackRepository, cfg config.Config, logger *zap.Logger) *CallbackService {
	return &CallbackService{callbackRepo: callbackRepo, cfg: cfg, logger: logger}
}

// List returns logged deliveries, newest first. Recognized topics filter by
// substring match on the stored path; anything else returns all rows.
func (s *CallbackService) List(ctx context.Context, topic string) ([]domain.Callback, error) {
	switch topic {
	case "page", "group", "link":
		return s.callbackRepo.List(ctx, topic)
	default:
		return s.callbackRepo.List(ctx, "")
	}
}

// Purge deletes all logged deliveries.
func (s *CallbackService) Purge(ctx context.Context) error {
	return s.callbackRepo.Purge(ctx)
}

// Record appends one inbound delivery.
func (s *CallbackService) Record(ctx context.Context, path, payload string) (domain.Callback, error) {
	cb, err := s.callbackRepo.Create(ctx, path, payload)
	if err != nil {
		return domain.Callback{}, err
	}
	s.logger.Info("callback recorded", zap.String("path", path))
	return cb, nil
}

// VerifySubscription checks the hub handshake parameters and returns the
// challenge to echo back.
func (s *CallbackService) VerifySubscription(mode, verifyToken, challenge string) (string, bool) {
	if mode != "subscribe" {
		return "", false
	}
	if subtleEqual(verifyToken, s.cfg.VerifyToken) {
		return challenge, true
	}
	return "", false
}

// ValidateSignature checks the X-Hub-Signature-256 header against the
// delivery body. Deliveries without a header are accepted.
func (s *CallbackService) ValidateSignature(body []byte, header string) bool {
	if header == "" {
		return true
	}
	expected := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(s.cfg.AppSecret))
	mac.Write(body)
	return subtleEqual(expected, hex.EncodeToString(mac.Sum(nil)))
}

func subtleEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
