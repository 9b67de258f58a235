package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uwuntu/keyhub/internal/keygen"
	"github.com/uwuntu/keyhub/internal/metrics"
	"github.com/uwuntu/keyhub/internal/model"
	"github.com/uwuntu/keyhub/internal/repository"
)

// AccountService handles key issuance, user onboarding and presence.
type AccountService struct {
	repo    *repository.Repository
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(repo *repository.Repository, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		repo:    repo,
		logger:  logger,
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GenerateKey returns a fresh candidate key. Nothing is persisted.
func (s *AccountService) GenerateKey() (*model.GeneratedKey, error) {
	key, err := keygen.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	s.metrics.IncKeyGenerated()
	return &model.GeneratedKey{APIKey: key, CreatedAt: s.now()}, nil
}

// SaveUserInput defines input for onboarding a user with a key.
type SaveUserInput struct {
	Firstname string
	Lastname  string
	Email     string
	APIKey    string
}

func (in SaveUserInput) normalize() SaveUserInput {
	return SaveUserInput{
		Firstname: strings.TrimSpace(in.Firstname),
		Lastname:  strings.TrimSpace(in.Lastname),
		Email:     strings.TrimSpace(in.Email),
		APIKey:    strings.TrimSpace(in.APIKey),
	}
}

func (in SaveUserInput) validate() error {
	if in.Firstname == "" || in.Lastname == "" || in.Email == "" || in.APIKey == "" {
		return fmt.Errorf("%w: firstname, lastname, email and apiKey are required", ErrValidation)
	}
	if err := validateEmail(in.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

// SaveUser creates a user and its key in one transaction.
// On any failure no user row remains.
func (s *AccountService) SaveUser(ctx context.Context, input SaveUserInput) (*model.UserRecord, error) {
	input = input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		Firstname: input.Firstname,
		Lastname:  input.Lastname,
		Email:     input.Email,
		CreatedAt: now,
	}
	key := &model.APIKey{
		Key:       input.APIKey,
		Status:    model.KeyStatusActive,
		CreatedAt: now,
	}

	err := s.repo.WithTx(ctx, func(q *repository.Queries) error {
		if err := q.CreateUser(ctx, user); err != nil {
			return err
		}
		key.ID = user.ID
		return q.CreateAPIKey(ctx, key)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			s.metrics.IncUserSaved("duplicate")
			return nil, ErrDuplicateEmail
		case errors.Is(err, repository.ErrAPIKeyExists):
			s.metrics.IncUserSaved("duplicate")
			return nil, ErrDuplicateKey
		default:
			s.metrics.IncUserSaved("failed")
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	s.metrics.IncUserSaved("success")
	s.logger.Info("user saved", "user_id", user.ID)

	rec := model.NewUserRecord(user, key)
	return &rec, nil
}

// ValidateKey looks up a key and marks its owner online.
// The presence update is best-effort and never fails the call.
func (s *AccountService) ValidateKey(ctx context.Context, value string) (*model.KeyValidation, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		s.metrics.IncKeyValidated("invalid")
		return nil, ErrMissingKey
	}
	if !keygen.ValidFormat(value) {
		s.metrics.IncKeyValidated("invalid")
		return nil, ErrInvalidFormat
	}

	key, err := s.repo.GetAPIKeyByValue(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			s.metrics.IncKeyValidated("not_found")
			return nil, ErrNotFound
		}
		s.metrics.IncKeyValidated("failed")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	now := s.now()
	if err := s.repo.SetUserPresence(ctx, key.ID, true, &now); err != nil {
		s.logger.Warn("failed to mark user online after validation",
			"user_id", key.ID,
			"error", err,
		)
	}

	s.metrics.IncKeyValidated("valid")
	return &model.KeyValidation{
		Key:       key.Key,
		Status:    key.EffectiveStatus(),
		CreatedAt: key.CreatedAt,
	}, nil
}

// SetOnline marks a user online. Unknown IDs are not an error.
func (s *AccountService) SetOnline(ctx context.Context, userID int64) error {
	now := s.now()
	if err := s.repo.SetUserPresence(ctx, userID, true, &now); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.IncPresenceUpdate("online")
	return nil
}

// SetOffline marks a user offline and clears last_seen.
func (s *AccountService) SetOffline(ctx context.Context, userID int64) error {
	if err := s.repo.SetUserPresence(ctx, userID, false, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.IncPresenceUpdate("offline")
	return nil
}
