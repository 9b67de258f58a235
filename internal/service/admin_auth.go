package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/uwuntu/keyhub/internal/auth"
	"github.com/uwuntu/keyhub/internal/metrics"
	"github.com/uwuntu/keyhub/internal/model"
	"github.com/uwuntu/keyhub/internal/repository"
	"github.com/uwuntu/keyhub/internal/session"
)

// AdminAuthService handles admin registration and session login.
type AdminAuthService struct {
	repo     *repository.Repository
	sessions session.Store
	logger   *slog.Logger
	metrics  metrics.Recorder
	params   auth.Params
	verify   func(password, encodedHash string) (bool, error)

	// dummyHash is verified on unknown emails so both login failures cost
	// one argon2 run.
	dummyOnce sync.Once
	dummyHash string
}

// NewAdminAuthService creates a new AdminAuthService.
func NewAdminAuthService(repo *repository.Repository, sessions session.Store, logger *slog.Logger, recorder metrics.Recorder) *AdminAuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AdminAuthService{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
		metrics:  recorder,
		params:   auth.DefaultParams,
		verify:   auth.VerifyPassword,
	}
}

// Register creates an admin with an argon2id password hash.
func (s *AdminAuthService) Register(ctx context.Context, email, password string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return 0, fmt.Errorf("%w: email and password are required", ErrMissingField)
	}

	hash, err := s.params.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.Admin{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrAdminExists) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Info("admin registered", "admin_id", admin.ID)
	return admin.ID, nil
}

// Login checks credentials and opens a server-side session.
// Unknown email and wrong password return the same error.
func (s *AdminAuthService) Login(ctx context.Context, email, password string) (*session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrMissingField)
	}

	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			_, _ = s.verify(password, s.unknownAdminHash())
			s.metrics.IncAdminLogin("failure")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	ok, err := s.verify(password, admin.PasswordHash)
	if err != nil {
		s.logger.Error("stored admin password hash is unreadable",
			"admin_id", admin.ID,
			"error", err,
		)
		s.metrics.IncAdminLogin("failure")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		s.metrics.IncAdminLogin("failure")
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, session.Data{AdminID: admin.ID, Email: admin.Email})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.IncAdminLogin("success")
	s.logger.Info("admin logged in", "admin_id", admin.ID)
	return sess, nil
}

func (s *AdminAuthService) unknownAdminHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.params.Hash("unknown-admin")
		if err != nil {
			s.logger.Error("failed to hash dummy password", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// Logout destroys a session. A missing session is not an error.
func (s *AdminAuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// Authenticate resolves a session ID to the admin it belongs to.
func (s *AdminAuthService) Authenticate(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Data.AdminID == 0 {
		return nil, session.ErrNotFound
	}
	return sess, nil
}
