package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/uwuntu/keyhub/internal/metrics"
	"github.com/uwuntu/keyhub/internal/model"
	"github.com/uwuntu/keyhub/internal/repository"
)

// DefaultPresenceWindow is how recently a user must have been seen to be
// reported as online_now.
const DefaultPresenceWindow = 30 * 24 * time.Hour

// CSVHeader is the first line of every export.
var CSVHeader = []string{
	"id", "firstname", "lastname", "email",
	"user_created_at", "api_key", "apikey_created_at", "last_seen",
}

// AdminService handles user management for authenticated admins.
type AdminService struct {
	repo           *repository.Repository
	logger         *slog.Logger
	metrics        metrics.Recorder
	presenceWindow time.Duration
	now            func() time.Time
}

// NewAdminService creates a new AdminService. A non-positive window falls
// back to DefaultPresenceWindow.
func NewAdminService(repo *repository.Repository, presenceWindow time.Duration, logger *slog.Logger, recorder metrics.Recorder) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if presenceWindow <= 0 {
		presenceWindow = DefaultPresenceWindow
	}
	return &AdminService{
		repo:           repo,
		logger:         logger,
		metrics:        recorder,
		presenceWindow: presenceWindow,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ListUsers returns every user with its key, ascending by ID.
func (s *AdminService) ListUsers(ctx context.Context) ([]model.AdminUserRecord, error) {
	records, err := s.repo.ListUserRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	now := s.now()
	users := make([]model.AdminUserRecord, 0, len(records))
	for i := range records {
		users = append(users, model.AdminUserRecord{
			UserRecord: records[i],
			OnlineNow:  records[i].SeenWithin(now, s.presenceWindow),
		})
	}
	return users, nil
}

// RevokeKey deletes the user's key. Revoking a missing key succeeds.
func (s *AdminService) RevokeKey(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidID
	}
	if err := s.repo.DeleteAPIKey(ctx, userID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.metrics.IncKeyRevoked()
	s.logger.Info("api key revoked", "user_id", userID)
	return nil
}

// DeleteUser removes the user's key and then the user in one transaction.
func (s *AdminService) DeleteUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidID
	}

	err := s.repo.WithTx(ctx, func(q *repository.Queries) error {
		if err := q.DeleteAPIKey(ctx, userID); err != nil {
			return err
		}
		return q.DeleteUser(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.metrics.IncUserDeleted()
	s.logger.Info("user deleted", "user_id", userID)
	return nil
}

// ExportCSV writes every user record as CSV. Every field is quoted.
func (s *AdminService) ExportCSV(ctx context.Context, w io.Writer) error {
	records, err := s.repo.ListUserRecords(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	bw := bufio.NewWriter(w)
	writeCSVLine(bw, CSVHeader, false)
	for i := range records {
		writeCSVLine(bw, csvFields(&records[i]), true)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	s.metrics.IncExport()
	return nil
}

func csvFields(r *model.UserRecord) []string {
	var apiKey string
	if r.APIKey != nil {
		apiKey = *r.APIKey
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Firstname,
		r.Lastname,
		r.Email,
		csvTime(&r.CreatedAt),
		apiKey,
		csvTime(r.APIKeyCreatedAt),
		csvTime(r.LastSeen),
	}
}

func csvTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// writeCSVLine writes one line. Quoted fields have embedded quotes doubled.
func writeCSVLine(w *bufio.Writer, fields []string, quote bool) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		if !quote {
			w.WriteString(field)
			continue
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
