// Command create-admin registers an administrator directly in the database.
//
// The password is read from the terminal without echo, or from the first
// line of stdin when stdin is not a terminal.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/uwuntu/keyhub/internal/metrics"
	"github.com/uwuntu/keyhub/internal/repository"
	"github.com/uwuntu/keyhub/internal/service"
	"github.com/uwuntu/keyhub/internal/session"
)

type output struct {
	AdminID int64  `json:"admin_id"`
	Email   string `json:"email"`
}

var errDuplicateAdmin = errors.New("admin already exists")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		driver      = fs.String("driver", envOr("DATABASE_DRIVER", repository.DriverSQLite), "Database driver: sqlite or postgres")
		databaseURL = fs.String("database-url", envOr("DATABASE_URL", "uwuntu.db"), "SQLite file path or PostgreSQL URL")
		email       = fs.String("email", "", "Admin email (required)")
		format      = fs.String("format", "plain", "Output format: plain or json")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*email) == "" {
		return errors.New("-email is required")
	}
	outFormat := strings.ToLower(*format)
	if outFormat != "plain" && outFormat != "json" {
		return errors.New("invalid format; use plain or json")
	}

	password, err := readPassword(stdin, stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.Open(ctx, *driver, *databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := service.NewAdminAuthService(repo, session.NewMemoryStore(time.Minute), logger, metrics.NewNoop())

	id, err := svc.Register(ctx, *email, password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			return fmt.Errorf("%w: %s", errDuplicateAdmin, strings.TrimSpace(*email))
		}
		return fmt.Errorf("create admin: %w", err)
	}

	out := output{AdminID: id, Email: strings.TrimSpace(*email)}

	if outFormat == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err = fmt.Fprintf(stdout, "created admin %d (%s)\n", out.AdminID, out.Email)
	return err
}

// readPassword prompts on a terminal, otherwise reads one line from in.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return readPasswordLine(in)
}

// readPasswordLine reads the first line of r without its line ending.
func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
