// Package main seeds a QMS database with accounts and controlled documents
// from a YAML fixture. Existing users and documents are left untouched.
//
// Usage:
//
//	DATABASE_URL=postgres://... ENCRYPTION_KEY=<hex> go run ./scripts/seed [fixture.yaml]
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/qmsworks/qms/internal/crypto"
	"github.com/qmsworks/qms/internal/db"
	"github.com/qmsworks/qms/internal/db/migrations"
	"github.com/qmsworks/qms/internal/dbpool"
	"github.com/qmsworks/qms/internal/models"
	"github.com/qmsworks/qms/internal/service"
	"github.com/qmsworks/qms/internal/store"
)

//go:embed fixture.yaml
var defaultFixture []byte

type fixture struct {
	Users     []seedUser     `yaml:"users"`
	Documents []seedDocument `yaml:"documents"`
}

type seedUser struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

type seedDocument struct {
	Code    string   `yaml:"code"`
	Title   string   `yaml:"title"`
	Content string   `yaml:"content"`
	Owner   string   `yaml:"owner"`
	Events  []string `yaml:"events"`
}

// report holds the seeding summary.
type report struct {
	UsersCreated     int
	UsersSkipped     int
	DocumentsCreated int
	DocumentsSkipped int
	Transitions      int
	Duration         time.Duration
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	encKey := os.Getenv("ENCRYPTION_KEY")
	if encKey == "" {
		slog.Error("ENCRYPTION_KEY is required (hex-encoded 32-byte AES-256 key)")
		os.Exit(1)
	}

	fx, err := loadFixture(os.Args[1:])
	if err != nil {
		slog.Error("failed to load fixture", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	rep, err := seed(context.Background(), databaseURL, encKey, fx)
	rep.Duration = time.Since(start)
	if err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	slog.Info("seed complete",
		"users_created", rep.UsersCreated,
		"users_skipped", rep.UsersSkipped,
		"documents_created", rep.DocumentsCreated,
		"documents_skipped", rep.DocumentsSkipped,
		"transitions", rep.Transitions,
		"duration", rep.Duration.Round(time.Millisecond),
	)
}

func loadFixture(args []string) (*fixture, error) {
	raw := defaultFixture
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		raw = data
	}

	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	return &fx, nil
}

func seed(ctx context.Context, databaseURL, encKey string, fx *fixture) (report, error) {
	var rep report

	pool, err := dbpool.NewPool(ctx, databaseURL, dbpool.DefaultOptions())
	if err != nil {
		return rep, err
	}
	defer pool.Close()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return rep, err
	}

	keys, err := crypto.NewStaticProvider(encKey)
	if err != nil {
		return rep, err
	}

	base := store.Base{Pool: pool, Log: log, Crypto: crypto.NewService(keys)}
	users := store.NewUserStore(base)
	docs := service.NewDocumentService(store.NewDocumentStore(base), log)

	actors := map[string]models.Actor{}

	for _, su := range fx.Users {
		u, created, err := ensureUser(ctx, users, su)
		if err != nil {
			return rep, fmt.Errorf("user %s: %w", su.Username, err)
		}
		if created {
			rep.UsersCreated++
		} else {
			rep.UsersSkipped++
		}
		actors[u.Username] = models.Actor{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email, Role: u.Role}
	}

	for _, sd := range fx.Documents {
		owner, ok := actors[sd.Owner]
		if !ok {
			return rep, fmt.Errorf("document %s: unknown owner %q", sd.Code, sd.Owner)
		}

		_, err := docs.CreateDocument(ctx, owner, models.CreateDocumentRequest{
			Code: sd.Code, Title: sd.Title, Content: sd.Content,
		})
		if errors.Is(err, models.ErrDuplicateKey) {
			slog.Info("document exists, skipping", "code", sd.Code)
			rep.DocumentsSkipped++
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("document %s: %w", sd.Code, err)
		}
		rep.DocumentsCreated++

		for _, event := range sd.Events {
			_, err := docs.Transition(ctx, owner, sd.Code, models.TransitionRequest{Event: event, Reason: "seed data"})
			if err != nil {
				return rep, fmt.Errorf("document %s %s: %w", sd.Code, event, err)
			}
			rep.Transitions++
		}
	}

	return rep, nil
}

func ensureUser(ctx context.Context, users *store.UserStore, su seedUser) (*models.User, bool, error) {
	existing, err := users.GetByUsername(ctx, su.Username)
	if err == nil {
		slog.Info("user exists, skipping", "username", su.Username)
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, false, err
	}

	hash, err := service.HashPassword(su.Password)
	if err != nil {
		return nil, false, err
	}

	u := &models.User{
		Username:     su.Username,
		Name:         su.Name,
		Email:        su.Email,
		Role:         su.Role,
		PasswordHash: hash,
	}
	if err := users.CreateUser(ctx, u); err != nil {
		return nil, false, err
	}

	slog.Info("user created", "username", u.Username, "role", u.Role)
	return u, true, nil
}
