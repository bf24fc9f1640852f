package store_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/crypto"
	"github.com/qmsworks/qms/internal/db"
	"github.com/qmsworks/qms/internal/db/migrations"
	"github.com/qmsworks/qms/internal/dbpool"
	"github.com/qmsworks/qms/internal/models"
	"github.com/qmsworks/qms/internal/store"
)

// testHexKey is a valid 64-char hex string (32 bytes) for test encryption.
const testHexKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var (
	sharedEnv  *testEnv
	sharedOnce sync.Once
	sharedErr  error
)

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	sharedOnce.Do(func() {
		ctx := context.Background()

		log := logrus.New()
		log.SetLevel(logrus.ErrorLevel)

		pool, err := dbpool.NewPool(ctx, dbURL, dbpool.DefaultOptions())
		if err != nil {
			sharedErr = err
			return
		}

		if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
			sharedErr = err
			return
		}

		sharedEnv = &testEnv{pool: pool, log: log}
	})

	if sharedErr != nil {
		t.Fatalf("setting up test DB: %v", sharedErr)
	}

	return sharedEnv
}

func newCryptoService(t *testing.T) *crypto.Service {
	t.Helper()

	provider, err := crypto.NewStaticProvider(testHexKey)
	if err != nil {
		t.Fatalf("creating static provider: %v", err)
	}

	return crypto.NewService(provider)
}

func setupTestBase(t *testing.T) store.Base {
	t.Helper()

	env := getTestEnv(t)

	return store.Base{Pool: env.pool, Log: env.log, Crypto: newCryptoService(t)}
}

// createTestUser inserts a throwaway account and returns it as an actor.
func createTestUser(t *testing.T, base store.Base, role string) models.Actor {
	t.Helper()

	suffix := uuid.NewString()[:8]
	u := &models.User{
		Username:     "user-" + suffix,
		Name:         "Test User " + suffix,
		Email:        "user-" + suffix + "@example.com",
		Role:         role,
		PasswordHash: "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva",
	}

	if err := store.NewUserStore(base).CreateUser(context.Background(), u); err != nil {
		t.Fatalf("creating test user: %v", err)
	}

	return models.Actor{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email, Role: u.Role}
}

// createTestDocument creates a DRAFT document with a unique code.
func createTestDocument(t *testing.T, base store.Base, actor models.Actor) *models.Document {
	t.Helper()

	code := "SOP-" + strings.ToUpper(uuid.NewString()[:8])

	doc, err := store.NewDocumentStore(base).CreateDocument(context.Background(), actor, models.CreateDocumentRequest{
		Code:    code,
		Title:   "Test procedure",
		Content: "step one",
	})
	if err != nil {
		t.Fatalf("creating test document: %v", err)
	}

	return doc
}
