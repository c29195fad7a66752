package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/notify"
	"github.com/safar/repair-orders/internal/store"
	"github.com/safar/repair-orders/internal/template"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testTemplates = `
templates:
  - id: three-step
    name: Three step service
    stages:
      - name: Inspect
      - name: Repair
      - name: Test drive
`

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationDir, filename))
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

// testClock is a settable clock so timestamp assertions can be exact.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	db        *sql.DB
	svc       *Service
	clock     *testClock
	admin     *models.User
	customer  *models.User
	mechanicA *models.User
	mechanicB *models.User
}

func newFixture(t *testing.T, db *sql.DB) *fixture {
	ctx := context.Background()

	reg, err := template.Parse([]byte(testTemplates))
	if err != nil {
		t.Fatalf("Parse templates: %v", err)
	}

	f := &fixture{
		db:    db,
		clock: &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = NewService(db, notify.NewEmitter(notify.StoreSink{DB: db}, zerolog.Nop()), zerolog.Nop(),
		WithTemplates(reg), WithClock(f.clock.Now))

	users := []struct {
		dst   **models.User
		email string
		role  string
	}{
		{&f.admin, "admin@example.com", models.RoleAdmin},
		{&f.customer, "customer@example.com", models.RoleCustomer},
		{&f.mechanicA, "mech-a@example.com", models.RoleMechanic},
		{&f.mechanicB, "mech-b@example.com", models.RoleMechanic},
	}
	for _, u := range users {
		created, err := store.CreateUser(ctx, db, u.email, u.email, u.role)
		if err != nil {
			t.Fatalf("Create user %s: %v", u.email, err)
		}
		*u.dst = created
	}

	return f
}

func (f *fixture) newOrder(t *testing.T) *models.Order {
	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: f.customer.ID,
		TemplateID: "three-step",
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}
	return order
}

func (f *fixture) countNotifications(t *testing.T, userID int64, kind string) int {
	var n int
	err := f.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND type = $2`,
		userID, kind).Scan(&n)
	if err != nil {
		t.Fatalf("Count notifications: %v", err)
	}
	return n
}
