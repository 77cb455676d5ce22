package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	databasePath = flag.String("database", getEnvOrDefault("SPANNER_DATABASE", "projects/test-project/instances/dev-instance/databases/catalog-admin-db"), "Spanner database (projects/P/instances/I/databases/D)")
	migrateDir   = flag.String("migrations", "migrations", "Directory containing migration SQL files")
)

// target is a parsed database path.
type target struct {
	project  string
	instance string
	database string
}

func (t target) instancePath() string {
	return fmt.Sprintf("projects/%s/instances/%s", t.project, t.instance)
}

func (t target) databasePath() string {
	return t.instancePath() + "/databases/" + t.database
}

func main() {
	flag.Parse()

	tgt, err := parseDatabase(*databasePath)
	if err != nil {
		log.Fatalf("Invalid database: %v", err)
	}

	ctx := context.Background()
	emulator := os.Getenv("SPANNER_EMULATOR_HOST") != ""
	if emulator {
		log.Printf("Using Spanner emulator at %s", os.Getenv("SPANNER_EMULATOR_HOST"))
	}

	if err := run(ctx, tgt, emulator); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully!")
}

func run(ctx context.Context, tgt target, emulator bool) error {
	// 1. The emulator starts empty; real instances are provisioned elsewhere
	if emulator {
		if err := ensureInstance(ctx, tgt); err != nil {
			return fmt.Errorf("failed to ensure instance: %w", err)
		}
	}

	adminClient, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	// 2. Ensure database
	existing, err := ensureDatabase(ctx, adminClient, tgt)
	if err != nil {
		return fmt.Errorf("failed to ensure database: %w", err)
	}

	// 3. Apply migrations
	if err := applyMigrations(ctx, adminClient, tgt, existing); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func parseDatabase(path string) (target, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 6 || parts[0] != "projects" || parts[2] != "instances" || parts[4] != "databases" {
		return target{}, fmt.Errorf("%q is not projects/P/instances/I/databases/D", path)
	}
	return target{project: parts[1], instance: parts[3], database: parts[5]}, nil
}

func ensureInstance(ctx context.Context, tgt target) error {
	log.Printf("Ensuring instance %s exists...", tgt.instance)

	instanceAdmin, err := instance.NewInstanceAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create instance admin client: %w", err)
	}
	defer instanceAdmin.Close()

	_, err = instanceAdmin.GetInstance(ctx, &instancepb.GetInstanceRequest{Name: tgt.instancePath()})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to get instance: %w", err)
	}

	log.Println("Creating instance...")
	op, err := instanceAdmin.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     "projects/" + tgt.project,
		InstanceId: tgt.instance,
		Instance: &instancepb.Instance{
			Config:      fmt.Sprintf("projects/%s/instanceConfigs/emulator-config", tgt.project),
			DisplayName: "Catalog admin (emulator)",
			NodeCount:   1,
		},
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("failed to wait for instance creation: %w", err)
	}
	return nil
}

// ensureDatabase creates the database when missing and returns the DDL it
// already holds.
func ensureDatabase(ctx context.Context, adminClient *database.DatabaseAdminClient, tgt target) ([]string, error) {
	log.Printf("Ensuring database %s exists...", tgt.database)

	ddl, err := adminClient.GetDatabaseDdl(ctx, &databasepb.GetDatabaseDdlRequest{Database: tgt.databasePath()})
	if err == nil {
		return ddl.GetStatements(), nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("failed to read database DDL: %w", err)
	}

	log.Println("Creating database...")
	op, err := adminClient.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          tgt.instancePath(),
		CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", tgt.database),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for database creation: %w", err)
	}
	return nil, nil
}

// applyMigrations runs every *.sql file in name order. Statements creating
// an object the database already has are skipped, so reruns are harmless.
func applyMigrations(ctx context.Context, adminClient *database.DatabaseAdminClient, tgt target, existing []string) error {
	files, err := filepath.Glob(filepath.Join(*migrateDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Println("No migration files found")
		return nil
	}

	known := make(map[string]bool)
	for _, stmt := range existing {
		if name := createdObject(stmt); name != "" {
			known[name] = true
		}
	}

	for _, file := range files {
		migrationName := filepath.Base(file)

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		var pending []string
		for _, stmt := range splitDDLStatements(string(content)) {
			if name := createdObject(stmt); name != "" && known[name] {
				continue
			}
			pending = append(pending, stmt)
		}
		if len(pending) == 0 {
			log.Printf("Skipping %s, already applied", migrationName)
			continue
		}

		log.Printf("Applying %s (%d statements)...", migrationName, len(pending))
		op, err := adminClient.UpdateDatabaseDdl(ctx, &databasepb.UpdateDatabaseDdlRequest{
			Database:   tgt.databasePath(),
			Statements: pending,
		})
		if err != nil {
			return fmt.Errorf("failed to start DDL update for %s: %w", migrationName, err)
		}
		if err := op.Wait(ctx); err != nil {
			return fmt.Errorf("failed to apply DDL for %s: %w", migrationName, err)
		}
		for _, stmt := range pending {
			if name := createdObject(stmt); name != "" {
				known[name] = true
			}
		}
	}
	return nil
}

// createdObject returns the lower-cased name of the table or index a CREATE
// statement defines, or "".
func createdObject(stmt string) string {
	fields := strings.Fields(stmt)
	for i := 0; i+2 < len(fields); i++ {
		if !strings.EqualFold(fields[i], "CREATE") {
			continue
		}
		j := i + 1
		for j < len(fields) && (strings.EqualFold(fields[j], "UNIQUE") || strings.EqualFold(fields[j], "NULL_FILTERED")) {
			j++
		}
		if j+1 >= len(fields) {
			return ""
		}
		if strings.EqualFold(fields[j], "TABLE") || strings.EqualFold(fields[j], "INDEX") {
			name := fields[j+1]
			if k := strings.IndexByte(name, '('); k >= 0 {
				name = name[:k]
			}
			return strings.ToLower(strings.Trim(name, "`"))
		}
		return ""
	}
	return ""
}

func splitDDLStatements(content string) []string {
	lines := strings.Split(content, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
