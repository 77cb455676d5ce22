package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/repo"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
	"github.com/light-bringer/catalog-admin-service/internal/platform/spannerdb"
)

// Config for the replication log cleanup job.
type Config struct {
	SpannerDB     string
	RetentionDays int
}

func main() {
	config := Config{}
	flag.StringVar(&config.SpannerDB, "database", os.Getenv("SPANNER_DATABASE"), "Spanner database (format: projects/PROJECT/instances/INSTANCE/databases/DATABASE)")
	flag.IntVar(&config.RetentionDays, "retention", 30, "Retention days for published entries")
	flag.Parse()

	if config.SpannerDB == "" {
		log.Fatal("Error: -database flag or SPANNER_DATABASE is required")
	}
	if config.RetentionDays < 1 {
		log.Fatal("Error: -retention must be at least 1 day")
	}

	if err := cleanup(context.Background(), config); err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}
}

// cleanup removes published entries older than the retention. Failed and
// pending entries are kept for replay.
func cleanup(ctx context.Context, config Config) error {
	client, err := spannerdb.NewClient(ctx, config.SpannerDB)
	if err != nil {
		return err
	}
	defer client.Close()

	cutoff := time.Now().UTC().AddDate(0, 0, -config.RetentionDays)
	log.Printf("Deleting published replication entries created before %s", cutoff.Format(time.RFC3339))

	replicationLog := repo.NewReplicationLogRepo(client, committer.NewCommitter(client))
	count, err := replicationLog.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete published entries: %w", err)
	}

	log.Printf("Deleted %d entries", count)
	return nil
}
