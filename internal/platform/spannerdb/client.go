// Package spannerdb opens Spanner clients.
package spannerdb

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/option"
)

// NewClient opens a client for database
// (projects/<p>/instances/<i>/databases/<d>). When SPANNER_EMULATOR_HOST is
// set the Spanner library connects to the emulator without credentials.
func NewClient(ctx context.Context, database string, opts ...option.ClientOption) (*spanner.Client, error) {
	if database == "" {
		return nil, fmt.Errorf("spanner database is required")
	}
	if host := os.Getenv("SPANNER_EMULATOR_HOST"); host != "" {
		opts = append(opts, option.WithoutAuthentication())
	}
	client, err := spanner.NewClientWithConfig(ctx, database, spanner.ClientConfig{
		SessionPoolConfig: spanner.DefaultSessionPoolConfig,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create spanner client: %w", err)
	}
	return client, nil
}
