package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatabase(t *testing.T) {
	tgt, err := parseDatabase("projects/p/instances/i/databases/d")
	require.NoError(t, err)
	assert.Equal(t, "projects/p/instances/i", tgt.instancePath())
	assert.Equal(t, "projects/p/instances/i/databases/d", tgt.databasePath())

	_, err = parseDatabase("projects/p/databases/d")
	assert.Error(t, err)
}

func TestSplitDDLStatements(t *testing.T) {
	content := `-- products
CREATE TABLE products (
    product_id STRING(36) NOT NULL,
) PRIMARY KEY (product_id);

CREATE INDEX products_by_sku ON products(sku);
`
	stmts := splitDDLStatements(content)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE products (\nproduct_id STRING(36) NOT NULL,\n) PRIMARY KEY (product_id)", stmts[0])
}

func TestCreatedObject(t *testing.T) {
	tests := []struct {
		stmt string
		want string
	}{
		{"CREATE TABLE products (\n  id STRING(36)) PRIMARY KEY (id)", "products"},
		{"CREATE TABLE `Products`(id STRING(36)) PRIMARY KEY (id)", "products"},
		{"CREATE INDEX products_by_sku ON products(sku)", "products_by_sku"},
		{"CREATE UNIQUE NULL_FILTERED INDEX by_ext ON products(external_id)", "by_ext"},
		{"CREATE NULL_FILTERED INDEX by_parent ON products(parent_id)", "by_parent"},
		{"ALTER TABLE products ADD COLUMN x INT64", ""},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			assert.Equal(t, tt.want, createdObject(tt.stmt))
		})
	}
}
