// Package m_category describes the categories table. Categories are managed
// elsewhere; this service only checks that they exist.
package m_category

const (
	TableName = "categories"

	CategoryID = "category_id"
	Name       = "name"
)
