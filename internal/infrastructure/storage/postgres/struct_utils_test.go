package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fatture/internal/core/entity"
	"fatture/internal/core/id"
	"fatture/internal/domain/invoice"
)

type mockCatalog struct {
	entity.Catalog
	Extra   string `db:"extra" json:"extra"`
	Skipped string `db:"-" json:"skipped"`
	NoTag   string
}

func TestExtractDBColumns_EmbeddedStructs(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	for _, expected := range []string{"id", "deletion_mark", "version", "code", "name", "extra"} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "skipped")
}

func TestExtractDBColumns_DocumentWithTotals(t *testing.T) {
	cols := ExtractDBColumns[invoice.Invoice]()

	for _, expected := range []string{
		"id", "version", "number", "date", "client_id", "status", "doc_type",
		"taxable_base", "tax_total", "subtotal", "withholding_amount", "stamp_duty", "payable",
	} {
		assert.Contains(t, cols, expected)
	}
	// Lines and the tax breakdown map are not columns.
	assert.NotContains(t, cols, "lines")
	assert.NotContains(t, cols, "tax_by_rate")
}

func TestStructToMap(t *testing.T) {
	cat := mockCatalog{
		Catalog: entity.Catalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				Version:      5,
			},
			Code: "TEST",
			Name: "Test Name",
		},
		Extra:   "extra value",
		Skipped: "must not appear",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "TEST", m["code"])
	assert.Equal(t, "Test Name", m["name"])
	assert.Equal(t, "extra value", m["extra"])
	_, ok := m["skipped"]
	assert.False(t, ok)
}
