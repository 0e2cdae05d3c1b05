package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"magewoo/internal/migration"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Blue Widget", "blue-widget"},
		{"Blue  Widget!!", "blue-widget"},
		{"  Spaced Out  ", "spaced-out"},
		{"Size 10 Shoes", "size-10-shoes"},
		{"UPPER_case/mixed", "upper-case-mixed"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, migration.Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestSlugifyDeterministic(t *testing.T) {
	assert.Equal(t, migration.Slugify("Some Product Name"), migration.Slugify("Some Product Name"))
}
