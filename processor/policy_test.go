package processor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyTable(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, "0.21", p.VATRate.String())
	assert.Equal(t, []string{"Computers", "Phones", "Tablets"}, p.CategoryNames())

	tests := []struct {
		category string
		months   int
		want     string
	}{
		{"Computers", 1, "63.75"},
		{"Computers", 12, "35"},
		{"Computers", 20, "29"},
		{"Computers", 48, "10.2"},
		{"Computers", 49, "10.2"},
		{"Computers", 120, "10.2"},
		{"Tablets", 1, "75.25"},
		{"Tablets", 48, "14.2"},
		{"Phones", 25, "28.92"},
		{"Phones", 60, "11.6"},
		// ages below one month read the first table row
		{"Computers", 0, "63.75"},
	}
	for _, tt := range tests {
		residual, ok := p.ResidualPercent(tt.category, tt.months)
		require.True(t, ok, "%s month %d", tt.category, tt.months)
		assert.Equal(t, tt.want, residual.String(), "%s month %d", tt.category, tt.months)
	}

	_, ok := p.ResidualPercent("Furniture", 12)
	assert.False(t, ok)
}

func TestDefaultPolicyScheduleLengths(t *testing.T) {
	p := DefaultPolicy()
	for _, name := range p.CategoryNames() {
		c := p.categories[name]
		assert.Len(t, c.residuals, 48, name)
		// the final scheduled month matches the minimum rate
		assert.True(t, c.residuals[47].Equal(c.minimum), name)
	}
}

func TestCategoryForMatchesSubstrings(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		objectType string
		want       string
		ok         bool
	}{
		{"MacBook", "Computers", true},
		{"MacBook Pro Laptops", "Computers", true},
		{"Windows/Linux", "Computers", true},
		{"iPhone", "Phones", true},
		{"Company iPhones", "Phones", true},
		{"Android", "Phones", true},
		{"Tablet", "Tablets", true},
		{"Monitors", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := p.CategoryFor(tt.objectType)
		assert.Equal(t, tt.ok, ok, tt.objectType)
		assert.Equal(t, tt.want, got, tt.objectType)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
version = 2
vat_rate = "0.19"

[categories.Servers]
types = ["Rack"]
minimum = "5.00"
residuals = ["50.00", "40.00", "30.00"]
`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Version)
	assert.Equal(t, "0.19", p.VATRate.String())

	residual, ok := p.ResidualPercent("Servers", 2)
	require.True(t, ok)
	assert.Equal(t, "40", residual.String())

	residual, ok = p.ResidualPercent("Servers", 10)
	require.True(t, ok)
	assert.Equal(t, "5", residual.String(), "past the schedule falls to the minimum")
}

func TestLoadPolicyRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	_, err := Load(write("nocat.toml", `vat_rate = "0.21"`))
	assert.Error(t, err)

	_, err = Load(write("badvat.toml", `
vat_rate = "twenty-one"
[categories.X]
types = ["X"]
minimum = "1"
residuals = ["1"]
`))
	assert.Error(t, err)

	_, err = Load(write("badresidual.toml", `
vat_rate = "0.21"
[categories.X]
types = ["X"]
minimum = "1"
residuals = ["not-a-number"]
`))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
