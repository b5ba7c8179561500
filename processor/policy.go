// Package processor implements the asset business rules: device age,
// buyout pricing against the depreciation policy, and name formatting.
// Everything here is pure; all remote I/O happens in the callers.
package processor

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/seaward/assetctl/errors"
)

//go:embed default_policy.toml
var defaultPolicyTOML []byte

// Policy is the buyout depreciation policy: the VAT rate, the device
// categories with their residual-percentage schedules, and the object-type
// to category mapping. Loaded from TOML so finance can version it without a
// rebuild; the embedded default mirrors the current company table.
type Policy struct {
	Version    int
	VATRate    decimal.Decimal
	categories map[string]*category
}

type category struct {
	name      string
	types     []string
	minimum   decimal.Decimal
	residuals []decimal.Decimal // indexed by month-1
}

// policyFile is the TOML shape. Percentages are strings so the table stays
// exact; floats would drift.
type policyFile struct {
	Version    int                           `toml:"version"`
	VATRate    string                        `toml:"vat_rate"`
	Categories map[string]policyCategoryFile `toml:"categories"`
}

type policyCategoryFile struct {
	Types     []string `toml:"types"`
	Minimum   string   `toml:"minimum"`
	Residuals []string `toml:"residuals"`
}

// DefaultPolicy returns the built-in policy table.
func DefaultPolicy() *Policy {
	p, err := parsePolicy(defaultPolicyTOML)
	if err != nil {
		// the embedded table is validated by tests; a parse failure here is
		// a build defect
		panic(err)
	}
	return p
}

// Load reads a policy file. An empty path selects the embedded default.
func Load(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read policy file %s", path)
	}
	p, err := parsePolicy(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid policy file %s", path)
	}
	return p, nil
}

func parsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "policy TOML parse failed")
	}
	if len(file.Categories) == 0 {
		return nil, errors.New("policy defines no categories")
	}

	vat, err := decimal.NewFromString(file.VATRate)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid vat_rate %q", file.VATRate)
	}

	p := &Policy{
		Version:    file.Version,
		VATRate:    vat,
		categories: make(map[string]*category, len(file.Categories)),
	}
	for name, cf := range file.Categories {
		c := &category{name: name, types: cf.Types}
		c.minimum, err = decimal.NewFromString(cf.Minimum)
		if err != nil {
			return nil, errors.Wrapf(err, "category %s: invalid minimum %q", name, cf.Minimum)
		}
		if len(cf.Residuals) == 0 {
			return nil, errors.Newf("category %s defines no residual schedule", name)
		}
		c.residuals = make([]decimal.Decimal, len(cf.Residuals))
		for i, r := range cf.Residuals {
			c.residuals[i], err = decimal.NewFromString(r)
			if err != nil {
				return nil, errors.Wrapf(err, "category %s: invalid residual %q at month %d", name, r, i+1)
			}
		}
		p.categories[name] = c
	}
	return p, nil
}

// CategoryFor maps an object type name to its device category. The match is
// exact first, then by substring, so "MacBook Pro Laptops" still lands in
// Computers. Unknown types are simply not priced.
func (p *Policy) CategoryFor(objectType string) (string, bool) {
	for name, c := range p.categories {
		for _, t := range c.types {
			if t == objectType {
				return name, true
			}
		}
	}
	for name, c := range p.categories {
		for _, t := range c.types {
			if strings.Contains(objectType, t) {
				return name, true
			}
		}
	}
	return "", false
}

// ResidualPercent returns the residual percentage for a category at the
// given device age. Ages below one month use the first table row; ages past
// the end of the schedule use the category minimum.
func (p *Policy) ResidualPercent(categoryName string, months int) (decimal.Decimal, bool) {
	c, ok := p.categories[categoryName]
	if !ok {
		return decimal.Decimal{}, false
	}
	if months < 1 {
		months = 1
	}
	if months > len(c.residuals) {
		return c.minimum, true
	}
	return c.residuals[months-1], true
}

// CategoryNames returns the sorted category names, for error messages and
// logging.
func (p *Policy) CategoryNames() []string {
	names := make([]string, 0, len(p.categories))
	for name := range p.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
