package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/seaward/assetctl/config"
	"github.com/seaward/assetctl/errors"
	"github.com/seaward/assetctl/jira"
	"github.com/seaward/assetctl/logger"
)

// loadConfig loads and validates configuration for commands that talk to
// the remote service.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newClient builds the asset client from configuration.
func newClient() (*jira.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return jira.NewClient(cfg, logger.Logger), nil
}

// parseAttrFlags merges repeated --attr name=value flags with an optional
// --attrs JSON object into one change set. JSON values come first, explicit
// --attr flags win on conflict.
func parseAttrFlags(attrFlags []string, attrsJSON string) (map[string]string, error) {
	values := make(map[string]string)

	if attrsJSON != "" {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(attrsJSON), &raw); err != nil {
			return nil, errors.Wrap(err, "invalid --attrs JSON")
		}
		for name, v := range raw {
			switch tv := v.(type) {
			case string:
				values[name] = tv
			case float64:
				values[name] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", tv), "0"), ".")
			case bool:
				values[name] = fmt.Sprintf("%t", tv)
			case nil:
				values[name] = ""
			default:
				return nil, errors.Newf("--attrs value for %q must be a string, number, boolean or null", name)
			}
		}
	}

	for _, flag := range attrFlags {
		name, value, found := strings.Cut(flag, "=")
		if !found || strings.TrimSpace(name) == "" {
			return nil, errors.Newf("invalid --attr %q, expected name=value", flag)
		}
		values[strings.TrimSpace(name)] = value
	}

	if len(values) == 0 {
		return nil, errors.New("no attributes given; use --attr name=value or --attrs '{...}'")
	}
	return values, nil
}

// displayAsset prints one asset, as a readable block or as JSON.
func displayAsset(asset *jira.Asset, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(assetDocument(asset))
	}

	fmt.Printf("%s (%s)\n", asset.Label, asset.ID)
	fmt.Printf("  Type: %s\n", asset.TypeName)

	names := make([]string, 0, len(asset.Attributes))
	for name := range asset.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := asset.Attributes[name]
		if v.IsNull() {
			continue
		}
		fmt.Printf("  %-20s %s\n", name+":", v.String())
	}
	return nil
}

// assetDocument is the JSON shape of one asset: flat attribute strings
// under the identity fields.
func assetDocument(asset *jira.Asset) map[string]interface{} {
	attrs := make(map[string]string, len(asset.Attributes))
	for name, v := range asset.Attributes {
		if v.IsNull() {
			continue
		}
		attrs[name] = v.String()
	}
	return map[string]interface{}{
		"id":         asset.ID,
		"label":      asset.Label,
		"type":       asset.TypeName,
		"attributes": attrs,
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
