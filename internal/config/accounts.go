// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type accountRecord struct {
	Username    string   `toml:"username" yaml:"username"`
	RSSName     string   `toml:"rssname" yaml:"rssname"`
	Description string   `toml:"description" yaml:"description"`
	Exclude     []string `toml:"exclude" yaml:"exclude"`
}

// LoadAccounts reads the feed-key to account mapping. The format follows
// the file extension: .toml, or .yaml/.yml.
func LoadAccounts(path string) ([]common.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &common.ConfigError{Reason: fmt.Sprintf("failed to read accounts file: %v", err)}
	}
	return ParseAccounts(data, filepath.Ext(path))
}

func ParseAccounts(data []byte, ext string) ([]common.Account, error) {
	records := make(map[string]accountRecord)

	switch strings.ToLower(ext) {
	case ".toml", "":
		if err := toml.Unmarshal(data, &records); err != nil {
			return nil, &common.ConfigError{Reason: fmt.Sprintf("failed to parse accounts file: %v", err)}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, &common.ConfigError{Reason: fmt.Sprintf("failed to parse accounts file: %v", err)}
		}
	default:
		return nil, &common.ConfigError{Reason: fmt.Sprintf("unsupported accounts file type %q", ext)}
	}

	if len(records) == 0 {
		return nil, &common.ConfigError{Reason: "no accounts configured"}
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	accounts := make([]common.Account, 0, len(keys))
	for _, key := range keys {
		r := records[key]
		if err := ValidateKey(key); err != nil {
			return nil, err
		}
		handle := strings.TrimPrefix(strings.TrimSpace(r.Username), "@")
		if handle == "" {
			return nil, &common.ConfigError{Key: key, Reason: "username is required"}
		}
		if strings.TrimSpace(r.RSSName) == "" {
			return nil, &common.ConfigError{Key: key, Reason: "rssname is required"}
		}
		desc := r.Description
		if desc == "" {
			desc = r.RSSName
		}
		accounts = append(accounts, common.Account{
			Key:         key,
			Handle:      handle,
			DisplayName: r.RSSName,
			Description: desc,
			Exclude:     r.Exclude,
		})
	}

	return accounts, nil
}

// ValidateKey rejects feed keys that are unsafe as file names.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.Contains(key, "..") {
		return &common.ConfigError{Key: key, Reason: "invalid feed key"}
	}
	for _, r := range key {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '.' || r == '-') {
			return &common.ConfigError{Key: key, Reason: "feed key contains invalid characters"}
		}
	}
	return nil
}

// FilterAccounts keeps only the listed keys; an empty list keeps all.
func FilterAccounts(accounts []common.Account, only []string) ([]common.Account, error) {
	if len(only) == 0 {
		return accounts, nil
	}
	byKey := make(map[string]common.Account, len(accounts))
	for _, a := range accounts {
		byKey[a.Key] = a
	}
	out := make([]common.Account, 0, len(only))
	for _, k := range only {
		a, ok := byKey[k]
		if !ok {
			return nil, &common.ConfigError{Key: k, Reason: "not present in accounts file"}
		}
		out = append(out, a)
	}
	return out, nil
}
