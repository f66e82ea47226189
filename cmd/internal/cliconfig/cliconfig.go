// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package cliconfig merges the two configuration sources spec §6 allows
// (book.toml's preprocessor table, delivered as JSON on stdin in book mode;
// CLI flags in standalone mode) into one Options struct per binary, the
// same way docforge's cmd/app.Configure layers a viper instance with
// "::"-delimited keys over cobra/pflag-bound flags.
package cliconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// New creates a viper instance configured the way docforge's Configure
// does: "::" as the key delimiter (so nested book.toml tables round-trip
// cleanly) and automatic environment variable fallback.
func New() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag on fs into v under its own name, the same
// one-call-per-flag pattern docforge's configureFlags uses, but looped
// since our flag sets are defined once per binary rather than hand-rolled
// per option.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

// LoadConfigFile merges a config file into v if MDBOOK_CONFIG names one,
// mirroring docforge's DOCFORGE_CONFIG-driven configureConfigFile, but
// fatal-free: a missing or malformed file is a Configuration error (§7)
// returned to the caller rather than silently skipped, since unlike
// docforge's optional user config file this one was explicitly requested.
func LoadConfigFile(v *viper.Viper) error {
	cfgFile := os.Getenv("MDBOOK_CONFIG")
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("cliconfig: reading MDBOOK_CONFIG file %q: %w", cfgFile, err)
	}
	klog.Infof("cliconfig: loaded configuration from %s", cfgFile)
	return nil
}

// MergeBookConfig merges the preprocessor's own table out of the host's
// Context.Config (already isolated by the caller — mdbook nests it under
// preprocessor.<name>, stripped before this is called) into v, so book-mode
// values take precedence the same way a bound flag's explicit value would.
func MergeBookConfig(v *viper.Viper, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var table map[string]interface{}
	if err := json.Unmarshal(raw, &table); err != nil {
		return fmt.Errorf("cliconfig: decoding book.toml preprocessor table: %w", err)
	}
	return v.MergeConfigMap(table)
}

// Unmarshal decodes v's merged configuration into out, which must carry
// `mapstructure` tags naming the spec §6 option keys.
func Unmarshal(v *viper.Viper, out interface{}) error {
	return v.Unmarshal(out)
}

// BoolFromTable reports the named key's value within the book-config
// table raw, and whether it was present at all — used for options like
// fail-on-warnings whose unset state must be told apart from an explicit
// false (§6).
func BoolFromTable(raw json.RawMessage, key string) *bool {
	if len(raw) == 0 {
		return nil
	}
	var table map[string]interface{}
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil
	}
	v, ok := table[key]
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

// PreprocessorTable extracts the named preprocessor's own configuration
// table out of the book.toml-derived Context.Config object, the shape
// mdbook hands a preprocessor: `{"preprocessor": {"<name>": {...}}}`.
func PreprocessorTable(config json.RawMessage, name string) (json.RawMessage, error) {
	if len(config) == 0 {
		return nil, nil
	}
	var wrapper struct {
		Preprocessor map[string]json.RawMessage `json:"preprocessor"`
	}
	if err := json.Unmarshal(config, &wrapper); err != nil {
		return nil, fmt.Errorf("cliconfig: decoding book config: %w", err)
	}
	return wrapper.Preprocessor[name], nil
}
