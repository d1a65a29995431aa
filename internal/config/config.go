// Package config loads the server's TOML configuration file, following
// the same decode-with-strict-field-checking idiom the upstream
// gtos/geth command line tooling uses for its own config.toml.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/naoina/toml"
)

// Duration wraps time.Duration so it can be written in config.toml as
// a human string ("5s", "500ms") instead of raw nanoseconds.
// naoina/toml only maps TOML strings onto encoding.TextUnmarshaler
// targets, so a bare time.Duration field (an int64 kind) cannot take a
// quoted duration literal directly.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Server holds everything needed to start the dchaind server.
type Server struct {
	Bind           string   `toml:"bind"`
	ChainDir       string   `toml:"chain_dir"`
	UsersFile      string   `toml:"users_file"`
	RewardsFile    string   `toml:"rewards_file"`
	Difficulty     int      `toml:"difficulty"`
	NonceRangeSize uint64   `toml:"nonce_range_size"`
	AuthCacheTTL   Duration `toml:"auth_cache_ttl"`
	LogLevel       string   `toml:"log_level"`
}

// Config is the top-level config.toml document.
type Config struct {
	Server Server `toml:"server"`
}

// Defaults returns a Config populated with the same defaults described
// in the server's sample config.toml.
func Defaults() Config {
	return Config{Server: Server{
		Bind:           "127.0.0.1:65432",
		ChainDir:       "./chaindata",
		UsersFile:      "./users.json",
		RewardsFile:    "./rewards.json",
		Difficulty:     4,
		NonceRangeSize: 200_000,
		AuthCacheTTL:   Duration(5 * time.Second),
		LogLevel:       "info",
	}}
}

var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicodeIsUpper(rt.Name()) {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Load reads and decodes the TOML file at path over a copy of Defaults().
func Load(path string) (Config, error) {
	cfg := Defaults()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = fmt.Errorf("%s, %v", path, err)
	}
	return cfg, err
}

func unicodeIsUpper(s string) bool {
	return len(s) > 0 && strings.ToUpper(s[:1]) == s[:1]
}
