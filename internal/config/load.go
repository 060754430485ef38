package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/roelfdiedericks/nexusrelay/internal/logging"
	"github.com/roelfdiedericks/nexusrelay/internal/paths"
)

// DefaultEnvFile is the dotenv file looked up in the working directory
const DefaultEnvFile = ".env"

// LoadOptions controls where Load looks for its inputs.
type LoadOptions struct {
	Path    string                      // TOML file; empty uses paths.ConfigPath
	EnvFile string                      // dotenv file; empty tries ./.env
	Lookup  func(string) (string, bool) // environment lookup, os.LookupEnv when nil
}

// Load builds the configuration: defaults, then the TOML file merged over
// them, then the .env file (never overriding real environment variables),
// then environment variables.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Defaults()

	if opts.Path != "" {
		path, err := paths.ExpandTilde(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := mergeFile(cfg, path); err != nil {
			return nil, err
		}
	} else {
		path, err := paths.ConfigPath()
		if err != nil {
			return nil, err
		}
		if path == "" {
			logging.L_debug("config: no config file")
		} else if err := mergeFile(cfg, path); err != nil {
			return nil, err
		}
	}

	envFile, explicitEnv := opts.EnvFile, opts.EnvFile != ""
	if !explicitEnv {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicitEnv || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		logging.L_debug("config: env file loaded", "path", envFile)
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	applyEnv(cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// mergeFile decodes a TOML file and merges its non-zero values over cfg.
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	var fileCfg Config
	md, err := toml.DecodeFile(path, &fileCfg)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		logging.L_warn("config: unknown keys ignored", "path", path, "keys", strings.Join(keys, ","))
	}
	if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge %s: %w", path, err)
	}
	logging.L_info("config: loaded", "path", path)
	return nil
}

// applyEnv overlays the environment variables understood by the relay.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			*dst = parseFlag(v)
		}
	}

	flag("MOCK_MODE", &cfg.Relay.MockMode)
	flag("USE_HF", &cfg.Relay.UseAlternate)
	str("HF_MODEL", &cfg.Cascade.PreferredModel)
	str("HUGGINGFACE_TOKEN", &cfg.Cascade.Token)
	str("API_TOKEN", &cfg.Default.APIKey)
	str("RELAY_LANGUAGE", &cfg.Relay.Language)
	str("RELAY_DEFAULT_DRIVER", &cfg.Default.Driver)
	str("LOG_LEVEL", &cfg.Logging.Level)

	var port string
	str("PORT", &port)
	if port != "" {
		cfg.Server.Listen = ":" + strings.TrimPrefix(port, ":")
	}
}

// parseFlag accepts "1" and "true" (any case) as set.
func parseFlag(v string) bool {
	v = strings.TrimSpace(v)
	return v == "1" || strings.EqualFold(v, "true")
}
