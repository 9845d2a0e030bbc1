package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GGUFD_"

// ApplyEnv loads envFile (if it exists) into the process environment without
// overriding variables already set, then applies GGUFD_* variables onto cfg.
// A missing envFile is not an error.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	u32 := func(key string, dst *uint32) {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = uint32(n)
		}
	}
	i64 := func(key string, dst *int64) {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = SplitCSV(v)
		}
	}

	str("ADDR", &cfg.Addr)
	str("MODELS_DIR", &cfg.ModelsDir)
	str("RUNTIME", &cfg.Runtime)
	str("MODEL", &cfg.Model)
	u32("MODEL_GPU_LAYERS", &cfg.ModelGPULayers)
	u32("CONTEXT_SIZE", &cfg.ContextSize)
	u32("MAX_TOKENS", &cfg.MaxTokens)
	u32("BATCH_WIDTH", &cfg.BatchWidth)
	if v, ok := lookup("THREADS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTHREADS: %w", EnvPrefix, err))
		} else {
			cfg.Threads = n
		}
	}
	if v, ok := lookup("TOTAL_VRAM_GB"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTOTAL_VRAM_GB: %w", EnvPrefix, err))
		} else {
			cfg.TotalVRAMGB = f
		}
	}
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FILE", &cfg.LogFile)
	boolean("LOG_CONSOLE", &cfg.LogConsole)
	i64("MAX_BODY_BYTES", &cfg.MaxBodyBytes)
	i64("GENERATE_TIMEOUT_SECONDS", &cfg.GenerateTimeoutSeconds)
	boolean("CORS_ENABLED", &cfg.CORSEnabled)
	list("CORS_ALLOWED_ORIGINS", &cfg.CORSAllowedOrigins)
	list("CORS_ALLOWED_METHODS", &cfg.CORSAllowedMethods)
	list("CORS_ALLOWED_HEADERS", &cfg.CORSAllowedHeaders)
	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
