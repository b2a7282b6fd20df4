// Package config provides the immutable run configuration for the matching
// pipeline. A Config is assembled once (defaults, then an optional JSON file,
// then environment variables, then CLI flags) and passed by value into every
// component; nothing reads ambient state after startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Filter strategies resolved by FilterStrategy.
const (
	FilterStrategyGlossary = "glossary"
	FilterStrategyLabels   = "labels"
	FilterStrategyNone     = "none"
)

// Config collects every pipeline toggle. Numeric bounds are enforced by
// Validate; boolean contradictions are resolved by documented precedence
// instead of failing.
type Config struct {
	// Context extraction
	PreferNameField bool `json:"prefer_name_field"`
	ExtractVolume   bool `json:"extract_volume"`

	// Designation parsing
	UseGlossar   bool `json:"use_glossar"`
	GlossarDebug bool `json:"glossar_debug"`

	// Candidate filtering
	UseGlossarFilter bool     `json:"use_glossar_filter"`
	GlossarFilterMax int      `json:"glossar_filter_max" validate:"min=1"`
	UseFilterLabels  bool     `json:"use_filter_labels"`
	FilterLabels     []string `json:"filter_labels,omitempty"`

	// Matching orchestration
	PromptMaxEpd      int      `json:"prompt_max_epd" validate:"min=1"`
	UseDetailMatching bool     `json:"use_detail_matching"`
	MatchingColumns   []string `json:"matching_columns,omitempty"`
	ParallelWorkers   int      `json:"parallel_workers" validate:"min=1"`
	UseBatchMode      bool     `json:"use_batch_mode"`
	MaxResults        int      `json:"max_results" validate:"min=1"`

	// Confidence validation
	UseConfidenceValidation bool `json:"use_confidence_validation"`
	MinConfidence           int  `json:"min_confidence" validate:"min=0,max=100"`
	MaxConfidenceExcluded   int  `json:"max_confidence_excluded" validate:"min=0,max=100"`

	// Semantic matcher (LLM)
	GeminiAPIKey string `json:"api_key,omitempty"`
	ModelTier    string `json:"model_tier,omitempty" validate:"omitempty,oneof=lite standard advanced"`

	// Catalog service
	CatalogBaseURL  string        `json:"catalog_base_url,omitempty" validate:"omitempty,url"`
	CatalogUsername string        `json:"catalog_username,omitempty"`
	CatalogPassword string        `json:"-"`
	CatalogGroup    string        `json:"catalog_group,omitempty"`
	APITimeout      time.Duration `json:"-"`
	APIMaxRetries   int           `json:"api_max_retries,omitempty" validate:"min=0"`
	CacheDir        string        `json:"cache_dir,omitempty"`

	// Persistence and output
	DatabaseURL string `json:"database_url,omitempty"`
	LogLevel    string `json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	Verbose     bool   `json:"verbose,omitempty"`
}

// Default returns the configuration the original operating environment
// documents as defaults.
func Default() Config {
	return Config{
		PreferNameField:         true,
		ExtractVolume:           true,
		UseGlossar:              true,
		GlossarDebug:            false,
		UseGlossarFilter:        true,
		GlossarFilterMax:        100,
		UseFilterLabels:         false,
		PromptMaxEpd:            200,
		UseDetailMatching:       false,
		MatchingColumns:         []string{"name", "technischeBeschreibung", "anmerkungen"},
		ParallelWorkers:         10,
		UseBatchMode:            true,
		MaxResults:              10,
		UseConfidenceValidation: true,
		MinConfidence:           25,
		MaxConfidenceExcluded:   20,
		ModelTier:               "standard",
		APITimeout:              60 * time.Second,
		APIMaxRetries:           3,
		LogLevel:                "info",
	}
}

// Load reads a JSON config file over the given base configuration.
func Load(path string, base Config) (Config, error) {
	if path == "" {
		return base, fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return base, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := base
	if err := json.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

// FromEnv overlays the documented environment variables onto base. Unset
// variables leave the base value untouched.
func FromEnv(base Config) Config {
	cfg := base

	envBool("EPD_PREFER_NAME_FIELD", &cfg.PreferNameField)
	envBool("EPD_EXTRACT_VOLUME", &cfg.ExtractVolume)
	envBool("EPD_USE_GLOSSAR", &cfg.UseGlossar)
	envBool("EPD_GLOSSAR_DEBUG", &cfg.GlossarDebug)
	envBool("EPD_USE_GLOSSAR_FILTER", &cfg.UseGlossarFilter)
	envInt("EPD_GLOSSAR_FILTER_MAX", &cfg.GlossarFilterMax)
	envBool("EPD_USE_FILTER_LABELS", &cfg.UseFilterLabels)
	envList("EPD_FILTER_LABELS", &cfg.FilterLabels)
	envInt("PROMPT_MAX_EPD", &cfg.PromptMaxEpd)
	envBool("EPD_USE_DETAIL_MATCHING", &cfg.UseDetailMatching)
	envList("EPD_MATCHING_COLUMNS", &cfg.MatchingColumns)
	envInt("EPD_PARALLEL_WORKERS", &cfg.ParallelWorkers)
	envBool("EPD_USE_BATCH_MODE", &cfg.UseBatchMode)
	envInt("EPD_MAX_RESULTS", &cfg.MaxResults)
	envBool("EPD_USE_CONFIDENCE_VALIDATION", &cfg.UseConfidenceValidation)
	envInt("EPD_MIN_CONFIDENCE", &cfg.MinConfidence)
	envInt("EPD_MAX_CONFIDENCE_EXCLUDED", &cfg.MaxConfidenceExcluded)

	envString("GEMINI_API_KEY", &cfg.GeminiAPIKey)
	envString("EPD_MODEL_TIER", &cfg.ModelTier)

	envString("ONLINE_EPD_API_BASE_URL", &cfg.CatalogBaseURL)
	envString("ONLINE_EPD_API_USERNAME", &cfg.CatalogUsername)
	envString("ONLINE_EPD_API_PASSWORD", &cfg.CatalogPassword)
	envString("ONLINE_EPD_GROUP_VALUE", &cfg.CatalogGroup)
	envDuration("EPD_API_TIMEOUT", &cfg.APITimeout)
	envInt("EPD_API_MAX_RETRIES", &cfg.APIMaxRetries)
	envString("EPD_CACHE_DIR", &cfg.CacheDir)

	envString("DATABASE_URL", &cfg.DatabaseURL)
	envString("LOG_LEVEL", &cfg.LogLevel)

	return cfg
}

// Validate checks numeric bounds and value sets. Contradictory boolean
// toggles are not errors; FilterStrategy resolves them.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if ok := asValidationErrors(err, &ve); ok && len(ve) > 0 {
			first := ve[0]
			return fmt.Errorf("config error: field %s failed %q validation", first.Field(), first.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.MaxConfidenceExcluded > c.MinConfidence {
		return fmt.Errorf("config error: max_confidence_excluded (%d) must not exceed min_confidence (%d)",
			c.MaxConfidenceExcluded, c.MinConfidence)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

// FilterStrategy resolves which candidate filter path runs. The glossary
// path wins when both toggles are enabled.
func (c Config) FilterStrategy() string {
	if c.UseGlossarFilter {
		return FilterStrategyGlossary
	}
	if c.UseFilterLabels {
		return FilterStrategyLabels
	}
	return FilterStrategyNone
}

// CatalogConfigured reports whether the catalog client credentials are
// complete.
func (c Config) CatalogConfigured() bool {
	return c.CatalogBaseURL != "" && c.CatalogUsername != "" && c.CatalogPassword != ""
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

// envList splits a comma separated value, trimming blanks.
func envList(key string, dst *[]string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

// envDuration accepts Go duration syntax ("60s") and bare seconds ("60").
func envDuration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		*dst = time.Duration(secs) * time.Second
	}
}
