package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort                 = "8080"
	defaultPredictionTimeout    = 10 * time.Second
	defaultPredictionMaxRetry   = 20 * time.Second
	defaultGeminiAPIURL         = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	defaultGeminiTemperature    = 0.7
	defaultGeminiMaxTokens      = 1024
	defaultGeminiTimeout        = 25 * time.Second
	defaultMockTowerCount       = 20
	defaultMockSeed       int64 = 42
	defaultForecastDays         = 3
)

type Config struct {
	Port string

	PredictionAPIURL   string
	PredictionTimeout  time.Duration
	PredictionMaxRetry time.Duration
	PredictionBatch    bool
	UseMockPredictions bool

	GeminiAPIURL          string
	GeminiAPIKey          string
	GeminiTemperature     float64
	GeminiMaxOutputTokens int
	GeminiTimeout         time.Duration
	UseMockLLM            bool

	MockTowerCount int
	MockSeed       int64
	TowerIDs       []string
	ForecastDays   int
	DatasetPath    string
}

// Load reads the service configuration from the environment, falling back
// to defaults for unset keys.
func Load() (Config, error) {
	cfg := Config{
		Port:                  defaultPort,
		PredictionTimeout:     defaultPredictionTimeout,
		PredictionMaxRetry:    defaultPredictionMaxRetry,
		GeminiAPIURL:          defaultGeminiAPIURL,
		GeminiTemperature:     defaultGeminiTemperature,
		GeminiMaxOutputTokens: defaultGeminiMaxTokens,
		GeminiTimeout:         defaultGeminiTimeout,
		MockTowerCount:        defaultMockTowerCount,
		MockSeed:              defaultMockSeed,
		ForecastDays:          defaultForecastDays,
	}

	if v, ok := envValue("PORT"); ok {
		cfg.Port = v
	}
	cfg.PredictionAPIURL, _ = envValue("PREDICTION_API_URL")
	cfg.GeminiAPIKey, _ = envValue("GEMINI_API_KEY")
	cfg.DatasetPath, _ = envValue("DATASET_PATH")
	if v, ok := envValue("GEMINI_API_URL"); ok {
		cfg.GeminiAPIURL = v
	}

	var err error
	if cfg.PredictionTimeout, err = durationEnv("PREDICTION_TIMEOUT", cfg.PredictionTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PredictionMaxRetry, err = durationEnv("PREDICTION_MAX_RETRY", cfg.PredictionMaxRetry); err != nil {
		return Config{}, err
	}
	if cfg.GeminiTimeout, err = durationEnv("GEMINI_TIMEOUT", cfg.GeminiTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PredictionBatch, err = boolEnv("PREDICTION_BATCH", false); err != nil {
		return Config{}, err
	}
	if cfg.UseMockPredictions, err = boolEnv("USE_MOCK_PREDICTIONS", false); err != nil {
		return Config{}, err
	}
	if cfg.UseMockLLM, err = boolEnv("USE_MOCK_LLM", false); err != nil {
		return Config{}, err
	}
	if cfg.MockTowerCount, err = positiveIntEnv("MOCK_TOWER_COUNT", cfg.MockTowerCount); err != nil {
		return Config{}, err
	}
	if cfg.ForecastDays, err = positiveIntEnv("FORECAST_DAYS", cfg.ForecastDays); err != nil {
		return Config{}, err
	}
	if cfg.GeminiMaxOutputTokens, err = positiveIntEnv("GEMINI_MAX_OUTPUT_TOKENS", cfg.GeminiMaxOutputTokens); err != nil {
		return Config{}, err
	}

	if v, ok := envValue("MOCK_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MOCK_SEED: %w", err)
		}
		cfg.MockSeed = seed
	}

	if v, ok := envValue("GEMINI_TEMPERATURE"); ok {
		temp, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GEMINI_TEMPERATURE: %w", err)
		}
		if temp < 0 || temp > 2 {
			return Config{}, fmt.Errorf("invalid GEMINI_TEMPERATURE: must be within [0, 2]")
		}
		cfg.GeminiTemperature = temp
	}

	if v, ok := envValue("TOWER_IDS"); ok {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.TowerIDs = append(cfg.TowerIDs, id)
			}
		}
	}

	if !cfg.UseMockPredictions && cfg.PredictionAPIURL == "" && cfg.DatasetPath == "" {
		// nothing else to read predictions from
		cfg.UseMockPredictions = true
	}

	return cfg, nil
}

func envValue(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := envValue(key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be > 0", key)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v, ok := envValue(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func positiveIntEnv(key string, def int) (int, error) {
	v, ok := envValue(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be > 0", key)
	}
	return n, nil
}
