package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable keys
const (
	KeyOutputDir          = "OUTPUT_DIR"
	KeyScratchMaxFiles    = "SCRATCH_MAX_FILES"
	KeySummaryConcurrency = "SUMMARY_CONCURRENCY"
	KeySummaryPrompt      = "SUMMARY_PROMPT"
	KeyWhisperURL         = "WHISPER_URL"
	KeyLLMGatewayURL      = "LLM_GATEWAY_URL"
	KeyLLMAPIKey          = "LLM_API_KEY"
	KeyLLMModel           = "LLM_MODEL"
	KeyHTTPTimeoutSec     = "HTTP_TIMEOUT_SEC"
)

// Default values
const (
	DefaultOutputDir          = "output"
	DefaultScratchMaxFiles    = 10
	DefaultSummaryConcurrency = 8
	DefaultLLMModel           = "gpt-4o-mini"
	DefaultHTTPTimeoutSec     = 60

	DefaultSummaryPrompt = "Summarize the following transcript into a short overview of its key points:"
)

// Config holds the application settings resolved from the environment
type Config struct {
	OutputDir          string
	ScratchMaxFiles    int
	SummaryConcurrency int
	SummaryPrompt      string
	WhisperURL         string
	LLMGatewayURL      string
	LLMAPIKey          string
	LLMModel           string
	HTTPTimeout        time.Duration
}

// Load reads .env if present and resolves all settings, falling back to
// defaults for anything unset
func Load() Config {
	_ = godotenv.Load()

	return Config{
		OutputDir:          envOr(KeyOutputDir, DefaultOutputDir),
		ScratchMaxFiles:    envIntOr(KeyScratchMaxFiles, DefaultScratchMaxFiles),
		SummaryConcurrency: envIntOr(KeySummaryConcurrency, DefaultSummaryConcurrency),
		SummaryPrompt:      envOr(KeySummaryPrompt, DefaultSummaryPrompt),
		WhisperURL:         os.Getenv(KeyWhisperURL),
		LLMGatewayURL:      os.Getenv(KeyLLMGatewayURL),
		LLMAPIKey:          os.Getenv(KeyLLMAPIKey),
		LLMModel:           envOr(KeyLLMModel, DefaultLLMModel),
		HTTPTimeout:        time.Duration(envIntOr(KeyHTTPTimeoutSec, DefaultHTTPTimeoutSec)) * time.Second,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
