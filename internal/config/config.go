package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	LogLevel  string
	LogFormat string

	StoreBackend string
	StoragePath  string
	GCSBucket    string
	GCSPrefix    string
	StagingDir   string

	RemoteBucket string
	RemotePrefix string

	AnalysisTextURL      string
	AnalysisMetaURL      string
	AnalysisTimeout      time.Duration
	AnalysisRPS          float64
	AnalysisReadyTimeout time.Duration

	GhostscriptBin string
	RenderDPI      int
	RenderDevice   string
	RenderMaxPages int
	RenderThreads  int

	TesseractBin   string
	TesseractLang  string
	TessdataDir    string
	OCRConcurrency int

	StructuralProbe string
	PDFFontsBin     string

	WordThreshold  int
	MaxConcurrency int
	SkipConverted  bool

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	APIPort           string
	MetricsPort       string
	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIQueueWait      time.Duration

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool
	BreakerOpenTimeout  time.Duration
}

func Load() Config {
	return Config{
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "json"),

		StoreBackend: mustEnv("STORE_BACKEND", "local"),
		StoragePath:  mustEnv("STORAGE_PATH", "./data"),
		GCSBucket:    mustEnv("GCS_BUCKET", ""),
		GCSPrefix:    mustEnv("GCS_PREFIX", ""),
		StagingDir:   mustEnv("STAGING_DIR", ""),

		RemoteBucket: mustEnv("REMOTE_BUCKET", ""),
		RemotePrefix: mustEnv("REMOTE_PREFIX", ""),

		AnalysisTextURL:      mustEnv("ANALYSIS_TEXT_URL", "http://localhost:9998"),
		AnalysisMetaURL:      mustEnv("ANALYSIS_META_URL", "http://localhost:9998"),
		AnalysisTimeout:      mustEnvDuration("ANALYSIS_TIMEOUT", 120*time.Second),
		AnalysisRPS:          mustEnvFloat("ANALYSIS_RPS", 0),
		AnalysisReadyTimeout: mustEnvDuration("ANALYSIS_READY_TIMEOUT", 30*time.Second),

		GhostscriptBin: mustEnv("GHOSTSCRIPT_BIN", "gs"),
		RenderDPI:      mustEnvInt("RENDER_DPI", 300),
		RenderDevice:   mustEnv("RENDER_DEVICE", "pnggray"),
		RenderMaxPages: mustEnvInt("RENDER_MAX_PAGES", 0),
		RenderThreads:  mustEnvInt("RENDER_THREADS", 8),

		TesseractBin:   mustEnv("TESSERACT_BIN", "tesseract"),
		TesseractLang:  mustEnv("TESSERACT_LANG", "eng"),
		TessdataDir:    mustEnv("TESSDATA_DIR", ""),
		OCRConcurrency: mustEnvInt("OCR_CONCURRENCY", 4),

		StructuralProbe: mustEnv("STRUCTURAL_PROBE", "native"),
		PDFFontsBin:     mustEnv("PDFFONTS_BIN", "pdffonts"),

		WordThreshold:  mustEnvInt("WORD_THRESHOLD", 10),
		MaxConcurrency: mustEnvInt("MAX_CONCURRENCY", 4),
		SkipConverted:  mustEnvBool("SKIP_CONVERTED", true),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "documents.extracted"),

		APIPort:           mustEnv("API_PORT", "8080"),
		MetricsPort:       mustEnv("METRICS_PORT", "9090"),
		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 8),
		APIQueueWait:      mustEnvDuration("API_QUEUE_WAIT", 2*time.Second),

		RetryMaxAttempts:    mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: mustEnvDuration("RETRY_INITIAL_BACKOFF", 100*time.Millisecond),
		RetryMaxBackoff:     mustEnvDuration("RETRY_MAX_BACKOFF", 400*time.Millisecond),
		BreakerEnabled:      mustEnvBool("BREAKER_ENABLED", true),
		BreakerOpenTimeout:  mustEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
