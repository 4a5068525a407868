// internal/config/config.go
package config

import (
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Forecast  ForecastConfig
	ColdStart ColdStartConfig
	Cost      CostConfig
	Signals   SignalsConfig
	Artifacts ArtifactsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

// ForecastConfig carries every tuning constant of the forecasting engine.
// All of these were empirically chosen; none are baked into the algorithms.
type ForecastConfig struct {
	HorizonDays        int
	TopNItems          int
	ShrinkFactor       float64
	StockoutBump       float64
	ZScore             float64
	LeadTimeDays       int
	MinHistoryDays     int
	SequenceLength     int
	BaselineWindow     int
	BaselineBufferPct  float64
	MissingLagPolicy   string
	PerishableKeywords []string
}

type ColdStartConfig struct {
	Shrink        float64
	MinActiveDays int
	MaxKeywords   int
	MaxComparable int
}

type CostConfig struct {
	WasteFraction      float64
	WasteMultiplier    float64
	StockoutMultiplier float64
	DefaultUnitPrice   float64
}

type SignalsConfig struct {
	BaseURL        string
	TimeoutSeconds int
	TTLSeconds     int
}

type ArtifactsConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "forecast")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_FORECAST_TTL_SECONDS", 300)

		viper.SetDefault("FORECAST_HORIZON_DAYS", 7)
		viper.SetDefault("FORECAST_TOP_N", 50)
		viper.SetDefault("FORECAST_SHRINK_FACTOR", 0.85)
		viper.SetDefault("FORECAST_STOCKOUT_BUMP", 1.20)
		viper.SetDefault("FORECAST_Z_SCORE", 1.65)
		viper.SetDefault("FORECAST_LEAD_TIME_DAYS", 1)
		viper.SetDefault("FORECAST_MIN_HISTORY_DAYS", 7)
		viper.SetDefault("FORECAST_SEQUENCE_LENGTH", 60)
		viper.SetDefault("FORECAST_BASELINE_WINDOW", 7)
		viper.SetDefault("FORECAST_BASELINE_BUFFER_PCT", 0.0)
		viper.SetDefault("FORECAST_MISSING_LAG_POLICY", "zero_fill")
		viper.SetDefault("FORECAST_PERISHABLE_KEYWORDS",
			"salad,juice,shake,fresh,smoothie,sandwich,bowl,wrap,sushi,bread")

		viper.SetDefault("COLDSTART_SHRINK", 0.7)
		viper.SetDefault("COLDSTART_MIN_ACTIVE_DAYS", 5)
		viper.SetDefault("COLDSTART_MAX_KEYWORDS", 5)
		viper.SetDefault("COLDSTART_MAX_COMPARABLE", 15)

		viper.SetDefault("COST_WASTE_FRACTION", 0.3)
		viper.SetDefault("COST_WASTE_MULTIPLIER", 1.0)
		viper.SetDefault("COST_STOCKOUT_MULTIPLIER", 1.5)
		viper.SetDefault("COST_DEFAULT_UNIT_PRICE", 75.0)

		viper.SetDefault("SIGNALS_BASE_URL", "")
		viper.SetDefault("SIGNALS_TIMEOUT_SECONDS", 10)
		viper.SetDefault("SIGNALS_TTL_SECONDS", 3600)

		viper.SetDefault("ARTIFACTS_ENABLED", false)
		viper.SetDefault("ARTIFACTS_ENDPOINT", "")
		viper.SetDefault("ARTIFACTS_ACCESS_KEY", "")
		viper.SetDefault("ARTIFACTS_SECRET_KEY", "")
		viper.SetDefault("ARTIFACTS_BUCKET", "forecast-models")
		viper.SetDefault("ARTIFACTS_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				ForecastTTLSeconds: viper.GetInt("CACHE_FORECAST_TTL_SECONDS"),
			},
			Forecast: ForecastConfig{
				HorizonDays:        viper.GetInt("FORECAST_HORIZON_DAYS"),
				TopNItems:          viper.GetInt("FORECAST_TOP_N"),
				ShrinkFactor:       viper.GetFloat64("FORECAST_SHRINK_FACTOR"),
				StockoutBump:       viper.GetFloat64("FORECAST_STOCKOUT_BUMP"),
				ZScore:             viper.GetFloat64("FORECAST_Z_SCORE"),
				LeadTimeDays:       viper.GetInt("FORECAST_LEAD_TIME_DAYS"),
				MinHistoryDays:     viper.GetInt("FORECAST_MIN_HISTORY_DAYS"),
				SequenceLength:     viper.GetInt("FORECAST_SEQUENCE_LENGTH"),
				BaselineWindow:     viper.GetInt("FORECAST_BASELINE_WINDOW"),
				BaselineBufferPct:  viper.GetFloat64("FORECAST_BASELINE_BUFFER_PCT"),
				MissingLagPolicy:   viper.GetString("FORECAST_MISSING_LAG_POLICY"),
				PerishableKeywords: splitCSV(viper.GetString("FORECAST_PERISHABLE_KEYWORDS")),
			},
			ColdStart: ColdStartConfig{
				Shrink:        viper.GetFloat64("COLDSTART_SHRINK"),
				MinActiveDays: viper.GetInt("COLDSTART_MIN_ACTIVE_DAYS"),
				MaxKeywords:   viper.GetInt("COLDSTART_MAX_KEYWORDS"),
				MaxComparable: viper.GetInt("COLDSTART_MAX_COMPARABLE"),
			},
			Cost: CostConfig{
				WasteFraction:      viper.GetFloat64("COST_WASTE_FRACTION"),
				WasteMultiplier:    viper.GetFloat64("COST_WASTE_MULTIPLIER"),
				StockoutMultiplier: viper.GetFloat64("COST_STOCKOUT_MULTIPLIER"),
				DefaultUnitPrice:   viper.GetFloat64("COST_DEFAULT_UNIT_PRICE"),
			},
			Signals: SignalsConfig{
				BaseURL:        viper.GetString("SIGNALS_BASE_URL"),
				TimeoutSeconds: viper.GetInt("SIGNALS_TIMEOUT_SECONDS"),
				TTLSeconds:     viper.GetInt("SIGNALS_TTL_SECONDS"),
			},
			Artifacts: ArtifactsConfig{
				Enabled:   viper.GetBool("ARTIFACTS_ENABLED"),
				Endpoint:  viper.GetString("ARTIFACTS_ENDPOINT"),
				AccessKey: viper.GetString("ARTIFACTS_ACCESS_KEY"),
				SecretKey: viper.GetString("ARTIFACTS_SECRET_KEY"),
				Bucket:    viper.GetString("ARTIFACTS_BUCKET"),
				UseSSL:    viper.GetBool("ARTIFACTS_USE_SSL"),
			},
		}
	})

	return instance
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	return out
}
