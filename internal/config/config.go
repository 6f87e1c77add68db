package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Luno     Luno     `mapstructure:"luno"`
	Backtest Backtest `mapstructure:"backtest"`
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Luno holds the configuration for the Luno API.
type Luno struct {
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	BaseURL        string  `mapstructure:"base_url"`
	Pair           string  `mapstructure:"pair"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Backtest holds the configuration for data collection, simulation and optimization.
type Backtest struct {
	InitialCapital    float64              `mapstructure:"initial_capital"`
	IntervalSeconds   int                  `mapstructure:"interval_seconds"`
	LookbackHours     int                  `mapstructure:"lookback_hours"`
	DataFile          string               `mapstructure:"data_file"`
	DataSource        string               `mapstructure:"data_source"` // exchange or csv
	StrategyFile      string               `mapstructure:"strategy_file"`
	ReportFile        string               `mapstructure:"report_file"`
	DrawdownTolerance float64              `mapstructure:"drawdown_tolerance"`
	Workers           int                  `mapstructure:"workers"`
	TimeoutSeconds    int                  `mapstructure:"timeout_seconds"`
	SampleHours       int                  `mapstructure:"sample_hours"`
	SampleSeed        int64                `mapstructure:"sample_seed"`
	DefaultParameters map[string]float64   `mapstructure:"default_parameters"`
	Grid              map[string][]float64 `mapstructure:"grid"`
}

// Trading holds the configuration for the paper-trading loop.
type Trading struct {
	Name           string  `mapstructure:"name"`
	Strategy       string  `mapstructure:"strategy"`
	TickInterval   int     `mapstructure:"tick_interval"`
	HistoryMinutes int     `mapstructure:"history_minutes"`
	InitialCapital float64 `mapstructure:"initial_capital"`
	ApiPort        int     `mapstructure:"api_port"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"` // optional, in addition to stderr
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error: defaults and the environment still apply.
func LoadConfig(path string) (config Config, err error) {
	// Credentials are usually kept in a .env next to the config directory.
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	// Registered so that LUNO_APIKEY and LUNO_SECRETKEY reach Unmarshal.
	v.SetDefault("luno.apiKey", "")
	v.SetDefault("luno.secretKey", "")
	v.SetDefault("luno.base_url", "https://api.luno.com")
	v.SetDefault("luno.pair", "XBTMYR")
	v.SetDefault("luno.rate_limit", 5) // requests per second
	v.SetDefault("luno.rate_limit_burst", 2)

	v.SetDefault("backtest.initial_capital", 1000)
	v.SetDefault("backtest.interval_seconds", 60)
	v.SetDefault("backtest.lookback_hours", 1)
	v.SetDefault("backtest.data_file", "historical_data_XBTMYR.csv")
	v.SetDefault("backtest.data_source", "exchange")
	v.SetDefault("backtest.strategy_file", "optimal_strategy.json")
	v.SetDefault("backtest.report_file", "backtest_results.txt")
	v.SetDefault("backtest.drawdown_tolerance", 1.2)
	v.SetDefault("backtest.workers", 0) // 0 means GOMAXPROCS
	v.SetDefault("backtest.timeout_seconds", 0)
	v.SetDefault("backtest.sample_hours", 24)
	v.SetDefault("backtest.sample_seed", 0)
	v.SetDefault("backtest.default_parameters", map[string]any{
		"stop_loss":   0.02,
		"take_profit": 0.03,
		"ma_short":    20,
		"ma_long":     50,
	})
	v.SetDefault("backtest.grid", map[string]any{
		"ma_short":    []float64{10, 15, 20, 25, 30},
		"ma_long":     []float64{40, 45, 50, 55, 60},
		"stop_loss":   []float64{0.01, 0.02, 0.03},
		"take_profit": []float64{0.02, 0.03, 0.04},
	})

	v.SetDefault("trading.name", "luno-paper-trader")
	v.SetDefault("trading.strategy", "optimized")
	v.SetDefault("trading.tick_interval", 10)
	v.SetDefault("trading.history_minutes", 120)
	v.SetDefault("trading.initial_capital", 1000)
	v.SetDefault("trading.api_port", 0) // 0 disables the status API

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "luno_bot.db")
}
