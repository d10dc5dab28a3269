package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`

	PublicAPIHost string `mapstructure:"PUBLIC_API_HOST"`
	APIToken      string `mapstructure:"API_TOKEN"`
	APIVersion    string `mapstructure:"API_VERSION"`
	UserAgent     string `mapstructure:"USER_AGENT"`
	HTTPTimeout   int    `mapstructure:"HTTP_TIMEOUT"` // секунды

	ErrorInterval int `mapstructure:"ERROR_INTERVAL"` // секунды
	FeedInterval  int `mapstructure:"FEED_INTERVAL"`  // секунды
	FeedLimit     int `mapstructure:"FEED_LIMIT"`
	Workers       int `mapstructure:"WORKERS"`

	AllowedStatuses []string `mapstructure:"ALLOWED_STATUSES"`
	RewriteStatuses []string `mapstructure:"REWRITE_STATUSES"`
	CopyNameFields  []string `mapstructure:"COPY_NAME_FIELDS"`
	Stage2EUType    string   `mapstructure:"STAGE2_EU_TYPE"`
	Stage2UAType    string   `mapstructure:"STAGE2_UA_TYPE"`
	Stage2Status    string   `mapstructure:"STAGE2_STATUS"`
	WaitingStatus   string   `mapstructure:"WAITING_STATUS"`

	PostgresConn string `mapstructure:"POSTGRES_CONN"`
	MigrationURL string `mapstructure:"MIGRATION_URL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":  ":8080",
	"PUBLIC_API_HOST": "https://lb-api-sandbox-2.prozorro.gov.ua",
	"API_TOKEN":       "competitive_dialogue_data_bridge",
	"API_VERSION":     "2.5",
	"USER_AGENT":      "Databridge competitivedialogue 2.0",
	"HTTP_TIMEOUT":    30,
	"ERROR_INTERVAL":  5,
	"FEED_INTERVAL":   10,
	"FEED_LIMIT":      100,
	"WORKERS":         10,
	"ALLOWED_STATUSES": []string{
		"active.tendering",
		"active.pre-qualification",
		"active.pre-qualification.stand-still",
		"active.auction",
		"active.qualification",
		"active.awarded",
		"complete",
		"cancelled",
		"unsuccessful",
		"draft.stage2",
	},
	"REWRITE_STATUSES": []string{"draft"},
	"COPY_NAME_FIELDS": []string{
		"title_ru",
		"mode",
		"procurementMethodDetails",
		"title_en",
		"description",
		"description_en",
		"description_ru",
		"title",
		"minimalStep",
		"value",
		"procuringEntity",
		"submissionMethodDetails",
	},
	"STAGE2_EU_TYPE": "competitiveDialogueEU.stage2",
	"STAGE2_UA_TYPE": "competitiveDialogueUA.stage2",
	"STAGE2_STATUS":  "draft.stage2",
	"WAITING_STATUS": "active.stage2.waiting",
	"POSTGRES_CONN":  "",
	"MIGRATION_URL":  "file://migrations",
	"LOG_LEVEL":      "info",
	"LOG_FORMAT":     "text",
}

// LoadConfig загружает конфигурацию из файла app.env и переменных окружения.
// Файл необязателен: без него используются окружение и значения по умолчанию.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.PublicAPIHost = strings.TrimRight(cfg.PublicAPIHost, "/")
	cfg.AllowedStatuses = trimList(cfg.AllowedStatuses)
	cfg.RewriteStatuses = trimList(cfg.RewriteStatuses)
	cfg.CopyNameFields = trimList(cfg.CopyNameFields)
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ErrorInterval < 1 {
		return cfg, fmt.Errorf("ERROR_INTERVAL must be at least 1 second, got %d", cfg.ErrorInterval)
	}
	return cfg, nil
}

// BaseURL возвращает адрес API реестра с версией.
func (c Config) BaseURL() string {
	return fmt.Sprintf("%s/api/%s", c.PublicAPIHost, c.APIVersion)
}

// RetryInterval - пауза перед повтором запроса после ошибки.
func (c Config) RetryInterval() time.Duration {
	return time.Duration(c.ErrorInterval) * time.Second
}

// PollInterval - пауза перед повторным чтением пустой ленты.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.FeedInterval) * time.Second
}

// RequestTimeout - таймаут одного HTTP-запроса к реестру.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// trimList убирает пробелы и пустые элементы после разбора списка через запятую.
func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
