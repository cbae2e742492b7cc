package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "ARTICLE_RELAY_CONFIG"
	environmentEnv     = "ENV"
	logLevelEnv        = "LOG_LEVEL"
	logFormatEnv       = "LOG_FORMAT"
	channelIDEnv       = "CHANNEL_ID"
	httpAddrEnv        = "HTTP_ADDR"
	storageDriverEnv   = "STORAGE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	airtableAPIKeyEnv  = "AIRTABLE_API_KEY"
	airtableBaseIDEnv  = "AIRTABLE_BASE_ID"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	cohereAPIKeyEnv    = "COHERE_API_KEY"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	xClientIDEnv       = "X_CLIENT_ID"
	xClientSecretEnv   = "X_CLIENT_SECRET"
	xAccessTokenEnv    = "X_ACCESS_TOKEN"
	xRefreshTokenEnv   = "X_REFRESH_TOKEN"
	redisAddrEnv       = "REDIS_ADDR"
	redisPassEnv       = "REDIS_PASS"
	s3BucketEnv        = "S3_BUCKET"
	s3RegionEnv        = "S3_REGION"
	s3ProfileEnv       = "S3_PROFILE"
	s3PathStyleEnv     = "S3_USE_PATH_STYLE"
	s3PrefixEnv        = "S3_PREFIX"
	kafkaBrokersEnv    = "KAFKA_BROKERS"
	kafkaTopicEnv      = "KAFKA_TOPIC"
	feedURLsEnv        = "FEED_URLS"
	feedScheduleEnv    = "FEED_SCHEDULE"
)

// Storage drivers.
const (
	DriverAirtable = "airtable"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Text generation providers.
const (
	ProviderOpenAI           = "openai"
	ProviderOpenAIAssistants = "openai-assistants"
	ProviderAnthropic        = "anthropic"
	ProviderCohere           = "cohere"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Channel       ChannelConfig      `yaml:"channel"`
	Server        ServerConfig       `yaml:"server"`
	Storage       StorageConfig      `yaml:"storage"`
	Providers     ProviderConfig     `yaml:"providers"`
	Extraction    ExtractionConfig   `yaml:"extraction"`
	Structurer    StructurerConfig   `yaml:"structurer"`
	Image         ImageConfig        `yaml:"image"`
	Platforms     []PlatformConfig   `yaml:"platforms"`
	Publishers    PublisherConfig    `yaml:"publishers"`
	Notifications NotificationConfig `yaml:"notifications"`
	Media         MediaConfig        `yaml:"media"`
	Cache         CacheConfig        `yaml:"cache"`
	Kafka         KafkaConfig        `yaml:"kafka"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Feeds         FeedConfig         `yaml:"feeds"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChannelConfig names the default channel used by CLI-triggered runs.
type ChannelConfig struct {
	DefaultID string `yaml:"defaultId"`
}

// ServerConfig describes the HTTP trigger surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	DSN      string         `yaml:"dsn"`
	Airtable AirtableConfig `yaml:"airtable"`
}

// AirtableConfig mirrors the base layout used by the relay.
type AirtableConfig struct {
	Endpoint     string `yaml:"endpoint"`
	APIKey       string `yaml:"apiKey"`
	BaseID       string `yaml:"baseId"`
	ArticleTable string `yaml:"articleTable"`
	ContentTable string `yaml:"contentTable"`
	SortField    string `yaml:"sortField"`
}

// ProviderConfig groups API credentials for model vendors.
type ProviderConfig struct {
	OpenAI    OpenAIConfig `yaml:"openai"`
	Anthropic APIKeyConfig `yaml:"anthropic"`
	Cohere    APIKeyConfig `yaml:"cohere"`
}

// OpenAIConfig defines how to contact the OpenAI API.
type OpenAIConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	APIKey       string        `yaml:"apiKey"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"pollInterval"`
	MaxWait      time.Duration `yaml:"maxWait"`
}

// APIKeyConfig is used by vendors that only need a key.
type APIKeyConfig struct {
	APIKey string `yaml:"apiKey"`
}

// ExtractionConfig tunes the page fetcher.
type ExtractionConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"userAgent"`
	Strategies []string      `yaml:"strategies"`
}

// StructurerConfig drives the article structuring call.
type StructurerConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"maxTokens"`
	ContentMaxTokens int     `yaml:"contentMaxTokens"`
	InstructionsPath string  `yaml:"instructionsPath"`
	SchemaPath       string  `yaml:"schemaPath"`
}

// ImageConfig drives illustration generation.
type ImageConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Model            string `yaml:"model"`
	Size             string `yaml:"size"`
	Quality          string `yaml:"quality"`
	Instructions     string `yaml:"instructions"`
	InstructionsPath string `yaml:"instructionsPath"`
}

// PlatformConfig is one publishing target and its copy settings.
type PlatformConfig struct {
	Name             string  `yaml:"name"`
	Version          string  `yaml:"version"`
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"topP"`
	MaxTokens        int     `yaml:"maxTokens"`
	Instructions     string  `yaml:"instructions"`
	InstructionsPath string  `yaml:"instructionsPath"`
	RequiresImage    bool    `yaml:"requiresImage"`
	Publisher        string  `yaml:"publisher"`
}

// PublisherConfig holds social network credentials.
type PublisherConfig struct {
	X XConfig `yaml:"x"`
}

// XConfig carries OAuth2 user-context credentials for X.
type XConfig struct {
	BaseURL      string `yaml:"baseUrl"`
	TokenURL     string `yaml:"tokenUrl"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	AccessToken  string `yaml:"accessToken"`
	RefreshToken string `yaml:"refreshToken"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// MediaConfig configures the optional S3 image mirror.
type MediaConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config contains bucket and addressing options.
type S3Config struct {
	Bucket        string        `yaml:"bucket"`
	Region        string        `yaml:"region"`
	Profile       string        `yaml:"profile"`
	Prefix        string        `yaml:"prefix"`
	UsePathStyle  bool          `yaml:"usePathStyle"`
	PublicBaseURL string        `yaml:"publicBaseUrl"`
	PresignTTL    time.Duration `yaml:"presignTtl"`
}

// CacheConfig configures Redis for session caching and publish locks.
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig is a single-node Redis connection.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	KeyPrefix  string        `yaml:"keyPrefix"`
	SessionTTL time.Duration `yaml:"sessionTtl"`
}

// KafkaConfig configures the optional trigger consumer.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupId"`
}

// PipelineConfig tunes the orchestrator.
type PipelineConfig struct {
	ParallelPlatforms bool          `yaml:"parallelPlatforms"`
	PublishLockTTL    time.Duration `yaml:"publishLockTtl"`
}

// FeedConfig lists feeds polled while serving. Schedule, a cron
// expression, takes precedence over Interval when set.
type FeedConfig struct {
	URLs     []string      `yaml:"urls"`
	Interval time.Duration `yaml:"interval"`
	Schedule string        `yaml:"schedule"`
	Count    int           `yaml:"count"`
	Channel  string        `yaml:"channel"`
}

// LoadDotEnv reads .env unless running in the cloud environment.
func LoadDotEnv() {
	if os.Getenv(environmentEnv) == "cloud" {
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	LoadDotEnv()
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg, err := parse(raw, cfg)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyPlatformDefaults()

	return cfg
}

// parse decodes raw YAML on top of base; keys absent from the file keep base values.
func parse(raw []byte, base Config) (Config, error) {
	cfg := base
	cfg.Platforms = nil
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = base.Platforms
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.Format, logFormatEnv)
	setString(&c.Channel.DefaultID, channelIDEnv)
	setString(&c.Server.Addr, httpAddrEnv)

	setString(&c.Storage.Driver, storageDriverEnv)
	setString(&c.Storage.DSN, databaseDSNEnv)
	setString(&c.Storage.Airtable.APIKey, airtableAPIKeyEnv)
	setString(&c.Storage.Airtable.BaseID, airtableBaseIDEnv)

	setString(&c.Providers.OpenAI.APIKey, openAIAPIKeyEnv)
	setString(&c.Providers.Anthropic.APIKey, anthropicAPIKeyEnv)
	setString(&c.Providers.Cohere.APIKey, cohereAPIKeyEnv)

	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)

	setString(&c.Publishers.X.ClientID, xClientIDEnv)
	setString(&c.Publishers.X.ClientSecret, xClientSecretEnv)
	setString(&c.Publishers.X.AccessToken, xAccessTokenEnv)
	setString(&c.Publishers.X.RefreshToken, xRefreshTokenEnv)

	setString(&c.Cache.Redis.Addr, redisAddrEnv)
	setString(&c.Cache.Redis.Password, redisPassEnv)

	setString(&c.Media.S3.Bucket, s3BucketEnv)
	setString(&c.Media.S3.Region, s3RegionEnv)
	setString(&c.Media.S3.Profile, s3ProfileEnv)
	setString(&c.Media.S3.Prefix, s3PrefixEnv)
	if v := strings.TrimSpace(os.Getenv(s3PathStyleEnv)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Media.S3.UsePathStyle = b
		}
	}

	if v := strings.TrimSpace(os.Getenv(kafkaBrokersEnv)); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	setString(&c.Kafka.Topic, kafkaTopicEnv)

	if v := strings.TrimSpace(os.Getenv(feedURLsEnv)); v != "" {
		c.Feeds.URLs = splitList(v)
	}
	setString(&c.Feeds.Schedule, feedScheduleEnv)
}

func (c *Config) applyPlatformDefaults() {
	for i := range c.Platforms {
		p := &c.Platforms[i]
		if p.Version == "" {
			p.Version = "1"
		}
		if p.Provider == "" {
			p.Provider = ProviderOpenAIAssistants
		}
		if p.Model == "" {
			p.Model = "gpt-4o"
		}
		if p.Publisher == "" {
			p.Publisher = strings.ToLower(p.Name)
		}
	}
}

// Validate reports settings that are required by the selected drivers.
func (c Config) Validate() error {
	var errs []error
	missing := func(name string) {
		errs = append(errs, fmt.Errorf("%s is not set", name))
	}

	switch c.Storage.Driver {
	case DriverAirtable:
		if c.Storage.Airtable.APIKey == "" {
			missing(airtableAPIKeyEnv)
		}
		if c.Storage.Airtable.BaseID == "" {
			missing(airtableBaseIDEnv)
		}
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			missing(databaseDSNEnv)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	providers := map[string]bool{c.Structurer.Provider: true}
	for _, p := range c.Platforms {
		providers[p.Provider] = true
	}
	if c.Image.Enabled {
		providers[ProviderOpenAI] = true
	}
	for provider := range providers {
		switch provider {
		case ProviderOpenAI, ProviderOpenAIAssistants:
			if c.Providers.OpenAI.APIKey == "" {
				missing(openAIAPIKeyEnv)
			}
		case ProviderAnthropic:
			if c.Providers.Anthropic.APIKey == "" {
				missing(anthropicAPIKeyEnv)
			}
		case ProviderCohere:
			if c.Providers.Cohere.APIKey == "" {
				missing(cohereAPIKeyEnv)
			}
		default:
			errs = append(errs, fmt.Errorf("unknown text provider %q", provider))
		}
	}

	if len(c.Platforms) == 0 {
		errs = append(errs, errors.New("no platforms configured"))
	}
	seen := map[string]bool{}
	for _, p := range c.Platforms {
		if p.Name == "" {
			errs = append(errs, errors.New("platform without name"))
			continue
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("platform %s configured twice", p.Name))
		}
		seen[key] = true
	}

	return errors.Join(dedupe(errs)...)
}

func dedupe(errs []error) []error {
	seen := map[string]bool{}
	out := errs[:0]
	for _, err := range errs {
		if seen[err.Error()] {
			continue
		}
		seen[err.Error()] = true
		out = append(out, err)
	}
	return out
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Storage: StorageConfig{
			Driver: DriverAirtable,
			Airtable: AirtableConfig{
				Endpoint:     "https://api.airtable.com/v0",
				ArticleTable: "Articles",
				ContentTable: "Post Content",
				SortField:    "datetime",
			},
		},
		Providers: ProviderConfig{
			OpenAI: OpenAIConfig{
				BaseURL:      "https://api.openai.com/v1",
				Timeout:      60 * time.Second,
				PollInterval: 2 * time.Second,
				MaxWait:      2 * time.Minute,
			},
		},
		Extraction: ExtractionConfig{
			Timeout:    30 * time.Second,
			UserAgent:  "ArticleRelay/1.0",
			Strategies: []string{"readability", "paragraphs"},
		},
		Structurer: StructurerConfig{
			Provider:         ProviderOpenAI,
			Model:            "gpt-4o-mini",
			Temperature:      0.2,
			MaxTokens:        4096,
			ContentMaxTokens: 12000,
		},
		Image: ImageConfig{
			Enabled: true,
			Model:   "dall-e-3",
			Size:    "1024x1024",
			Quality: "standard",
		},
		Platforms: []PlatformConfig{
			{
				Name:        "X",
				Version:     "1",
				Provider:    ProviderOpenAIAssistants,
				Model:       "gpt-4o",
				Temperature: 1.0,
				TopP:        1.0,
			},
		},
		Publishers: PublisherConfig{
			X: XConfig{
				BaseURL:  "https://api.x.com",
				TokenURL: "https://api.x.com/2/oauth2/token",
			},
		},
		Media: MediaConfig{S3: S3Config{Prefix: "images/", PresignTTL: 7 * 24 * time.Hour}},
		Cache: CacheConfig{Redis: RedisConfig{KeyPrefix: "articlerelay:", SessionTTL: 30 * 24 * time.Hour}},
		Kafka: KafkaConfig{Topic: "articlerelay.commands", GroupID: "articlerelay"},
		Pipeline: PipelineConfig{
			PublishLockTTL: 2 * time.Minute,
		},
		Feeds: FeedConfig{Interval: 30 * time.Minute, Count: 5},
	}
}
