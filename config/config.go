package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingConfig is returned by LoadConfig when a required secret is absent.
var ErrMissingConfig = errors.New("missing required configuration")

type Config struct {
	Discord    DiscordConfig    `mapstructure:"discord"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Render     RenderConfig     `mapstructure:"render"`
	Mail       MailConfig       `mapstructure:"mail"`
	Event      EventConfig      `mapstructure:"event"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	WorkerPool WorkerPoolConfig `mapstructure:"worker_pool"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

type DiscordConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	MaxRetries     int      `mapstructure:"max_retries"`
	RetryBackoffMs int      `mapstructure:"retry_backoff_ms"`
}

// Enabled reports whether lifecycle events should be published at all.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

type RenderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	GoogleFonts    string `mapstructure:"google_fonts"`
	ViewportWidth  int    `mapstructure:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height"`
}

type MailConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ProjectSecret string `mapstructure:"project_secret"`
}

// EventConfig holds the launch party content shown in DMs, on the ticket
// image and in the mail.
type EventConfig struct {
	Title               string `mapstructure:"title"`
	Headline            string `mapstructure:"headline"`
	Tagline             string `mapstructure:"tagline"`
	Subject             string `mapstructure:"subject"`
	Location            string `mapstructure:"location"`
	MapURL              string `mapstructure:"map_url"`
	Organizer           string `mapstructure:"organizer"`
	WebsiteURL          string `mapstructure:"website_url"`
	DateLabel           string `mapstructure:"date_label"`
	StartsAt            string `mapstructure:"starts_at"`
	EndsAt              string `mapstructure:"ends_at"`
	TimeZone            string `mapstructure:"time_zone"`
	TicketPrefix        string `mapstructure:"ticket_prefix"`
	SenderEmail         string `mapstructure:"sender_email"`
	SenderName          string `mapstructure:"sender_name"`
	TemplateID          string `mapstructure:"template_id"`
	PromoImageURL       string `mapstructure:"promo_image_url"`
	TicketBackgroundURL string `mapstructure:"ticket_background_url"`
	BrandLogoURL        string `mapstructure:"brand_logo_url"`
	PartnerLogoURL      string `mapstructure:"partner_logo_url"`
	FallbackAvatarURL   string `mapstructure:"fallback_avatar_url"`
}

const eventTimeLayout = "2006-01-02T15:04:05"

// Window returns the event start and end in the configured time zone.
func (e EventConfig) Window() (time.Time, time.Time, error) {
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid event time zone %q: %w", e.TimeZone, err)
	}
	start, err := time.ParseInLocation(eventTimeLayout, e.StartsAt, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid event start %q: %w", e.StartsAt, err)
	}
	end, err := time.ParseInLocation(eventTimeLayout, e.EndsAt, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid event end %q: %w", e.EndsAt, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("event end %s is not after start %s", e.EndsAt, e.StartsAt)
	}
	return start, end, nil
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type WorkerPoolConfig struct {
	Size         int           `mapstructure:"size"`
	QueueSize    int           `mapstructure:"queue_size"`
	EventTimeout time.Duration `mapstructure:"event_timeout"`
}

type RateLimitConfig struct {
	SubmissionsPerWindow int           `mapstructure:"submissions_per_window"`
	Window               time.Duration `mapstructure:"window"`
	FailOpen             bool          `mapstructure:"fail_open"`
}

type AdminConfig struct {
	Addr        string   `mapstructure:"addr"`
	Mode        string   `mapstructure:"mode"`
	Token       string   `mapstructure:"token"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// MaxConcurrent caps in-flight admin requests; 0 disables the cap.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// requiredEnv maps config keys to the environment variables that must supply them.
var requiredEnv = []struct {
	key string
	env string
}{
	{"discord.token", "DISCORD_TOKEN"},
	{"mail.project_secret", "PROJECT_SECRET"},
	{"render.api_key", "HTML_CONVERTER_API_KEY"},
	{"database.dsn", "DATABASE_CONN"},
}

// LoadConfig reads configuration from the environment, an optional .env file
// and an optional config file at path. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; the real environment always wins over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EXPRESS_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, r := range requiredEnv {
		if err := v.BindEnv(r.key, r.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", r.env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var missing []string
	for _, r := range requiredEnv {
		if strings.TrimSpace(v.GetString(r.key)) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if _, _, err := cfg.Event.Window(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.cache_ttl", time.Hour)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "express-bot.tickets")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff_ms", 100)

	v.SetDefault("render.base_url", "https://hcti.io")
	v.SetDefault("render.google_fonts", "Inter")
	v.SetDefault("render.viewport_width", 1600)
	v.SetDefault("render.viewport_height", 400)

	v.SetDefault("mail.base_url", "https://api.smtpexpress.com")

	v.SetDefault("event.title", "SMTP Express Launch Party!")
	v.SetDefault("event.headline", "The Express Hangout")
	v.SetDefault("event.tagline", "A Launch party")
	v.SetDefault("event.subject", "Join us for our Launch Party!")
	v.SetDefault("event.location", "Opolo Innovation Hub, OAU Campus, Ile-ife")
	v.SetDefault("event.map_url", "https://maps.app.goo.gl/fYRvgJZ6FV1XAPJc8")
	v.SetDefault("event.organizer", "thesmtpexpress@gmail.com")
	v.SetDefault("event.website_url", "https://smtpexpress.com")
	v.SetDefault("event.date_label", "12 Noon Saturday, 27th January 2024")
	v.SetDefault("event.starts_at", "2024-01-27T12:00:00")
	v.SetDefault("event.ends_at", "2024-01-27T14:00:00")
	v.SetDefault("event.time_zone", "Africa/Lagos")
	v.SetDefault("event.ticket_prefix", "2701")
	v.SetDefault("event.sender_email", "tenotea@smtpexpress.com")
	v.SetDefault("event.sender_name", "Tenotea from SMTP Express")
	v.SetDefault("event.template_id", "uJInmhVtnG9rthHcuDdvq")
	v.SetDefault("event.promo_image_url", "https://res.cloudinary.com/devtenotea/image/upload/v1704800450/smtp-express-launch-party.png")
	v.SetDefault("event.ticket_background_url", "https://res.cloudinary.com/devtenotea/image/upload/v1704844290/w1iauqry6je7y0mdpt2j.png")
	v.SetDefault("event.brand_logo_url", "https://res.cloudinary.com/devtenotea/image/upload/v1704803542/i9wf4gyqocpdisekdv62.png")
	v.SetDefault("event.partner_logo_url", "https://res.cloudinary.com/devtenotea/image/upload/v1704839313/ahamzdchjddvimjormus.png")
	v.SetDefault("event.fallback_avatar_url", "https://unsplash.com/photos/0zQTksqA_Ws/download?ixid=M3wxMjA3fDB8MXxhbGx8M3x8fHx8fDJ8fDE3MDQ4NDg0NTR8&force=true&w=640")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("worker_pool.size", 16)
	v.SetDefault("worker_pool.queue_size", 256)
	v.SetDefault("worker_pool.event_timeout", time.Minute)

	v.SetDefault("ratelimit.submissions_per_window", 0)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.fail_open", true)

	v.SetDefault("admin.addr", "")
	v.SetDefault("admin.mode", "release")
	v.SetDefault("admin.token", "")
	v.SetDefault("admin.cors_origins", []string{})
	v.SetDefault("admin.max_concurrent", 32)
}
