package config

import (
	"log"
	"os"
	"strings"
	"time"

	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Run modes.
const (
	ModeProduction = "production"
	ModeRehearsal  = "rehearsal"
)

const (
	defaultTimezone = "UTC"

	configPathEnv      = "SROTD_CONFIG"
	modeEnv            = "SROTD_MODE"
	redditClientIDEnv  = "REDDIT_CLIENT_ID"
	redditSecretEnv    = "REDDIT_CLIENT_SECRET"
	redditUsernameEnv  = "REDDIT_USERNAME"
	redditPasswordEnv  = "REDDIT_PASSWORD"
	discordWebhookEnv  = "DISCORD_WEBHOOK_URL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	databaseDSNEnv     = "DATABASE_DSN"
	defaultUserAgent   = "linux:srotd:v0.2"
	defaultStaging     = "srotd_dev"
	defaultPublish     = "subredditoftheday"
	defaultStagingList = 15
	defaultFeedList    = 3
)

// Config holds high-level settings required across the application.
type Config struct {
	Mode          string             `yaml:"mode"`
	Logging       LoggingConfig      `yaml:"logging"`
	Reddit        RedditConfig       `yaml:"reddit"`
	Venues        VenueConfig        `yaml:"venues"`
	Tags          TagConfig          `yaml:"tags"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Publish       PublishConfig      `yaml:"publish"`
	Notifications NotificationConfig `yaml:"notifications"`
	Storage       StorageConfig      `yaml:"storage"`
	Run           RunConfig          `yaml:"run"`
}

// Rehearsal reports whether outward-facing effects must be suppressed.
func (c Config) Rehearsal() bool {
	return strings.EqualFold(c.Mode, ModeRehearsal)
}

// LoggingConfig selects the level and an optional mirror file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// RedditConfig carries script-app credentials.
type RedditConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	UserAgent    string `yaml:"userAgent"`
	APIBase      string `yaml:"apiBase"`
	TokenURL     string `yaml:"tokenUrl"`
}

// VenueConfig names the communities the bot works in.
type VenueConfig struct {
	Staging        string `yaml:"staging"`
	Publish        string `yaml:"publish"`
	SchedulePostID string `yaml:"schedulePostId"`
	StagingLimit   int    `yaml:"stagingLimit"`
	FeedLimit      int    `yaml:"feedLimit"`
}

// TagConfig holds the tag labels moderators put on staging submissions.
type TagConfig struct {
	Ready          string `yaml:"ready"`
	Emergency      string `yaml:"emergency"`
	WorkInProgress string `yaml:"workInProgress"`
}

// SchedulerConfig defines the calendar settings.
type SchedulerConfig struct {
	Timezone    string         `yaml:"timezone"`
	HorizonDays int            `yaml:"horizonDays"`
	location    *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PublishConfig defines the daily publish window.
type PublishConfig struct {
	OpenHour        int `yaml:"openHour"`
	MinHoursBetween int `yaml:"minHoursBetween"`
}

// MinGap converts MinHoursBetween to a duration.
func (p PublishConfig) MinGap() time.Duration {
	return time.Duration(p.MinHoursBetween) * time.Hour
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Discord     DiscordConfig     `yaml:"discord"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Attribution AttributionConfig `yaml:"attribution"`
}

// DiscordConfig points at an incoming webhook.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// AttributionConfig is shown as the author of announcements.
type AttributionConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	IconURL string `yaml:"iconUrl"`
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// RunConfig guards against overlapping runs.
type RunConfig struct {
	LockFile string `yaml:"lockFile"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{modeEnv, &c.Mode},
		{redditClientIDEnv, &c.Reddit.ClientID},
		{redditSecretEnv, &c.Reddit.ClientSecret},
		{redditUsernameEnv, &c.Reddit.Username},
		{redditPasswordEnv, &c.Reddit.Password},
		{discordWebhookEnv, &c.Notifications.Discord.WebhookURL},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{databaseDSNEnv, &c.Storage.DSN},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}

	str(&base.Mode, override.Mode)

	str(&base.Logging.Level, override.Logging.Level)
	str(&base.Logging.File, override.Logging.File)

	str(&base.Reddit.ClientID, override.Reddit.ClientID)
	str(&base.Reddit.ClientSecret, override.Reddit.ClientSecret)
	str(&base.Reddit.Username, override.Reddit.Username)
	str(&base.Reddit.Password, override.Reddit.Password)
	str(&base.Reddit.UserAgent, override.Reddit.UserAgent)
	str(&base.Reddit.APIBase, override.Reddit.APIBase)
	str(&base.Reddit.TokenURL, override.Reddit.TokenURL)

	str(&base.Venues.Staging, override.Venues.Staging)
	str(&base.Venues.Publish, override.Venues.Publish)
	str(&base.Venues.SchedulePostID, override.Venues.SchedulePostID)
	num(&base.Venues.StagingLimit, override.Venues.StagingLimit)
	num(&base.Venues.FeedLimit, override.Venues.FeedLimit)

	str(&base.Tags.Ready, override.Tags.Ready)
	str(&base.Tags.Emergency, override.Tags.Emergency)
	str(&base.Tags.WorkInProgress, override.Tags.WorkInProgress)

	str(&base.Scheduler.Timezone, override.Scheduler.Timezone)
	num(&base.Scheduler.HorizonDays, override.Scheduler.HorizonDays)

	num(&base.Publish.OpenHour, override.Publish.OpenHour)
	num(&base.Publish.MinHoursBetween, override.Publish.MinHoursBetween)

	str(&base.Notifications.Discord.WebhookURL, override.Notifications.Discord.WebhookURL)
	str(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	str(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)
	if override.Notifications.Attribution.Name != "" {
		base.Notifications.Attribution = override.Notifications.Attribution
	}

	str(&base.Storage.Driver, override.Storage.Driver)
	str(&base.Storage.Path, override.Storage.Path)
	str(&base.Storage.DSN, override.Storage.DSN)

	str(&base.Run.LockFile, override.Run.LockFile)

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Mode:    ModeProduction,
		Logging: LoggingConfig{Level: "info"},
		Reddit:  RedditConfig{UserAgent: defaultUserAgent},
		Venues: VenueConfig{
			Staging:      defaultStaging,
			Publish:      defaultPublish,
			StagingLimit: defaultStagingList,
			FeedLimit:    defaultFeedList,
		},
		Tags: TagConfig{
			Ready:          "BOT READY",
			Emergency:      "EMERGENCY READY",
			WorkInProgress: "WORK IN PROGRESS",
		},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, HorizonDays: 30, location: tz},
		Publish:   PublishConfig{OpenHour: 12, MinHoursBetween: 22},
		Notifications: NotificationConfig{
			Attribution: AttributionConfig{
				Name:    "tomBOT",
				URL:     "https://github.com/tumGER/SubredditOfTheDay-Schedule-Bot",
				IconURL: "https://avatars.githubusercontent.com/u/25822956?v=4",
			},
		},
		Storage: StorageConfig{Driver: "json", Path: "db.json"},
		Run:     RunConfig{LockFile: "srotd.lock"},
	}
}
