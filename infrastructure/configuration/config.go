package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"threadsctl/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Threads     Threads     `mapstructure:"threads"`
	RedisClient RedisClient `mapstructure:"redisClient"`
}

type Threads struct {
	AppID             string        `mapstructure:"appId"`
	AppSecret         string        `mapstructure:"appSecret"`
	APIVersion        string        `mapstructure:"apiVersion"`
	GraphURL          string        `mapstructure:"graphUrl"`
	AuthURL           string        `mapstructure:"authUrl"`
	RedirectPort      int           `mapstructure:"redirectPort"`
	TLS               bool          `mapstructure:"tls"`
	CallbackTimeout   time.Duration `mapstructure:"callbackTimeout"`
	Scopes            []string      `mapstructure:"scopes"`
	CredentialsFile   string        `mapstructure:"credentialsFile"`
	CredentialBackend string        `mapstructure:"credentialBackend"` // file | redis
}

type RedisClient struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

const (
	DefaultGraphURL     = "https://graph.threads.net"
	DefaultAuthURL      = "https://threads.net/oauth/authorize"
	DefaultAPIVersion   = "v1.0"
	DefaultRedirectPort = 8890
)

var DefaultScopes = []string{
	"threads_basic",
	"threads_content_publish",
	"threads_manage_replies",
	"threads_read_replies",
	"threads_manage_insights",
}

var C Config

func LoadConfig() {
	v := viper.New()
	setDefaults(v)
	name := getConfig()
	v.SetConfigName(name)
	v.SetConfigType("json")
	v.AddConfigPath(".")
	if dir := configDir(); dir != "" {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().WithField("config", name).Debug("Config file not found, using defaults")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	} else {
		logger.GetLogger().WithField("config", v.ConfigFileUsed()).Debug("Config set up successfully")
	}

	C = Config{}
	if err := v.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	initThreads(&C)
	initRedis(&C)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("threads.apiVersion", DefaultAPIVersion)
	v.SetDefault("threads.graphUrl", DefaultGraphURL)
	v.SetDefault("threads.authUrl", DefaultAuthURL)
	v.SetDefault("threads.redirectPort", DefaultRedirectPort)
	v.SetDefault("threads.tls", true)
	v.SetDefault("threads.callbackTimeout", "5m")
	v.SetDefault("threads.scopes", DefaultScopes)
	v.SetDefault("threads.credentialBackend", "file")
	v.SetDefault("redisClient.host", "localhost")
	v.SetDefault("redisClient.port", "6379")
	v.SetDefault("redisClient.key", "threadsctl:credentials")
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

// configDir is where the CLI keeps its config and default credential file
func configDir() string {
	if v := os.Getenv("THREADS_CONFIG_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "threadsctl")
}

func initThreads(C *Config) {
	t := &C.Threads
	t.AppID = getConfigValue(t.AppID, "THREADS_APP_ID", "")
	t.AppSecret = getConfigValue(t.AppSecret, "THREADS_APP_SECRET", "")
	t.APIVersion = getConfigValue(t.APIVersion, "THREADS_API_VERSION", DefaultAPIVersion)
	t.GraphURL = strings.TrimRight(getConfigValue(t.GraphURL, "THREADS_GRAPH_URL", DefaultGraphURL), "/")
	t.AuthURL = getConfigValue(t.AuthURL, "THREADS_AUTH_URL", DefaultAuthURL)
	t.CredentialBackend = strings.ToLower(getConfigValue(t.CredentialBackend, "THREADS_CREDENTIAL_BACKEND", "file"))

	if v := os.Getenv("THREADS_REDIRECT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			t.RedirectPort = p
		}
	}
	if t.RedirectPort == 0 {
		t.RedirectPort = DefaultRedirectPort
	}
	// Allow overriding TLS via env (both enable and disable)
	if v := os.Getenv("THREADS_TLS"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			t.TLS = true
		case "0", "false", "FALSE", "False":
			t.TLS = false
		}
	}
	if v := os.Getenv("THREADS_CALLBACK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			t.CallbackTimeout = d
		}
	}
	if t.CallbackTimeout <= 0 {
		t.CallbackTimeout = 5 * time.Minute
	}
	if len(t.Scopes) == 0 {
		t.Scopes = DefaultScopes
	}

	t.CredentialsFile = getConfigValue(t.CredentialsFile, "THREADS_CREDENTIALS_FILE", "")
	if t.CredentialsFile == "" {
		dir := configDir()
		if dir == "" {
			dir = "."
		}
		t.CredentialsFile = filepath.Join(dir, "credentials.json")
	}
}

func initRedis(C *Config) {
	r := &C.RedisClient
	r.Host = getConfigValue(r.Host, "REDIS_HOST", "localhost")
	r.Port = getConfigValue(r.Port, "REDIS_PORT", "6379")
	r.Username = getConfigValue(r.Username, "REDIS_USERNAME", "")
	r.Password = getConfigValue(r.Password, "REDIS_PASSWORD", "")
	r.Key = getConfigValue(r.Key, "REDIS_CREDENTIALS_KEY", "threadsctl:credentials")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			r.DB = db
		}
	}
}

// BaseURL is the versioned Graph endpoint used for resource calls
func (t Threads) BaseURL() string {
	return t.GraphURL + "/" + t.APIVersion
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
