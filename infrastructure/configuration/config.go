package configuration

import (
	"fmt"
	"os"
	"strconv"

	"social-scheduler/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database      Database      `mapstructure:"database"`
	App           App           `mapstructure:"app"`
	Pubsub        Pubsub        `mapstructure:"pubsub"`
	ServiceBus    ServiceBus    `mapstructure:"serviceBus"`
	RedisClient   RedisClient   `mapstructure:"redisClient"`
	Logger        Logger        `mapstructure:"logger"`
	OAuth         OAuth         `mapstructure:"oauth"`
	Scheduler     Scheduler     `mapstructure:"scheduler"`
	Encryption    Encryption    `mapstructure:"encryption"`
	VerifierStore VerifierStore `mapstructure:"verifierStore"`
}

type App struct {
	Port        int      `mapstructure:"port"`
	SecretKey   string   `mapstructure:"secretKey"`
	TLSEnabled  bool     `mapstructure:"tlsEnabled"`
	TLSCertFile string   `mapstructure:"tlsCertFile"`
	TLSKeyFile  string   `mapstructure:"tlsKeyFile"`
	BaseURL     string   `mapstructure:"baseURL"`
	CORSOrigins []string `mapstructure:"corsOrigins"`
}

type Database struct {
	Psql  Db `mapstructure:"psql"`
	MySql Db `mapstructure:"mysql"`
	Mongo Db `mapstructure:"mongo"`
	Mssql Db `mapstructure:"mssql"`
}

type Db struct {
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslMode"`
}

type Pubsub struct {
	ProjectID string `mapstructure:"projectID"`
	TopicID   string `mapstructure:"topicID"`
}

type ServiceBus struct {
	Namespace string `mapstructure:"namespace"`
	QueueName string `mapstructure:"queueName"`
}

type RedisClient struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DatabaseName string `mapstructure:"databaseName"`
	Username     string `mapstructure:"username"`
}

type Logger struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

// OAuth holds third-party platform OAuth client credentials
type OAuth struct {
	Twitter  OAuthClient `mapstructure:"twitter"`
	LinkedIn OAuthClient `mapstructure:"linkedin"`
}

type OAuthClient struct {
	ClientID      string   `mapstructure:"clientId"`
	ClientSecret  string   `mapstructure:"clientSecret"`
	RedirectURI   string   `mapstructure:"redirectURI"`
	Scopes        []string `mapstructure:"scopes"`
	AuthURL       string   `mapstructure:"authURL"`
	TokenURL      string   `mapstructure:"tokenURL"`
	APIBaseURL    string   `mapstructure:"apiBaseURL"`
	RatePerMinute int      `mapstructure:"ratePerMinute"`
}

// Scheduler tunes the publishing loop. Durations are in seconds.
type Scheduler struct {
	Enabled               bool `mapstructure:"enabled"`
	IntervalSeconds       int  `mapstructure:"intervalSeconds"`
	MaxConcurrency        int  `mapstructure:"maxConcurrency"`
	MaxRetries            int  `mapstructure:"maxRetries"`
	BatchSize             int  `mapstructure:"batchSize"`
	PublishTimeoutSeconds int  `mapstructure:"publishTimeoutSeconds"`
	RefreshWindowSeconds  int  `mapstructure:"refreshWindowSeconds"`
}

type Encryption struct {
	Key string `mapstructure:"key"`
}

type VerifierStore struct {
	Backend    string `mapstructure:"backend"` // memory | redis
	KeyPrefix  string `mapstructure:"keyPrefix"`
	TTLMinutes int    `mapstructure:"ttlMinutes"`
}

var C Config

func init() {
	load()
}

// Reload rebuilds C from the config file and the environment. main calls it after
// env files were loaded so their values take effect.
func Reload() {
	C = Config{}
	load()
}

func load() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initSecrets(&C)
	initScheduler(&C)
	if C.Logger.Level != "" {
		logger.SetLevel(C.Logger.Level)
	}
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	logger.GetLogger().WithField("host", C.Database.Psql.Host).Info("Database configuration")
	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", C.Database.Psql.Name)
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", C.Database.Psql.Host)
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", C.Database.Psql.User)
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", C.Database.Psql.Password)
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.SSLMode = getConfigValue(C.Database.Psql.SSLMode, "DB_SSLMODE", "disable")

	// MSSQL is the production store (Azure SQL).
	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", C.Database.Mssql.Name)
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", C.Database.Mssql.User)
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", C.Database.Mssql.Password)

	// Billing database holding subscriptions; optional.
	C.Database.MySql.Host = getConfigValue(C.Database.MySql.Host, "BILLING_DB_HOST", C.Database.MySql.Host)
	C.Database.MySql.Password = getConfigValue(C.Database.MySql.Password, "BILLING_DB_PASSWORD", C.Database.MySql.Password)

	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", C.Database.Mongo.Host)
	C.Database.Mongo.Password = getConfigValue(C.Database.Mongo.Password, "MONGO_PASSWORD", C.Database.Mongo.Password)

	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", C.RedisClient.Host)
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", C.RedisClient.Password)
}

func initApp(C *Config) {
	// SECRET_KEY from the environment overrides the config file for JWT verification.
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	C.App.BaseURL = getConfigValue(C.App.BaseURL, "APP_BASE_URL", defaultBaseURL(C))
	if len(C.App.CORSOrigins) == 0 {
		C.App.CORSOrigins = []string{"http://localhost:4200", "https://localhost:4200"}
	}
	if C.App.TLSEnabled {
		logger.GetLogger().WithFields(map[string]interface{}{"cert": C.App.TLSCertFile, "key": C.App.TLSKeyFile}).Info("TLS enabled via configuration")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initSecrets(C *Config) {
	C.Encryption.Key = getConfigValue(C.Encryption.Key, "ENCRYPTION_KEY", C.Encryption.Key)
	C.VerifierStore.Backend = getConfigValue(C.VerifierStore.Backend, "VERIFIER_STORE", "memory")
	if C.VerifierStore.KeyPrefix == "" {
		C.VerifierStore.KeyPrefix = "oauth:verifier:"
	}
	if C.VerifierStore.TTLMinutes <= 0 {
		C.VerifierStore.TTLMinutes = 10
	}
}

func initScheduler(C *Config) {
	s := &C.Scheduler
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		s.Enabled = v == "true" || v == "1"
	} else if !viper.IsSet("scheduler.enabled") {
		s.Enabled = true
	}
	s.IntervalSeconds = getIntValue(s.IntervalSeconds, "SCHEDULER_INTERVAL_SECONDS", 60)
	s.MaxConcurrency = getIntValue(s.MaxConcurrency, "SCHEDULER_MAX_CONCURRENCY", 4)
	s.MaxRetries = getIntValue(s.MaxRetries, "SCHEDULER_MAX_RETRIES", 3)
	s.BatchSize = getIntValue(s.BatchSize, "SCHEDULER_BATCH_SIZE", 50)
	s.PublishTimeoutSeconds = getIntValue(s.PublishTimeoutSeconds, "SCHEDULER_PUBLISH_TIMEOUT_SECONDS", 15)
	s.RefreshWindowSeconds = getIntValue(s.RefreshWindowSeconds, "SCHEDULER_REFRESH_WINDOW_SECONDS", 300)
}

func defaultBaseURL(C *Config) string {
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	return fmt.Sprintf("%s://localhost:%d", scheme, C.App.Port)
}
