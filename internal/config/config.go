// internal/config/config.go
package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

type Config struct {
	Port               string   `koanf:"port"`
	Environment        string   `koanf:"environment"`
	DatabaseURL        string   `koanf:"database_url"`
	AutoMigrate        bool     `koanf:"auto_migrate"`
	LogFormat          string   `koanf:"log_format"`
	AppBaseURL         string   `koanf:"app_base_url"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	SwaggerEnabled     bool     `koanf:"swagger_enabled"`
	TracingEnabled     bool     `koanf:"tracing_enabled"`
	TraceExporter      string   `koanf:"trace_exporter"`

	JWTSecret          string        `koanf:"jwt_secret"`
	JWTPreviousSecrets []string      `koanf:"jwt_previous_secrets"`
	JWTExpiresIn       time.Duration `koanf:"jwt_expires_in"`
	StoreTimeout       time.Duration `koanf:"store_timeout"`
	BcryptCost         int           `koanf:"bcrypt_cost"`
	HashConcurrency    int           `koanf:"hash_concurrency"`

	SMTPHost      string `koanf:"smtp_host"`
	SMTPPort      string `koanf:"smtp_port"`
	SMTPUser      string `koanf:"smtp_user"`
	SMTPPassword  string `koanf:"smtp_password"`
	SMTPFrom      string `koanf:"smtp_from"`
	SMTPUseTLS    bool   `koanf:"smtp_use_tls"`
	MailQueueSize int    `koanf:"mail_queue_size"`
	MailWorkers   int    `koanf:"mail_workers"`

	S3Region          string `koanf:"s3_region"`
	S3Bucket          string `koanf:"s3_bucket"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	S3Endpoint        string `koanf:"s3_endpoint"`
	S3PublicBaseURL   string `koanf:"s3_public_base_url"`
}

// envKeys maps environment variables onto config keys.
var envKeys = map[string]string{
	"PORT":                  "port",
	"ENVIRONMENT":           "environment",
	"DATABASE_URL":          "database_url",
	"AUTO_MIGRATE":          "auto_migrate",
	"LOG_FORMAT":            "log_format",
	"APP_BASE_URL":          "app_base_url",
	"CORS_ALLOWED_ORIGINS":  "cors_allowed_origins",
	"SWAGGER_ENABLED":       "swagger_enabled",
	"TRACING_ENABLED":       "tracing_enabled",
	"TRACE_EXPORTER":        "trace_exporter",
	"JWT_SECRET":            "jwt_secret",
	"JWT_PREVIOUS_SECRETS":  "jwt_previous_secrets",
	"JWT_EXPIRES_IN":        "jwt_expires_in",
	"STORE_TIMEOUT":         "store_timeout",
	"BCRYPT_COST":           "bcrypt_cost",
	"HASH_CONCURRENCY":      "hash_concurrency",
	"SMTP_HOST":             "smtp_host",
	"SMTP_PORT":             "smtp_port",
	"SMTP_USER":             "smtp_user",
	"SMTP_PASSWORD":         "smtp_password",
	"SMTP_FROM":             "smtp_from",
	"SMTP_USE_TLS":          "smtp_use_tls",
	"MAIL_QUEUE_SIZE":       "mail_queue_size",
	"MAIL_WORKERS":          "mail_workers",
	"AWS_REGION":            "s3_region",
	"S3_BUCKET_NAME":        "s3_bucket",
	"AWS_ACCESS_KEY_ID":     "s3_access_key_id",
	"AWS_SECRET_ACCESS_KEY": "s3_secret_access_key",
	"S3_ENDPOINT":           "s3_endpoint",
	"S3_PUBLIC_BASE_URL":    "s3_public_base_url",
}

// listKeys are comma separated when they come from the environment.
var listKeys = map[string]bool{
	"cors_allowed_origins": true,
	"jwt_previous_secrets": true,
}

// Load layers defaults, an optional YAML file, the environment and finally
// any flags the user set explicitly. The result is not validated; commands
// that serve traffic call Validate.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", path).Wrap(err)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{TransformFunc: envTransform}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	errb := oops.Code("CONFIG_INVALID")
	switch {
	case c.Port == "":
		return errb.Errorf("port is required")
	case c.DatabaseURL == "":
		return errb.Errorf("database_url is required")
	case c.JWTSecret == "":
		return errb.Errorf("jwt_secret is required")
	case c.IsProduction() && len(c.JWTSecret) < 32:
		return errb.Errorf("jwt_secret must be at least 32 bytes in production")
	case c.BcryptCost < 4 || c.BcryptCost > 31:
		return errb.With("bcrypt_cost", c.BcryptCost).Errorf("bcrypt_cost must be between 4 and 31")
	case c.JWTExpiresIn <= 0:
		return errb.Errorf("jwt_expires_in must be positive")
	case c.StoreTimeout < 0:
		return errb.Errorf("store_timeout must not be negative")
	case c.LogFormat != "json" && c.LogFormat != "text":
		return errb.With("log_format", c.LogFormat).Errorf("log_format must be json or text")
	case c.TraceExporter != "" && c.TraceExporter != "stdout" && c.TraceExporter != "otlp":
		return errb.With("trace_exporter", c.TraceExporter).Errorf("trace_exporter must be empty, stdout or otlp")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SMTPConfigured reports whether outgoing mail has somewhere to go.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func defaults() map[string]any {
	return map[string]any{
		"port":                 "8080",
		"environment":          "development",
		"auto_migrate":         false,
		"log_format":           "json",
		"app_base_url":         "http://localhost:3000",
		"cors_allowed_origins": []string{"*"},
		"swagger_enabled":      true,
		"tracing_enabled":      false,
		"jwt_expires_in":       "168h",
		"store_timeout":        "5s",
		"bcrypt_cost":          10,
		"hash_concurrency":     0,
		"smtp_port":            "587",
		"smtp_use_tls":         true,
		"mail_queue_size":      100,
		"mail_workers":         2,
	}
}

// envTransform keeps only the variables listed in envKeys.
func envTransform(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok {
		return "", nil
	}
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func databaseURLFromParts() string {
	host := getEnv("PSQL_HOST", "localhost")
	port := getEnv("PSQL_PORT", "5432")
	user := getEnv("PSQL_USER", "postgres")
	password := getEnv("PSQL_PASSWORD", "postgres")
	dbName := getEnv("PSQL_DB_NAME", "conecta_lagoa")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   host + ":" + port,
		Path:   dbName,
	}
	q := u.Query()
	q.Set("sslmode", getEnv("PSQL_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
