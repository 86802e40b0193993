package config

import (
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/kino.yaml"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`

	ServerHost string `koanf:"server_host" default:"0.0.0.0"`
	ServerPort int    `koanf:"server_port" default:"3689"`

	SyncIntervalMinutes int `koanf:"sync_interval_minutes" default:"60"`
	WorkerProcesses     int `koanf:"worker_processes" default:"2"`

	DefaultProviderOrder []string      `koanf:"default_provider_order"`
	PluginDir            string        `koanf:"plugin_dir" default:"/config/providers"`
	ProviderConcurrency  int           `koanf:"provider_concurrency" default:"4"`
	ProviderTimeout      time.Duration `koanf:"provider_timeout" default:"10s"`
	TmdbAPIKey           string        `koanf:"tmdb_api_key"`
	TmdbBaseURL          string        `koanf:"tmdb_base_url" default:"https://api.themoviedb.org/3"`
	TmdbLanguage         string        `koanf:"tmdb_language" default:"en-US"`

	IdentifierPatterns         []string `koanf:"identifier_patterns"`
	IdentifierAbsolutePatterns []string `koanf:"identifier_absolute_patterns"`
	IdentifierMoviePatterns    []string `koanf:"identifier_movie_patterns"`
	IdentifierSubtitlePatterns []string `koanf:"identifier_subtitle_patterns"`

	Hostname string `koanf:"-"`
}

// New loads the configuration from the YAML file named by CONFIG_FILE and then from
// the environment. Environment variables are the upper-cased config keys and take
// precedence over the file.
func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	keys := configKeys()
	err = k.Load(env.ProviderWithValue("", ".", func(name, value string) (string, interface{}) {
		key := strings.ToLower(name)
		kind, ok := keys[key]
		if !ok || value == "" {
			return "", nil
		}
		if kind == reflect.Slice {
			return key, splitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname

	return cfg, nil
}

// NewForTest returns a configuration suitable for tests: an in-memory database and a
// loopback server address.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.Hostname = "test"
	return cfg
}

func toSnakeCase(name string) string {
	return strcase.ToSnake(name)
}

// configKeys maps every loadable key to the kind of its field.
func configKeys() map[string]reflect.Kind {
	keys := map[string]reflect.Kind{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("koanf") == "-" {
			continue
		}
		keys[toSnakeCase(field.Name)] = field.Type.Kind()
	}
	return keys
}

func checkRequired(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("required") != "true" {
			continue
		}
		if v.Field(i).IsZero() {
			key := toSnakeCase(field.Name)
			return errors.Errorf("missing required config: %s (env %s)", key, strings.ToUpper(key))
		}
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}
	return list
}
