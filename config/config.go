package config

import (
	"os"
	"strings"
	"time"

	"github.com/mossy-p/signalhub/internal/turn"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	JWTSecret      string   `mapstructure:"jwt_secret"`
	// UID, when non-zero, is the user id to switch to once listening
	UID int `mapstructure:"uid"`

	Server ServerConfig `mapstructure:"server"`
	Rooms  RoomsConfig  `mapstructure:"rooms"`

	StunServers   []webrtc.ICEServer `mapstructure:"stunservers"`
	TurnServers   []turn.Server      `mapstructure:"turnservers"`
	SharedKeyAuth bool               `mapstructure:"shared_key_auth"`
	TurnOrigins   []string           `mapstructure:"turnorigins"`

	Redis RedisConfig `mapstructure:"redis"`
	WS    WSConfig    `mapstructure:"ws"`
	Log   LogConfig   `mapstructure:"log"`
}

type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	Secure bool   `mapstructure:"secure"`
	Key    string `mapstructure:"key"`
	Cert   string `mapstructure:"cert"`

	// Password decrypts Key when it is an encrypted PEM
	Password string `mapstructure:"password"`
}

type RoomsConfig struct {
	// MaxClients of 0 means rooms are unbounded
	MaxClients int `mapstructure:"max_clients"`
}

// RedisConfig enables the presence mirror when Addr is set
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type WSConfig struct {
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendQueue  int           `mapstructure:"send_queue"`
}

const (
	DefaultReadLimit  int64 = 65536
	DefaultPingPeriod       = 54 * time.Second
	DefaultPongWait         = 60 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultSendQueue        = 256
)

// WithDefaults fills zero fields, for callers that build a WSConfig by hand
func (w WSConfig) WithDefaults() WSConfig {
	if w.ReadLimit <= 0 {
		w.ReadLimit = DefaultReadLimit
	}
	if w.PingPeriod <= 0 {
		w.PingPeriod = DefaultPingPeriod
	}
	if w.PongWait <= 0 {
		w.PongWait = DefaultPongWait
	}
	if w.WriteWait <= 0 {
		w.WriteWait = DefaultWriteWait
	}
	if w.SendQueue <= 0 {
		w.SendQueue = DefaultSendQueue
	}
	return w
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path, or from config.yaml in . or ./config
// when path is empty, then applies SIGNALHUB_* environment overrides.
// A missing default file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIGNALHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is what most hosting platforms hand us
	_ = v.BindEnv("server.port", "SIGNALHUB_SERVER_PORT", "PORT")

	if path == "" {
		path = os.Getenv("SIGNALHUB_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		log.Info().Str("module", "config").Str("file", path).Msg("loaded config")
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
			log.Warn().Str("module", "config").Msg("config file not found, using defaults")
		} else {
			log.Info().Str("module", "config").Str("file", v.ConfigFileUsed()).Msg("loaded config")
		}
	}

	applyLegacyKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// legacyKeys maps camelCase keys from older config files to their current
// names. Viper lowercases keys, so these are matched case-insensitively.
var legacyKeys = map[string]string{
	"rooms.maxclients": "rooms.max_clients",
	"sharedkeyauth":    "shared_key_auth",
}

// applyLegacyKeys copies legacy values onto the current key unless the file
// or environment already sets the current key.
func applyLegacyKeys(v *viper.Viper) {
	for legacy, key := range legacyKeys {
		if !v.IsSet(legacy) || v.InConfig(key) || isEnvSet(key) {
			continue
		}
		v.Set(key, v.Get(legacy))
		log.Warn().Str("module", "config").Str("key", legacy).Str("use", key).Msg("deprecated config key")
	}
}

func isEnvSet(key string) bool {
	_, ok := os.LookupEnv("SIGNALHUB_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	return ok
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 8888)
	v.SetDefault("server.secure", false)
	v.SetDefault("rooms.max_clients", 0)
	v.SetDefault("shared_key_auth", false)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("ws.read_limit", DefaultReadLimit)
	v.SetDefault("ws.ping_period", DefaultPingPeriod)
	v.SetDefault("ws.pong_wait", DefaultPongWait)
	v.SetDefault("ws.write_wait", DefaultWriteWait)
	v.SetDefault("ws.send_queue", DefaultSendQueue)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Secure && (c.Server.Key == "" || c.Server.Cert == "") {
		return errors.New("server.secure requires server.key and server.cert")
	}
	if c.Rooms.MaxClients < 0 {
		return errors.Errorf("rooms.max_clients must be >= 0, got %d", c.Rooms.MaxClients)
	}
	for i, s := range c.StunServers {
		if len(s.URLs) == 0 {
			return errors.Errorf("stunservers[%d]: urls is required", i)
		}
	}
	for i, s := range c.TurnServers {
		if len(s.URLs) == 0 && s.URL == "" {
			return errors.Errorf("turnservers[%d]: urls or url is required", i)
		}
		if s.Expiry < 0 {
			return errors.Errorf("turnservers[%d]: expiry must be >= 0", i)
		}
	}
	if c.WS.PingPeriod >= c.WS.PongWait {
		return errors.Errorf("ws.ping_period (%s) must be shorter than ws.pong_wait (%s)", c.WS.PingPeriod, c.WS.PongWait)
	}
	if c.WS.SendQueue <= 0 {
		return errors.New("ws.send_queue must be > 0")
	}
	return nil
}

// IsProduction switches gin into release mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Turn is the credential minter's view of the config
func (c *Config) Turn() turn.Config {
	return turn.Config{
		Servers:       c.TurnServers,
		SharedKeyAuth: c.SharedKeyAuth,
		Origins:       c.TurnOrigins,
	}
}
