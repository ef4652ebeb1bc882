package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	LogLevel   string `mapstructure:"log_level"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`

	AutoCreateRooms bool          `mapstructure:"auto_create_rooms"`
	RoomGracePeriod time.Duration `mapstructure:"room_grace_period"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	CodeLength      int           `mapstructure:"code_length"`
	CodeMaxAttempts int           `mapstructure:"code_max_attempts"`

	ChatRate  float64 `mapstructure:"chat_rate"`
	ChatBurst int     `mapstructure:"chat_burst"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

// BindFlags registers the command-line overrides understood by Load.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config-env", "", "config environment, selects config/config.<env>.yaml")
	fs.Int("port", 0, "listen port")
	fs.String("mode", "", "release or debug")
	fs.String("log-level", "", "zerolog level")
	fs.String("static-path", "", "directory with the web client")
}

var flagKeys = map[string]string{
	"port":        "port",
	"mode":        "mode",
	"log-level":   "log_level",
	"static-path": "static_path",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("auto_create_rooms", true)
	v.SetDefault("room_grace_period", "0s")
	v.SetDefault("sweep_interval", "1h")
	v.SetDefault("code_length", 6)
	v.SetDefault("code_max_attempts", 16)
	v.SetDefault("chat_rate", 5.0)
	v.SetDefault("chat_burst", 10)
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SCREENSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	env := os.Getenv("CONFIG_ENV")
	if fs != nil {
		if f := fs.Lookup("config-env"); f != nil && f.Changed {
			env = f.Value.String()
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		errs = append(errs, fmt.Errorf("ping_period %s must be positive and below pong_wait %s", c.PingPeriod, c.PongWait))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.CodeLength < 4 {
		errs = append(errs, fmt.Errorf("code_length %d too short", c.CodeLength))
	}
	if c.RoomGracePeriod < 0 {
		errs = append(errs, errors.New("room_grace_period must not be negative"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep_interval must be positive"))
	}
	for _, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			errs = append(errs, errors.New("ice server without urls"))
		}
		for _, raw := range s.URLs {
			if _, err := stun.ParseURI(raw); err != nil {
				errs = append(errs, fmt.Errorf("ice server url %q: %w", raw, err))
			}
		}
	}
	return errors.Join(errs...)
}

// WebRTCICEServers is the ICE configuration handed to browsers.
func (c *Config) WebRTCICEServers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, s := range c.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}
