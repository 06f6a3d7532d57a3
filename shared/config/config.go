package config

import (
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

// Duration accepts either a Go duration string ("15m") or a bare integer
// number of seconds in yaml.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Public struct {
	ListenPort        int      `yaml:"listen_port"`
	LogLevel          string   `yaml:"log_level"`
	LogJSON           bool     `yaml:"log_json"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	ActivationURL     string   `yaml:"activation_url"`
	ActivationCodeLen int      `yaml:"activation_code_len"`
	ActivationCodeTTL Duration `yaml:"activation_code_ttl"`
	JwtTTL            Duration `yaml:"jwt_ttl"`
	NotifierQueueSize int      `yaml:"notifier_queue_size"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Email struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SenderName string `yaml:"sender_name"`
	Timeout    int    `yaml:"timeout"` // seconds
}

type Private struct {
	JwtKey string `yaml:"jwt_key"`
	Pg     Pg     `yaml:"pg"`
	Email  Email  `yaml:"email"`
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) JwtTTL() time.Duration {
	return c.Public.JwtTTL.Std()
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{public, private}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Public.ListenPort == 0 {
		c.Public.ListenPort = 8080
	}
	if c.Public.ActivationCodeLen == 0 {
		c.Public.ActivationCodeLen = 6
	}
	if c.Public.ActivationCodeTTL == 0 {
		c.Public.ActivationCodeTTL = Duration(15 * time.Minute)
	}
	if c.Public.JwtTTL == 0 {
		c.Public.JwtTTL = Duration(24 * time.Hour)
	}
	if c.Public.NotifierQueueSize == 0 {
		c.Public.NotifierQueueSize = 64
	}
}
