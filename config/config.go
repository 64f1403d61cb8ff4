package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/segment"
	"github.com/spf13/viper"
)

const envPrefix = "CUTOUT"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Session SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelConfig 外部分割模型服务
type ModelConfig struct {
	Endpoint       string              `mapstructure:"endpoint"`
	LoadTimeout    time.Duration       `mapstructure:"load_timeout"`
	RequestTimeout time.Duration       `mapstructure:"request_timeout"`
	Net            segment.ModelConfig `mapstructure:"net"`
}

// UploadConfig MaxSize 限制上传字节数，MaxPixels 限制解码及缩放后的像素数
type UploadConfig struct {
	MaxSize   int64 `mapstructure:"max_size"`
	MaxPixels int   `mapstructure:"max_pixels"`
}

type SessionConfig struct {
	IdleTTL   time.Duration `mapstructure:"idle_ttl"`
	SweepSpec string        `mapstructure:"sweep_spec"`
}

// Load 从 YAML 文件加载配置，环境变量 CUTOUT_* 优先
// 文件不存在时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func (c *Config) Validate() error {
	if c.Model.Endpoint == "" {
		return errors.New("model.endpoint is required")
	}
	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be positive")
	}
	if c.Upload.MaxPixels <= 0 {
		return errors.New("upload.max_pixels must be positive")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" && c.Server.Mode != "test" {
		return fmt.Errorf("server.mode %q is not one of debug, release, test", c.Server.Mode)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("model.endpoint", d.Model.Endpoint)
	v.SetDefault("model.load_timeout", d.Model.LoadTimeout)
	v.SetDefault("model.request_timeout", d.Model.RequestTimeout)
	v.SetDefault("model.net.architecture", d.Model.Net.Architecture)
	v.SetDefault("model.net.output_stride", d.Model.Net.OutputStride)
	v.SetDefault("model.net.multiplier", d.Model.Net.Multiplier)
	v.SetDefault("model.net.quant_bytes", d.Model.Net.QuantBytes)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.max_pixels", d.Upload.MaxPixels)

	v.SetDefault("session.idle_ttl", d.Session.IdleTTL)
	v.SetDefault("session.sweep_spec", d.Session.SweepSpec)
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			Mode:            "debug",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			Endpoint:       "http://127.0.0.1:8501",
			LoadTimeout:    2 * time.Minute,
			RequestTimeout: time.Minute,
			Net:            segment.DefaultModelConfig(),
		},
		Upload: UploadConfig{
			MaxSize:   10 * 1024 * 1024,
			MaxPixels: matting.DefaultMaxPixels,
		},
		Session: SessionConfig{
			IdleTTL:   30 * time.Minute,
			SweepSpec: "@every 1m",
		},
	}
}
