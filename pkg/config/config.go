// pkg/config/config.go

// Package config loads tool settings from an optional config file, the
// MOBIPREV_* environment, and built-in defaults, in that order of
// precedence (viper semantics).
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Settings is the full runtime configuration of the tool.
type Settings struct {
	IOS     IOSSettings     `mapstructure:"ios"`
	Android AndroidSettings `mapstructure:"android"`
	Boot    BootSettings    `mapstructure:"boot"`
	Server  ServerSettings  `mapstructure:"server"`
}

// IOSSettings configures simulator discovery and requirements.
type IOSSettings struct {
	// SupportedRuntimes matches the <ID> suffix of
	// com.apple.CoreSimulator.SimRuntime.<ID> keys.
	SupportedRuntimes string `mapstructure:"supported_runtimes"`
	MinMacOSVersion   string `mapstructure:"min_macos_version"`
	DefaultDeviceType string `mapstructure:"default_device_type"`
}

// AndroidSettings configures emulator discovery and requirements.
type AndroidSettings struct {
	MinAPILevel        int    `mapstructure:"min_api_level"`
	PreferredABI       string `mapstructure:"preferred_abi"`
	PreferredImageTag  string `mapstructure:"preferred_image_tag"`
	MinSDKToolsVersion string `mapstructure:"min_sdk_tools_version"`
	DefaultDevice      string `mapstructure:"default_device"`
	PortRangeStart     int    `mapstructure:"port_range_start"`
	PortRangeEnd       int    `mapstructure:"port_range_end"`
}

// BootSettings bounds the boot poll loop.
type BootSettings struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// ServerSettings configures the companion local web server.
type ServerSettings struct {
	Port          int    `mapstructure:"port"`
	PluginPackage string `mapstructure:"plugin_package"`
}

// Defaults returns the built-in settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		IOS: IOSSettings{
			SupportedRuntimes: `^iOS-1[3-9](-\d+)*$`,
			MinMacOSVersion:   "11.0.0",
			DefaultDeviceType: "iPhone 15",
		},
		Android: AndroidSettings{
			MinAPILevel:        23,
			PreferredABI:       "x86_64",
			PreferredImageTag:  "google_apis",
			MinSDKToolsVersion: "6.0",
			DefaultDevice:      "pixel_5",
			PortRangeStart:     5554,
			PortRangeEnd:       5682,
		},
		Boot: BootSettings{
			PollInterval: 2 * time.Second,
			MaxAttempts:  60,
		},
		Server: ServerSettings{
			Port:          3333,
			PluginPackage: "@fernwave/mobiprev-server",
		},
	}
}

// Load reads ~/.mobiprev/config.yaml (or ./config.yaml) plus the
// MOBIPREV_* environment over the defaults. A missing config file is
// not an error.
func Load(log *zap.Logger) (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".mobiprev"))
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("MOBIPREV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, Defaults())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !cerr.As(err, &notFound) {
			return nil, cerr.Wrap(err, "failed to read config file")
		}
	} else {
		log.Debug("Loaded config file", zap.String("path", v.ConfigFileUsed()))
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, cerr.Wrap(err, "failed to decode config")
	}
	return &s, nil
}

// ResolveServerPort picks the dev server port: an explicit flag wins,
// then SERVER_PORT from the project's .env, then the configured default.
func ResolveServerPort(log *zap.Logger, s *Settings, projectDir string, flagPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	if projectDir != "" {
		envPath := filepath.Join(projectDir, ".env")
		if env, err := godotenv.Read(envPath); err == nil {
			if raw, ok := env["SERVER_PORT"]; ok {
				if port, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && port > 0 {
					log.Debug("Using dev server port from project .env",
						zap.String("path", envPath),
						zap.Int("port", port),
					)
					return port
				}
			}
		}
	}
	return s.Server.Port
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("ios.supported_runtimes", d.IOS.SupportedRuntimes)
	v.SetDefault("ios.min_macos_version", d.IOS.MinMacOSVersion)
	v.SetDefault("ios.default_device_type", d.IOS.DefaultDeviceType)
	v.SetDefault("android.min_api_level", d.Android.MinAPILevel)
	v.SetDefault("android.preferred_abi", d.Android.PreferredABI)
	v.SetDefault("android.preferred_image_tag", d.Android.PreferredImageTag)
	v.SetDefault("android.min_sdk_tools_version", d.Android.MinSDKToolsVersion)
	v.SetDefault("android.default_device", d.Android.DefaultDevice)
	v.SetDefault("android.port_range_start", d.Android.PortRangeStart)
	v.SetDefault("android.port_range_end", d.Android.PortRangeEnd)
	v.SetDefault("boot.poll_interval", d.Boot.PollInterval)
	v.SetDefault("boot.max_attempts", d.Boot.MaxAttempts)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.plugin_package", d.Server.PluginPackage)
}
