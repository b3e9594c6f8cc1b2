package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile"
	"github.com/spf13/viper"
	"github.com/tidwall/pretty"
)

// ViewerConfig is the resolved configuration of the viewer daemon.
type ViewerConfig struct {
	Server         string `mapstructure:"server"`
	Item           string `mapstructure:"item"`
	Token          string `mapstructure:"token"`
	TilePath       string `mapstructure:"tile_path"`
	PrefetchLevel  int    `mapstructure:"prefetch_level"`
	CacheSize      string `mapstructure:"cache_size"`
	RequestTimeout int    `mapstructure:"request_timeout"`

	CacheBytes int64 `mapstructure:"-"`
}

func (c ViewerConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// LoadViewerConfig reads the viewer settings from viper.
func LoadViewerConfig() (ViewerConfig, error) {
	var cfg ViewerConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Item == "" {
		return cfg, fmt.Errorf("no item configured, set item in the config file or pass --item")
	}

	size, err := bytefmt.ToBytes(cfg.CacheSize)
	if err != nil {
		return cfg, fmt.Errorf("invalid cache_size %q: %w", cfg.CacheSize, err)
	}
	cfg.CacheBytes = int64(size)
	return cfg, nil
}

func CanonicalPath(path string) string {
	if path == "" {
		return ""
	}

	if path == "~" {
		return os.Getenv("HOME")
	}

	if strings.HasPrefix(path, "~/") {
		homeDir := os.Getenv("HOME")
		return strings.Replace(path, "~", homeDir, 1)
	}

	return path
}

func PrintJSONColored(data interface{}) {
	j, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Errorf("Error marshalling JSON: %v", err)
		return
	}

	jPretty := pretty.Color(j, nil)
	log.Info(string(jPretty))
}

func PrintTOML(data map[string]any) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		log.Errorf("Error marshalling TOML: %v", err)
		return
	}
	log.Info("\n" + buf.String())
}

func InstallDefaultConfig() {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}

	configPath := filepath.Join(configDir, "smoothtile", "smoothtile.toml")

	if _, err := os.Stat(configPath); err == nil {
		log.Warnf("Config file already exists at %v", configPath)
		return
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		log.Fatalf("Error creating config directory: %v", err)
	}

	if err := os.WriteFile(configPath, []byte(smoothtile.DefaultConfig), 0644); err != nil {
		log.Fatalf("Error writing config file: %v", err)
	}

	log.Infof("Installed default config file at %v", configPath)
}
