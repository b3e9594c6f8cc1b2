package cli

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/cli/cmd/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(utils.CanonicalPath(cfgFile))
	} else {
		viper.SetConfigName("smoothtile")
		viper.SetConfigType("toml")
		viper.AddConfigPath("$HOME/.config/smoothtile")
		viper.AddConfigPath("/etc/xdg/smoothtile")
	}

	viper.SetDefault("server", "http://localhost:8080/api/v1")
	viper.SetDefault("item", "")
	viper.SetDefault("token", "")
	viper.SetDefault("tile_path", "tiles/zxy/{z}/{x}/{y}")
	viper.SetDefault("prefetch_level", 0)
	viper.SetDefault("cache_size", "64MB")
	viper.SetDefault("request_timeout", 30)
	viper.SetDefault("debug", false)

	viper.SetEnvPrefix("smoothtile")
	viper.AutomaticEnv() // read environment variables that match

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		log.Debug("No config file found, using defaults")
	} else {
		cobra.CheckErr(err)
	}

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
}
