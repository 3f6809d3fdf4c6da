// Package config loads bot configuration from a yaml config file and
// environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fivestack/lobbybot/pkg/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var ErrReadConfig = errors.New("failed to read config file")

type GeneralConfig struct {
	Game       string `mapstructure:"game"`
	MaxPlayers int    `mapstructure:"max_players"`
	DataDir    string `mapstructure:"data_dir"`
}

type DiscordConfig struct {
	Token         string `mapstructure:"token"`
	AppID         string `mapstructure:"app_id"`
	GuildID       string `mapstructure:"guild_id"`
	BumpChannelID string `mapstructure:"bump_channel_id"`
}

// LobbyConfig carries every lifecycle window. Durations accept the usual
// go syntax ("5m", "6h").
type LobbyConfig struct {
	ForceStartWindow   time.Duration `mapstructure:"force_start_window"`
	ReadyCheckWindow   time.Duration `mapstructure:"ready_check_window"`
	BumpInterval       time.Duration `mapstructure:"bump_interval"`
	FillerInviteWindow time.Duration `mapstructure:"filler_invite_window"`
	ASAPCloseAfter     time.Duration `mapstructure:"asap_close_after"`
	ScheduledGrace     time.Duration `mapstructure:"scheduled_grace"`
	ActiveCloseAfter   time.Duration `mapstructure:"active_close_after"`
	QuorumFraction     float64       `mapstructure:"quorum_fraction"`
	QuorumSmallGroup   int           `mapstructure:"quorum_small_group"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type Config struct {
	General GeneralConfig `mapstructure:"general"`
	Discord DiscordConfig `mapstructure:"discord"`
	Lobby   LobbyConfig   `mapstructure:"lobby"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
}

func (c Config) LogLevel() log.Level {
	return log.Level(c.Log.Level)
}

// Read loads the config file and env overrides. With an empty cfgFile the
// default search path (home dir, then cwd) is used; a missing file there is
// not an error, defaults apply.
func Read(cfgFile string) (Config, error) {
	var config Config

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, errHome := homedir.Dir()
		if errHome == nil {
			viper.AddConfigPath(home)
		}

		viper.AddConfigPath(".")
		viper.SetConfigName("lobbybot")
	}

	viper.SetEnvPrefix("lobbybot")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if errRead := viper.ReadInConfig(); errRead != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(errRead, &notFound) {
			return config, fmt.Errorf("%w: %s", ErrReadConfig, errRead.Error())
		}
	}

	if errUnmarshal := viper.Unmarshal(&config); errUnmarshal != nil {
		return config, fmt.Errorf("%w: %s", ErrReadConfig, errUnmarshal.Error())
	}

	return config, nil
}

//nolint:gochecknoinits
func init() {
	viper.SetDefault("general.game", "game")
	viper.SetDefault("general.max_players", 5)
	viper.SetDefault("general.data_dir", ".lobbybot")

	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.app_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.bump_channel_id", "")

	viper.SetDefault("lobby.force_start_window", time.Minute)
	viper.SetDefault("lobby.ready_check_window", time.Minute*5)
	viper.SetDefault("lobby.bump_interval", time.Minute*5)
	viper.SetDefault("lobby.filler_invite_window", time.Minute*5)
	viper.SetDefault("lobby.asap_close_after", time.Hour*6)
	viper.SetDefault("lobby.scheduled_grace", time.Hour*3)
	viper.SetDefault("lobby.active_close_after", time.Hour*6)
	viper.SetDefault("lobby.quorum_fraction", 0.5)
	viper.SetDefault("lobby.quorum_small_group", 3)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", "127.0.0.1:6060")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")

	viper.SetDefault("sentry.dsn", "")
}
