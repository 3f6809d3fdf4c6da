package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fivestack/lobbybot/internal/config"
	"github.com/fivestack/lobbybot/internal/discord"
	"github.com/fivestack/lobbybot/internal/images"
	"github.com/fivestack/lobbybot/internal/lobby"
	"github.com/fivestack/lobbybot/internal/metrics"
	"github.com/fivestack/lobbybot/internal/timezone"
	"github.com/fivestack/lobbybot/pkg/log"
)

func lobbySettings(conf config.LobbyConfig, bumpChannelID string) lobby.Settings {
	return lobby.Settings{
		ForceStartWindow:   conf.ForceStartWindow,
		ReadyCheckWindow:   conf.ReadyCheckWindow,
		BumpInterval:       conf.BumpInterval,
		FillerInviteWindow: conf.FillerInviteWindow,
		ASAPCloseAfter:     conf.ASAPCloseAfter,
		ScheduledGrace:     conf.ScheduledGrace,
		ActiveCloseAfter:   conf.ActiveCloseAfter,
		QuorumFraction:     conf.QuorumFraction,
		QuorumSmallGroup:   conf.QuorumSmallGroup,
		BumpChannelID:      bumpChannelID,
	}
}

// serveCmd wires everything together and runs the bot until interrupted.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the lobby bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conf, errConfig := config.Read(cfgFile)
			if errConfig != nil {
				return errConfig
			}

			useSentry := conf.Sentry.DSN != ""
			if useSentry {
				if errSentry := sentry.Init(sentry.ClientOptions{
					Dsn:     conf.Sentry.DSN,
					Release: BuildVersion,
				}); errSentry != nil {
					useSentry = false
				} else {
					defer sentry.Flush(time.Second * 2)
				}
			}

			logCloser := log.MustCreateLogger(ctx, conf.Log.File, conf.LogLevel(), useSentry, BuildVersion)
			defer logCloser()

			timezones := timezone.NewStore(filepath.Join(conf.General.DataDir, "users"), time.Now)

			imagePool, errImages := images.NewStore(filepath.Join(conf.General.DataDir, "lobby_imgs.json"))
			if errImages != nil {
				return errImages
			}

			bot, errBot := discord.New(conf.Discord, conf.General, timezones, imagePool, BuildVersion)
			if errBot != nil {
				return errBot
			}

			registry := lobby.NewRegistry(time.Now)
			coordinator := lobby.NewCoordinator(registry, bot, lobby.SystemClock(),
				lobbySettings(conf.Lobby, conf.Discord.BumpChannelID))
			bot.BindCoordinator(coordinator)

			group, groupCtx := errgroup.WithContext(ctx)

			if conf.Metrics.Enabled {
				group.Go(func() error {
					return metrics.Serve(groupCtx, conf.Metrics.Addr)
				})
			}

			if errStart := bot.Start(groupCtx); errStart != nil {
				return errStart
			}

			defer bot.Shutdown()

			slog.Info("Bot started", slog.String("version", BuildVersion))

			group.Go(func() error {
				<-groupCtx.Done()

				return nil
			})

			return group.Wait()
		},
	}
}
