package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/hangar/internal/app"
	"github.com/bnema/hangar/internal/logging"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, v)
			if err != nil {
				return err
			}

			log, closeLog, err := logging.Setup(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer closeLog()

			if used := v.ConfigFileUsed(); used != "" {
				log.Info().Str("file", used).Msg("using config file")
			}

			a, err := app.New(cfg, log)
			if err != nil {
				log.Error().Err(err).Msg("failed to initialize registry")
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to release resources")
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.Run(ctx); err != nil {
				log.Error().Err(err).Msg("registry stopped with error")
				return err
			}
			log.Info().Msg("registry stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().String("storage", "", "storage backend: filesystem, memory, bolt or sqlite")
	cmd.Flags().String("data-dir", "", "data directory (overrides storage.data_dir)")
	cmd.Flags().String("log-level", "", "log level (overrides logging.level)")
	bindFlag(v, "server.addr", cmd, "addr")
	bindFlag(v, "storage.backend", cmd, "storage")
	bindFlag(v, "storage.data_dir", cmd, "data-dir")
	bindFlag(v, "logging.level", cmd, "log-level")

	return cmd
}

// bindFlag lets an explicitly set flag override key. Unset flags leave the
// config file, environment and defaults in charge.
func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	cobra.CheckErr(v.BindPFlag(key, cmd.Flags().Lookup(name)))
}
