package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bnema/hangar/internal/config"
)

const redacted = "<redacted>"

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, viper.New())
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(redact(*cfg))
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	return cmd
}

// redact hides secrets from a configuration copy.
func redact(cfg config.Config) config.Config {
	if cfg.Auth.TokenSecret != "" {
		cfg.Auth.TokenSecret = redacted
	}
	if cfg.RateLimit.RedisPassword != "" {
		cfg.RateLimit.RedisPassword = redacted
	}

	users := make([]config.UserConfig, len(cfg.Auth.Users))
	for i, u := range cfg.Auth.Users {
		users[i] = config.UserConfig{Username: u.Username, PasswordHash: redacted}
	}
	cfg.Auth.Users = users

	return cfg
}
