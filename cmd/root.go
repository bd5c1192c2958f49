// Package cmd implements the hangar command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/hangar/internal/app"
	"github.com/bnema/hangar/internal/config"
)

type rootOptions struct {
	cfgFile string
	envFile string
}

// Execute runs the hangar command line with the given build information.
func Execute(version, commit, date string) {
	if version != "" {
		app.BuildVersion = version
	}
	if commit != "" {
		app.BuildCommit = commit
	}
	if date != "" {
		app.BuildDate = date
	}

	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "hangar",
		Short: "Hangar - OCI container registry",
		Long: `Hangar is a single-binary container registry implementing the
OCI Distribution API, with pluggable storage backends.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./hangar.toml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newVersionCommand())

	return root
}

// loadConfig reads the config file, the dotenv file and HANGAR_* overrides.
// Flags bound on v take precedence over all of them.
func loadConfig(opts *rootOptions, v *viper.Viper) (*config.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", opts.envFile, err)
		}
	}

	if opts.cfgFile != "" {
		v.SetConfigFile(opts.cfgFile)
	} else {
		v.SetConfigName("hangar")
		v.SetConfigType("toml")
		for _, dir := range configSearchPaths() {
			v.AddConfigPath(dir)
		}
	}
	config.BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return config.Load(v)
}

// configSearchPaths lists where hangar.toml is looked up, highest priority first.
func configSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "hangar"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".hangar"))
	}
	return append(paths, "/etc/hangar")
}
