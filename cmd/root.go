package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/dronedispatch/config"
)

var (
	cfgPath string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:          "dronedispatch",
	Short:        "Drone delivery dispatch simulator",
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return loadEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadEnv reads path into the environment. A missing file is not an error.
// Variables already set win over the file.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}
