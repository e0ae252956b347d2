package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"storefront-bff/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "storefront-gateway",
	Short: "Backend-for-frontend for the storefront",
	Long: "storefront-gateway keeps per-visitor cart, checkout, session and notification\n" +
		"state and fronts the remote storefront REST API.",
	SilenceUsage: true,
	RunE:         runServe,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg.JWTSecret = "<redacted>"
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("STOREFRONT_CONFIG"),
		"YAML file overlaying environment settings")
	rootCmd.AddCommand(configCmd)
	rootCmd.Version = version
}
