package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/recruitflow/internal/app"
	"github.com/foxzi/recruitflow/internal/config"
	"github.com/foxzi/recruitflow/internal/repository"
	apitls "github.com/foxzi/recruitflow/internal/tls"
)

var (
	cfgFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "recruitflow",
	Short: "RecruitFlow - recruiting campaign studio",
	Long:  `RecruitFlow turns a recruiter conversation into a multi-step email campaign.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing campaign database tables",
	RunE:  runMigrate,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recruitflow version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, configCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use -c flag)")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, version, app.Options{})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := repository.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Database is up to date: %s\n", cfg.Database.Path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  API: %s (%d keys)\n", cfg.API.ListenAddr, len(cfg.API.Keys))
	switch {
	case cfg.API.TLS.ACME.Enabled:
		fmt.Printf("  TLS: ACME for %v\n", cfg.API.TLS.ACME.Domains)
	case cfg.API.TLS.CertFile != "":
		info, err := apitls.ReadCertificateInfo(cfg.API.TLS.CertFile)
		if err != nil {
			return fmt.Errorf("api.tls.cert_file: %w", err)
		}
		fmt.Printf("  TLS: %s, expires in %d days\n", info.Subject, info.DaysLeft)
	}
	fmt.Printf("  LLM provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Database: %s\n", cfg.Database.Path)
	fmt.Printf("  Storage: %s\n", cfg.Storage.Path)
	if cfg.SMTP.Host != "" {
		fmt.Printf("  SMTP relay: %s:%d (%s)\n", cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.TLS)
	} else {
		fmt.Printf("  SMTP relay: disabled\n")
	}
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics: %s%s\n", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}

	return nil
}
