// Package main provides the World Monitor shell entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koala73/worldmonitor-desktop/internal/app"
	"github.com/koala73/worldmonitor-desktop/internal/appdir"
	"github.com/koala73/worldmonitor-desktop/internal/cli/ctl"
	"github.com/koala73/worldmonitor-desktop/internal/config"
	"github.com/koala73/worldmonitor-desktop/internal/logging"
	"github.com/koala73/worldmonitor-desktop/internal/version"
)

var (
	configFile string

	// Config init flags
	initOutput string
	initForce  bool

	rootCmd = &cobra.Command{
		Use:   "worldmonitor",
		Short: "World Monitor desktop shell",
		Long:  `World Monitor shell supervises the local data service, guards its secrets, and exposes a local control API.`,
		RunE:  run,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: config.yaml in the app data dir)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Full())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg := config.DefaultDesktopConfig()
			if err := config.LoadAndValidate(path, &cfg); err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}
			fmt.Println("Configuration is valid")
			return nil
		},
	})

	rootCmd.AddCommand(ctl.NewCommands())

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a commented default configuration file",
		RunE:  runConfigInit,
	}
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "output file path (default: config.yaml in the app data dir)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing file")

	configCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
}

// resolveConfigPath returns the effective config path and whether the caller
// named it explicitly.
func resolveConfigPath() (string, bool, error) {
	if configFile != "" {
		return configFile, true, nil
	}
	dataDir, err := appdir.DataDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve app data dir: %w", err)
	}
	return filepath.Join(dataDir, "config.yaml"), false, nil
}

func loadConfig() (*config.DesktopConfig, error) {
	path, explicit, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultDesktopConfig()
	if _, statErr := os.Stat(path); statErr != nil {
		if explicit {
			return nil, fmt.Errorf("load config: %w", statErr)
		}
		// No config file yet; run with defaults.
		return &cfg, nil
	}

	if err := config.LoadAndValidate(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("create shell: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.Info("received signal", "signal", sig)
		a.Shutdown()
	}()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start shell: %w", err)
	}

	// The tray loop must own the main goroutine on macOS. It returns when
	// the shell shuts down.
	a.RunTray(ctx)
	a.Wait()
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	output := initOutput
	if output == "" {
		dataDir, err := appdir.DataDir()
		if err != nil {
			return fmt.Errorf("resolve app data dir: %w", err)
		}
		output = filepath.Join(dataDir, "config.yaml")
	}

	if !initForce {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("file %s already exists (use --force to overwrite)", output)
		}
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(output, []byte(config.DefaultDesktopConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Generated configuration: %s\n\n", output)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Review and customize the configuration\n")
	fmt.Printf("  2. Start the shell: worldmonitor -c %s\n", output)

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
