package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	simple "github.com/roostdev/roost/internal/configurations"
	"github.com/roostdev/roost/internal/device"
	"github.com/roostdev/roost/internal/logging"
	"github.com/roostdev/roost/internal/setup"
)

const defaultLogLevel = "warning"

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)

	logger := logging.NewCLI(os.Stderr, &levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger, &levelVar)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("command interrupted", "error", err)
			os.Exit(130)
		}
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger, levelVar *slog.LevelVar) *cobra.Command {
	setup.SetLogger(logger.With("component", "setup"))

	logLevel := defaultLogLevel
	configPath := ""

	root := &cobra.Command{
		Use:           "roost",
		Short:         "CLI for 'roost': on-demand provisioning of virtual devices",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to the roost configuration file")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			return err
		}
		if levelVar != nil {
			levelVar.Set(level)
		}
		return nil
	}

	root.AddCommand(
		newProvisionCommand(logger, &configPath),
		newDevicesCommand(&configPath),
		newProfilesCommand(&configPath),
		newImagesCommand(&configPath),
		newVerifyCommand(&configPath),
	)
	return root
}

func newProvisionCommand(logger *slog.Logger, configPath *string) *cobra.Command {
	var imageID, deviceName, profileName string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a virtual device, reusing it if it already exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup.Load(*configPath)
			if err != nil {
				return err
			}

			configDir, err := simple.Provision(cfg, device.ProvisioningRequest{
				ImageID:             imageID,
				DeviceName:          deviceName,
				HardwareProfileName: profileName,
			}, logger)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), configDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&imageID, "image", "", "Identifier of the installed system image")
	cmd.Flags().StringVar(&deviceName, "name", "", "Unique device name")
	cmd.Flags().StringVar(&profileName, "profile", "", "Display name of the hardware profile")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("profile")
	return cmd
}

func newDevicesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List provisioned device instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup.Load(*configPath)
			if err != nil {
				return err
			}

			records, err := simple.ListInstances(cfg)
			if err != nil {
				return err
			}
			for _, record := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", record.DeviceName, record.ImageID, record.ConfigDir)
			}
			return nil
		},
	}
}

func newProfilesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List available hardware profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup.Load(*configPath)
			if err != nil {
				return err
			}

			profiles, err := simple.ListProfiles(cfg)
			if err != nil {
				return err
			}
			for _, profile := range profiles {
				playStore := ""
				if profile.SupportsPlayStore {
					playStore = "\t(play store)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", profile.DisplayName, playStore)
			}
			return nil
		},
	}
}

func newImagesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List installed system images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup.Load(*configPath)
			if err != nil {
				return err
			}

			ids, err := simple.ListImages(cfg)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newVerifyCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify that the configured SDK and image locations exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup.Load(*configPath)
			if err != nil {
				return err
			}
			return setup.Verify(cfg)
		},
	}
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", value)
	}
}
