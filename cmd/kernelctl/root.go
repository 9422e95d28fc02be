package main

import (
	"context"
	"fmt"

	"kernelforge/internal/config"
	"kernelforge/internal/kernel"
	"kernelforge/internal/logging"

	"github.com/spf13/cobra"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kernelctl",
		Short: "Operate the kernelforge execution kernel",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "kernel.yaml", "path to the kernel's YAML configuration")

	cmd.AddCommand(submitCmd())
	cmd.AddCommand(registryCmd())
	cmd.AddCommand(cronCmd())
	cmd.AddCommand(statsCmd())
	cmd.AddCommand(serveCmd())
	return cmd
}

// bootKernel loads configuration and constructs a Kernel, shared by every
// subcommand that needs to talk to the running system.
func bootKernel(ctx context.Context) (*kernel.Kernel, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logging.Initialize(logging.Options{Level: logging.Level(cfg.Logging.Level), Development: cfg.Logging.Development}); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	return kernel.New(ctx, cfg)
}
