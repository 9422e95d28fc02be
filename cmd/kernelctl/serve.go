package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and background dispatcher until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			k, err := bootKernel(ctx)
			if err != nil {
				return err
			}
			defer k.Close()

			k.StartBackground(ctx)
			fmt.Println("kernel running, press ctrl-c to stop")
			<-ctx.Done()
			return nil
		},
	}
}
