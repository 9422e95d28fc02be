package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func cronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Inspect the Cron Manager (C3)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every scheduled task",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := bootKernel(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			for _, e := range k.Cron().List(false) {
				status := "enabled"
				if e.Disabled {
					status = "disabled"
				}
				fmt.Printf("%-24s %-20s %-8s errors=%d last_run=%s\n", e.Name, e.Schedule, status, e.ConsecErrors, e.LastRun)
			}
			return nil
		},
	})
	return cmd
}
