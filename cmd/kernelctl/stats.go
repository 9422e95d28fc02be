package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the Scheduler's (C2) current queue and throughput snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := bootKernel(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			s := k.Scheduler().Stats()
			fmt.Printf("queued=%d running=%d completed=%d failed=%d\n", s.Queued, s.Running, s.Completed, s.Failed)
			return nil
		},
	}
}
