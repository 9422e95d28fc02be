package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the Node Registry (C5)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every registered node",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := bootKernel(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			for _, n := range k.Registry().All() {
				fmt.Printf("%-32s %-8s %s\n", n.Name, n.Language, n.Path)
			}
			return nil
		},
	})
	return cmd
}
