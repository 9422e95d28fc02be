package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit [request...]",
		Short: "Submit a natural-language request to the generation pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := bootKernel(cmd.Context())
			if err != nil {
				return err
			}
			defer k.Close()

			result, err := k.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if result.Reused {
				fmt.Printf("reused artifact %s\n", result.NodeName)
			} else {
				fmt.Printf("synthesized %d step(s), last node %s (repaired=%t)\n", result.Steps, result.NodeName, result.Repaired)
			}
			fmt.Println(result.Code)
			return nil
		},
	}
}
