package kernel

import (
	"context"
	"fmt"
	"strings"

	"kernelforge/internal/config"
	"kernelforge/internal/registry"
	"kernelforge/internal/tools"
)

// registerSubprocessTools exposes the Runner's allow-listed binaries to
// generated nodes through call_tool, one CategorySubprocess tool per
// binary in cfg.AllowedBinaries — the same list the Runner checks before
// every exec, so no second allow-list is kept here.
func registerSubprocessTools(r *tools.Registry, runner *registry.Runner, cfg config.ExecutionConfig) error {
	for _, binary := range cfg.AllowedBinaries {
		binary := binary
		err := r.Register(&tools.Tool{
			Name:        "run_" + binary,
			Description: fmt.Sprintf("Runs the %s binary with the given arguments.", binary),
			Category:    tools.CategorySubprocess,
			Schema: tools.ToolSchema{
				Required: []string{"prompt"},
				Properties: map[string]tools.Property{
					"prompt": {Type: "string", Description: "space-separated arguments"},
				},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				prompt, _ := args["prompt"].(string)
				var fields []string
				if prompt != "" {
					fields = strings.Fields(prompt)
				}
				result, err := runner.Run(ctx, binary, fields, 0)
				if err != nil {
					return "", err
				}
				if result.ExitCode != 0 {
					return result.Stdout, fmt.Errorf("run_%s: exit %d: %s", binary, result.ExitCode, result.Stderr)
				}
				return result.Stdout, nil
			},
		})
		if err != nil {
			return fmt.Errorf("subprocess tool %s: %w", binary, err)
		}
	}
	return nil
}
