// Command kernelctl is the operator CLI for the kernel: submit requests,
// inspect the node registry, list cron entries, and print scheduler
// stats. Grounded on the teacher's cmd/<tool>/main.go + root.go split —
// a thin main that just calls Execute, with every subcommand living in
// its own file under cmd/kernelctl — and on cobra's standard
// root-command-builds-children pattern the teacher already depends on.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
