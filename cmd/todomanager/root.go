package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"todomanager/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "todomanager",
	Short: "In-memory todo, project and category REST service",
	Long: `todomanager serves todos, projects and categories over HTTP with JSON
and XML representations. Entities live in memory and are linked by
many-to-many relationships that are removed with either endpoint.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
