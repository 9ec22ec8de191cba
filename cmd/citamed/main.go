package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "citamed",
		Short:         "CitaMed medical appointment service",
		Version:       version,
		SilenceUsage:  true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), bookCmd())
	return root
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
