package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-crm/pkg/logger"

	// Register connectors
	_ "github.com/ajitpratap0/nebula-crm/pkg/connector/destinations/crm"
	_ "github.com/ajitpratap0/nebula-crm/pkg/connector/sources/rest"
)

var version = "0.1.0"

const envPrefix = "NEBULA"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Global flags can also be set through
// NEBULA_* environment variables (e.g. NEBULA_LOG_LEVEL).
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "nebula-crm",
		Short: "nebula-crm - move records from paginated APIs into a CRM",
		Long: `nebula-crm reads records from paginated REST and OData APIs and writes them
into a CRM object store as create-or-update operations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:    v.GetString("log-level"),
				Encoding: v.GetString("log-format"),
			})
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "json", "Log encoding (json, console)")
	flags.Bool("trace", false, "Export OpenTelemetry spans to stderr")
	flags.Duration("timeout", 0, "Abort the run after this duration (0 = no limit)")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newVersionCmd(),
		newListCmd(),
		newExtractCmd(v),
		newSyncCmd(v),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nebula-crm v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			r := registry.GetRegistry()
			fmt.Fprintln(out, "Available Source Connectors:")
			for _, meta := range r.Catalog() {
				if meta.Type == core.ConnectorTypeSource {
					fmt.Fprintf(out, "  - %-8s %s\n", meta.Name, meta.Description)
				}
			}
			fmt.Fprintln(out, "\nAvailable Destination Connectors:")
			for _, meta := range r.Catalog() {
				if meta.Type == core.ConnectorTypeDestination {
					fmt.Fprintf(out, "  - %-8s %s\n", meta.Name, meta.Description)
				}
			}
		},
	}
}
