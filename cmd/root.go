package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the bandavail application
var rootCmd = &cobra.Command{
	Use:   "bandavail",
	Short: "Collects band members' availability into a shared Google Sheet",
	Long: `bandavail lets band members describe when they can or cannot play in
plain language. The statement is parsed into dates by an OpenAI model and the
matching cells of the shared Google Sheet are marked ✓ or ✗.

It can run as:
  - A web application (serve)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)
  - A command-line tool (members, schedule, update)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configPath is the optional YAML or TOML config file.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "bandavail version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or TOML config file. Can also use BANDAVAIL_CONFIG env var.")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newMembersCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
