package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and provider information",
	Run: func(cmd *cobra.Command, _ []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "loom %s\n", AppVersion)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Providers:")
	fmt.Fprintf(w, "  GEMINI_API_KEY: %s\n", keyStatus(os.Getenv("GEMINI_API_KEY")))
	fmt.Fprintf(w, "  OPENAI_API_KEY: %s\n", keyStatus(os.Getenv("OPENAI_API_KEY")))
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("OPENAI_API_KEY") == "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No API key set: generation falls back to the mock provider.")
		fmt.Fprintln(w, "  export GEMINI_API_KEY=your-api-key")
	}
}

// keyStatus reports presence without echoing key material.
func keyStatus(key string) string {
	if key == "" {
		return "not set"
	}
	return "configured"
}
