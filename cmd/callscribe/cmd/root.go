package cmd

import (
	"fmt"
	"os"

	"callscribe/cmd/callscribe/cmd/call"
	"callscribe/cmd/callscribe/cmd/serve"
	"callscribe/cmd/callscribe/cmd/transcribe"
	"callscribe/cmd/callscribe/cmd/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "callscribe",
	Short: "Place outbound calls, record them, and transcribe the recordings",
	Long: `callscribe dials a batch of phone numbers, plays an audio prompt to
whoever answers, records the call, transcribes the recording, and appends
one row per completed call to an output file.`,
	SilenceUsage: true,
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "enable debug logging")

	rootCmd.AddCommand(call.Cmd)
	rootCmd.AddCommand(transcribe.Cmd)
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(version.Cmd)
}
