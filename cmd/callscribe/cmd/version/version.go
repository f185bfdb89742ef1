package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "v0.1.0"

var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print the callscribe version",
	Run: func(*cobra.Command, []string) {
		fmt.Println("callscribe", version)
	},
}
