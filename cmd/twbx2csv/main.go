// Command twbx2csv converts the extract of a local Tableau packaged workbook
// into CSV files without going through object storage.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "twbx2csv",
	Short:         "Export the tables of a Tableau .twbx extract to CSV",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newExtractCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
