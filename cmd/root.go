package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sihrunner",
	Short: "Load SIH-RD hospital reimbursement reports into BigQuery",
	Long:  `Fetch SIH-RD reimbursement report files from the DATASUS public archive, decode them, optionally stage them as parquet in object storage, and load the rows into BigQuery.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
