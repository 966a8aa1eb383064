package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "tracker-api",
	Short: "Tracks documents submitted to the extraction service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// variables already set in the environment win over the file
		err := godotenv.Load(envFile)
		if err == nil || (errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file")) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Path to a dotenv file with the configuration")
}
