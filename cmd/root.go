package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attend",
	Short: "Face recognition attendance service",
	Long: `Face Attend is a face recognition backend for classroom attendance.
It enrolls students from face photos, matches faces in classroom images
against the enrolled registry, and exposes the pipeline over an HTTP API.

Face detection and embedding extraction run in a separate model service;
configure its address with DETECTOR_URL (and optionally EMBEDDER_URL).`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
