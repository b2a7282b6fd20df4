// Package main provides the entry point for the EPD matcher CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "epd_agent",
	Short: "EPD Matcher CLI",
	Long:  "EPD Matcher assigns environmental product declarations to construction material line items: it extracts material contexts, decodes standardized designations, filters the EPD catalog and lets an LLM pick the best matches with validated confidence scores.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
