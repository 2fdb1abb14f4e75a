// Package main provides the entry point for the recall CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/recall-notes/recall/cmd/recall/cmd"
)

func main() {
	// A .env in the working directory may carry OPENAI_API_KEY or
	// RECALL_* overrides; absence is fine.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
