package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCommand_MissingDatabaseURL(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "serve")
	cmd.Env = envWithout("DATABASE_URL")

	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "DATABASE_URL environment variable is required")
}

func TestServeCommand_MissingAPIKey(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "serve")
	cmd.Env = append(envWithout("GEMINI_API_KEY", "DATABASE_URL"),
		"DATABASE_URL=postgres://localhost/epd_matcher_test")

	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "GEMINI_API_KEY environment variable is required")
}
