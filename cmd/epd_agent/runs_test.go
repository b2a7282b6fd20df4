package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListRunsCommand_MissingDatabaseURL(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "list-runs")
	cmd.Env = envWithout("DATABASE_URL")

	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "DATABASE_URL environment variable or --db-url flag is required")
}

func TestShowRunCommand_MissingRunID(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "show-run")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required flag(s) \"run-id\" not set")
}

func TestShowRunCommand_InvalidRunID(t *testing.T) {
	binaryPath := getBinaryPath(t)

	// The run id is parsed before any database connection is attempted
	cmd := exec.Command(binaryPath, "show-run", "--run-id", "not-a-uuid", "--db-url", "postgres://unused")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "invalid run-id")
}
