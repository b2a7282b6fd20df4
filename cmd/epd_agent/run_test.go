package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleGroupsJSON = `{
  "Projekt": "Testprojekt",
  "Gruppen": [
    {
      "MATERIAL": "AC 16 B S",
      "NAME": "Binderschicht",
      "Volumen": "12,5",
      "GUID": ["3f2a"]
    }
  ]
}`

func writeSampleInput(t *testing.T) string {
	t.Helper()
	inputFile := filepath.Join(t.TempDir(), "input.json")
	err := os.WriteFile(inputFile, []byte(sampleGroupsJSON), 0644)
	assert.NoError(t, err)
	return inputFile
}

func TestRunCommand_MissingInputFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "run")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required flag(s) \"input\" not set")
}

func TestRunCommand_MissingAPIKey(t *testing.T) {
	binaryPath := getBinaryPath(t)

	inputFile := writeSampleInput(t)

	cmd := exec.Command(binaryPath, "run", "--input", inputFile)
	// Clear environment to ensure no API key leaks in from .env
	cmd.Env = envWithout("GEMINI_API_KEY")

	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "GEMINI_API_KEY environment variable or --api-key flag is required")
}

func TestRunCommand_MissingCatalogCredentials(t *testing.T) {
	// With an API key but no catalog credentials the pipeline must start and
	// then fail at catalog loading, not at the key check.
	binaryPath := getBinaryPath(t)

	inputFile := writeSampleInput(t)
	outFile := filepath.Join(t.TempDir(), "output.json")

	cmd := exec.Command(binaryPath, "run",
		"--input", inputFile,
		"--out", outFile,
		"--api-key", "dummy-key")
	cmd.Env = envWithout(
		"ONLINE_EPD_API_BASE_URL",
		"ONLINE_EPD_API_USERNAME",
		"ONLINE_EPD_API_PASSWORD",
		"DATABASE_URL",
	)

	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	// Check that it got past the key check and read the input
	assert.Contains(t, string(output), "Input:")
	assert.Contains(t, string(output), "catalog service credentials are not configured")
}

func TestRunCommand_MalformedInput(t *testing.T) {
	binaryPath := getBinaryPath(t)

	inputFile := filepath.Join(t.TempDir(), "input.json")
	err := os.WriteFile(inputFile, []byte(`{"Gruppen": "not an array"}`), 0644)
	assert.NoError(t, err)

	cmd := exec.Command(binaryPath, "run", "--input", inputFile, "--api-key", "dummy-key")
	output, runErr := cmd.CombinedOutput()

	assert.Error(t, runErr)
	assert.Contains(t, string(output), "\"Gruppen\" is not an array")
}
