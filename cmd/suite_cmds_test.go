// File: cmd/suite_cmds_test.go
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCmd(t *testing.T) {
	t.Run("builtin suites are valid", func(t *testing.T) {
		resetForTest(t)
		out, err := executeCommand(t, defaultDependencies(), "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "builtin:saucedemo: OK (13 scenarios)")
	})

	t.Run("reports every problem with its location", func(t *testing.T) {
		dir := resetForTest(t)
		good := writeFile(t, dir, "good.yaml", titleSuite)
		bad := writeFile(t, dir, "bad.yaml", `
name: broken
scenarios:
  - name: one
    steps:
      - click: "#a"
        fill: {selector: "#b", text: x}
  - name: one
    steps: []
`)
		out, err := executeCommand(t, defaultDependencies(), "validate", good, bad)
		require.Error(t, err)

		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 1, exitErr.Code)
		assert.Equal(t, "1 of 2 suites are invalid", exitErr.Message)

		assert.Contains(t, out, good+": OK (2 scenarios)")
		assert.Contains(t, out, bad+":")
		assert.Contains(t, out, "scenarios[0].steps[0]")
	})

	t.Run("unreadable file", func(t *testing.T) {
		resetForTest(t)
		out, err := executeCommand(t, defaultDependencies(), "validate", "nope.yaml")
		require.Error(t, err)
		assert.Contains(t, out, "open suite")
	})
}

func TestListCmd(t *testing.T) {
	t.Run("builtin", func(t *testing.T) {
		resetForTest(t)
		out, err := executeCommand(t, defaultDependencies(), "list", "--filter", "(?i)cart")
		require.NoError(t, err)
		assert.Contains(t, out, "Suite saucedemo (builtin:saucedemo)")
		assert.Contains(t, out, "SCENARIO")
		assert.NotContains(t, out, "Page Title")
	})

	t.Run("file with steps", func(t *testing.T) {
		dir := resetForTest(t)
		p := writeFile(t, dir, "suite.yaml", titleSuite)
		out, err := executeCommand(t, defaultDependencies(), "list", p, "--steps")
		require.NoError(t, err)
		assert.Contains(t, out, "home title")
		assert.Contains(t, out, `NAVIGATE("https://shop.test/")`)
		assert.Contains(t, out, "expect")
	})

	t.Run("base url override", func(t *testing.T) {
		dir := resetForTest(t)
		p := writeFile(t, dir, "suite.yaml", titleSuite)
		out, err := executeCommand(t, defaultDependencies(), "list", p, "--steps", "--base-url", "http://localhost:8080/")
		require.NoError(t, err)
		assert.Contains(t, out, `NAVIGATE("http://localhost:8080/landing")`)
	})
}

func TestSchemaCmd(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		resetForTest(t)
		out, err := executeCommand(t, defaultDependencies(), "schema")
		require.NoError(t, err)

		var doc map[string]interface{}
		require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "Scenario Suite v1", doc["title"])
	})

	t.Run("file", func(t *testing.T) {
		dir := resetForTest(t)
		p := filepath.Join(dir, "suite.schema.json")
		_, err := executeCommand(t, defaultDependencies(), "schema", "-o", p)
		require.NoError(t, err)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), "scenario-cli suite YAML")
	})
}
