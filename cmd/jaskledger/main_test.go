package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testRefData = `
accounts:
  - name: Conta
    type: checking
    initial_balance: 1000
budgets:
  - category: Food
    limit: 300
    month: 1
    year: 2024
rules:
  - pattern: CONTINENTE
    pattern_type: contains
    category: Food
    subcategory: Groceries
    confidence: 0.9
`

const testStatement = `15/01/2024 CONTINENTE LISBOA -45,80
2024-01-15;SALARIO;2800.00
Saldo final
`

// run executes the CLI in-process. Commands share package state, so these
// tests do not run in parallel.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ref := filepath.Join(dir, "refdata.yaml")
	require.NoError(t, os.WriteFile(ref, []byte(testRefData), 0o600))
	cfg := filepath.Join(dir, "config.toml")
	data := "[database]\npath = \"" + filepath.Join(dir, "ledger.db") + "\"\nsnapshot = true\n\n" +
		"[refdata]\npath = \"" + ref + "\"\n\n[log]\nlevel = \"error\"\n"
	require.NoError(t, os.WriteFile(cfg, []byte(data), 0o600))
	return cfg
}

func TestImportCommitsAndPersists(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, testStatement, "--config", cfg, "import", "--account", "Conta", "--yes")
	require.NoError(t, err)
	require.Contains(t, out, "imported 2, skipped 0")

	out, err = run(t, "", "--config", cfg, "balances")
	require.NoError(t, err)
	require.Contains(t, out, "Conta")
	require.Contains(t, out, "3754.20")

	out, err = run(t, "", "--config", cfg, "budgets", "--month", "2024-01")
	require.NoError(t, err)
	require.Contains(t, out, "45.80")
	require.Contains(t, out, "254.20")

	out, err = run(t, "", "--config", cfg, "summary", "--month", "2024-01")
	require.NoError(t, err)
	require.Contains(t, out, "2754.20")

	out, err = run(t, "", "--config", cfg, "verify")
	require.NoError(t, err)
	require.Contains(t, out, "ok")

	// The same statement again is all duplicates.
	out, err = run(t, testStatement, "--config", cfg, "import", "--account", "Conta", "--yes")
	require.NoError(t, err)
	require.Contains(t, out, "imported 0, skipped 2")

	_, err = run(t, "", "--config", cfg, "reset", "--yes")
	require.NoError(t, err)
	out, err = run(t, "", "--config", cfg, "balances")
	require.NoError(t, err)
	require.Contains(t, out, "1000.00")
}

func TestImportUnknownAccount(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, testStatement, "--config", cfg, "import", "--account", "Nope", "--yes")
	require.ErrorContains(t, err, `account "Nope"`)
}

func TestCategorizeCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "", "--config", cfg, "categorize", "COMPRA", "CONTINENTE", "PORTO")
	require.NoError(t, err)
	require.Contains(t, out, "category:   Food")
	require.Contains(t, out, "Groceries")
	require.Contains(t, out, "90%")

	out, err = run(t, "", "--config", cfg, "categorize", "XYZ")
	require.NoError(t, err)
	require.Contains(t, out, "no suggestion")
}

func TestConfigInit(t *testing.T) {
	t.Cleanup(func() { configForce = false })
	path := filepath.Join(t.TempDir(), "conf", "config.toml")

	out, err := run(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "similarity_threshold")
	require.Contains(t, string(data), "console")

	_, err = run(t, "", "--config", path, "config", "init")
	require.ErrorContains(t, err, "--force")

	_, err = run(t, "", "--config", path, "config", "init", "--force")
	require.NoError(t, err)
}

func TestJSONLogsReachCommandOutput(t *testing.T) {
	cfg := writeConfig(t)
	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	data = []byte(strings.Replace(string(data), "level = \"error\"", "level = \"info\"\nformat = \"json\"", 1))
	require.NoError(t, os.WriteFile(cfg, data, 0o600))

	out, err := run(t, "", "--config", cfg, "reset", "--yes")
	require.NoError(t, err)
	require.Contains(t, out, `"message":"snapshot cleared"`)
	require.Contains(t, out, `"level":"info"`)
}

func TestMonthFlag(t *testing.T) {
	t.Parallel()

	y, m, err := monthFlag("2024-02", time.UTC)
	require.NoError(t, err)
	require.Equal(t, 2024, y)
	require.Equal(t, time.February, m)

	_, _, err = monthFlag("02/2024", time.UTC)
	require.Error(t, err)

	y, m, err = monthFlag("", time.UTC)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.Equal(t, now.Year(), y)
	require.Equal(t, now.Month(), m)
}
