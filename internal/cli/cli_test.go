package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth-tracker/internal/models"
)

// run executes the root command with args against configDir.
func run(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// quietConfig writes a config that keeps logs off the console.
func quietConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := "[log]\nconsole = false\nfile = false\n" + extra
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version", "--json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, Version, got["version"])
}

func TestConfigPath_WritesTemplate(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "config", "path")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "config.toml"), strings.TrimSpace(out))
	assert.FileExists(t, filepath.Join(dir, "config.toml"))
}

func TestConfigShow_RedactsAPIKey(t *testing.T) {
	dir := quietConfig(t, "[prices.crypto]\napi_key = \"secret-key\"\n")

	out, err := run(t, dir, "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret-key")
	assert.Contains(t, out, "********")
}

func TestImportTransactions_ThenHoldings(t *testing.T) {
	dir := quietConfig(t, "")
	csv := writeFile(t, dir, "txns.csv",
		"date,symbol,action,quantity,unit_price,exchange\n"+
			"2024-01-02,VAS,BUY,10,90.5,ASX\n"+
			"2024-01-03,BTC,BUY,0.5,60000,\n"+
			"2024-01-04,VAS,BUY,-1,90,ASX\n")

	out, err := run(t, dir, "--user", "alice", "import", "transactions", csv, "--json")
	require.NoError(t, err)

	var res models.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Row)

	// re-import skips what is already there
	out, err = run(t, dir, "--user", "alice", "import", "transactions", csv, "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 2, res.Skipped)

	out, err = run(t, dir, "--user", "alice", "holdings", "--json")
	require.NoError(t, err)
	var holdings []models.Holding
	require.NoError(t, json.Unmarshal([]byte(out), &holdings))
	require.Len(t, holdings, 2)

	types := map[string]models.HoldingType{}
	for _, h := range holdings {
		types[h.SymbolValue()] = h.Type
	}
	assert.Equal(t, models.HoldingStock, types["VAS"])
	assert.Equal(t, models.HoldingCrypto, types["BTC"])

	// other users see nothing
	out, err = run(t, dir, "--user", "bob", "holdings")
	require.NoError(t, err)
	assert.Contains(t, out, "No holdings for bob")
}

func TestImportSnapshots_TextOutput(t *testing.T) {
	dir := quietConfig(t, "")
	csv := writeFile(t, dir, "snaps.csv",
		"date,fund_name,balance,employer_contrib\n"+
			"2024-01-31,Australian Super,50000,1200\n"+
			"2024-01-31,Car Loan,-8000,\n"+
			"2024-01-31,,100,\n")

	out, err := run(t, dir, "import", "snapshots", csv)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 snapshots, skipped 0 duplicates")
	assert.Contains(t, out, "1 rows failed")
	assert.Contains(t, out, "Row 4: fund_name is required")

	out, err = run(t, dir, "holdings", "--type", "super")
	require.NoError(t, err)
	assert.Contains(t, out, "Australian Super")
	assert.NotContains(t, out, "Car Loan")
}

func TestImport_MissingFile(t *testing.T) {
	dir := quietConfig(t, "")
	_, err := run(t, dir, "import", "transactions", filepath.Join(dir, "nope.csv"))
	assert.Error(t, err)
}

func TestHoldings_RejectsUnknownType(t *testing.T) {
	dir := quietConfig(t, "")
	_, err := run(t, dir, "holdings", "--type", "bond")
	assert.Error(t, err)
}

func TestPrice_UsesConfiguredProvider(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v8/finance/chart/CBA.AX", r.URL.Path)
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"currency":"AUD","regularMarketPrice":110,"previousClose":100}}]}}`))
	}))
	defer srv.Close()

	dir := quietConfig(t, fmt.Sprintf("[prices.stock]\nbase_url = %q\n", srv.URL))

	out, err := run(t, dir, "price", "cba", "--exchange", "ASX", "--json")
	require.NoError(t, err)

	var res models.PriceResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "CBA.AX", res.Symbol)
	assert.Equal(t, "110", res.Price.String())
	assert.False(t, res.IsStale)

	// second lookup is served from the cache persisted in the database
	_, err = run(t, dir, "price", "CBA", "--exchange", "ASX")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPrice_RejectsNonTradeableType(t *testing.T) {
	dir := quietConfig(t, "")
	_, err := run(t, dir, "price", "Savings", "--type", "cash")
	assert.Error(t, err)
}

func TestPricesRefresh_NoHoldings(t *testing.T) {
	dir := quietConfig(t, "")
	out, err := run(t, dir, "prices", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "No tradeable holdings")
}
