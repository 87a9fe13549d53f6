package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFlushesLogFileOnFailure(t *testing.T) {
	// every endpoint 404s, so loading markets fails fatally
	kraken := httptest.NewServer(http.NotFoundHandler())
	defer kraken.Close()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "crossbot.log")
	configPath := filepath.Join(dir, "config.yaml")
	configYaml := fmt.Sprintf(`symbol: XBTUSD
tracker:
  log_directory: %s
  pnl_chart: false
kraken:
  rest_url: %s/0
server:
  enabled: false
logging:
  file: %s
`, filepath.Join(dir, "logs"), kraken.URL, logPath)
	require.NoError(t, os.WriteFile(configPath, []byte(configYaml), 0644))
	t.Setenv("CONFIG_PATH", configPath)
	t.Setenv("LOG_LEVEL", "info")

	assert.Equal(t, 1, run())

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "Crossbot stopped with error")
	assert.FileExists(t, filepath.Join(dir, "logs", "performance_report.txt"))
}
