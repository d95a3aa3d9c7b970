package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/markowitz/internal/domain"
)

// writePrices writes n daily closes per symbol starting 2024-01-01.
func writePrices(t *testing.T, dir string, symbol string, n int, drift, amp, freq float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Close\n")
	level := 0.0
	for i := 0; i < n; i++ {
		level += drift + amp*math.Sin(freq*float64(i))
		day := domainDay(i)
		fmt.Fprintf(&b, "%s,%.6f\n", day, 100*math.Exp(level))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(b.String()), 0644))
}

func domainDay(i int) string {
	return testStart.AddDate(0, 0, i).Format(domain.DateLayout)
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	csvDir := t.TempDir()
	t.Setenv("MARKOWITZ_DATA_DIR", dataDir)
	t.Setenv("MARKET_DATA_SOURCE", "csv")
	t.Setenv("CSV_DATA_DIR", csvDir)
	t.Setenv("RANDOM_PORTFOLIOS", "100")

	writePrices(t, csvDir, "AAA", 120, 0.001, 0.01, 1.0)
	writePrices(t, csvDir, "BBB", 120, 0.0004, 0.012, 0.7)
	require.NoError(t, os.WriteFile(filepath.Join(csvDir, "S.csv"),
		[]byte("Date,Close\n2024-01-02,100\n2024-01-03,102\n2024-01-04,101\n2024-01-05,105\n"), 0644))
	return csvDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--log-level", "error", "--pretty=false"}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestStatsCommand_JSON(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "stats", "-i", "S", "--start", "2024-01-01", "--end", "2024-02-01", "--weights", "1", "-o", "json")
	require.NoError(t, err)

	var report struct {
		Statistics domain.Statistics `json:"statistics"`
		Ratio      float64           `json:"ratio"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.InDelta(t, 4.098374, report.Statistics.ExpectedReturn, 5e-7)
	assert.InDelta(t, 0.389533, report.Statistics.Risk, 5e-7)
	assert.InDelta(t, 10.521260, report.Ratio, 5e-6)
}

func TestStatsCommand_Text(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "stats", "-i", "AAA,BBB", "--start", "2024-01-01", "--end", "2024-06-01", "-w", "0.5,0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Portfolio statistics")
	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "50.00%")
}

func TestStatsCommand_InvalidInput(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "stats", "-i", "AAA,BBB", "--start", "2024-01-01", "--end", "2024-06-01", "-w", "0.7,0.7")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = run(t, "stats", "-i", "AAA", "--start", "01-01-2024", "-w", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = run(t, "stats", "-i", "MISSING", "--start", "2024-01-01", "-w", "1")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestMomentsCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "moments", "-i", "AAA,BBB", "--start", "2024-01-01", "--end", "2024-06-01", "-o", "json")
	require.NoError(t, err)

	var m struct {
		Means      []float64   `json:"means"`
		Covariance [][]float64 `json:"covariance"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Len(t, m.Means, 2)
	assert.Equal(t, m.Covariance[0][1], m.Covariance[1][0])

	out, err = run(t, "moments", "-i", "AAA,BBB", "--start", "2024-01-01", "--end", "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, out, "sharpe")
}

func TestRandomCommand_Seeded(t *testing.T) {
	setupEnv(t)
	args := []string{"random", "-i", "AAA,BBB", "--start", "2024-01-01", "--end", "2024-06-01", "-n", "25", "--seed", "11", "-o", "json"}

	first, err := run(t, args...)
	require.NoError(t, err)
	second, err := run(t, args...)
	require.NoError(t, err)

	var samples []domain.PortfolioSample
	require.NoError(t, json.Unmarshal([]byte(first), &samples))
	assert.Len(t, samples, 25)
	assert.Equal(t, first, second)
}

func TestOptimizeCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "optimize", "-i", "AAA,BBB", "--start", "2024-01-01", "--end", "2024-06-01", "--seed", "3", "-o", "json")
	require.NoError(t, err)

	var analysis struct {
		Optimum    domain.OptimizationResult `json:"optimum"`
		Samples    []domain.PortfolioSample  `json:"samples"`
		BestSample *domain.PortfolioSample   `json:"best_sample"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.Empty(t, analysis.Samples)
	require.NotNil(t, analysis.BestSample)
	assert.InDelta(t, 1.0, analysis.Optimum.Weights[0]+analysis.Optimum.Weights[1], 1e-6)
	assert.GreaterOrEqual(t, analysis.Optimum.Ratio, analysis.BestSample.Ratio-1e-6)

	out, err = run(t, "optimize", "-i", "AAA,BBB", "--start", "2024-01-01", "--end", "2024-06-01", "--samples=-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Maximum Sharpe ratio portfolio")
}

func TestSimulateCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "simulate", "wiener", "--steps", "20", "--seed", "5", "-o", "json")
	require.NoError(t, err)
	var path struct {
		Values []float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &path))
	assert.Len(t, path.Values, 21)

	out, err = run(t, "simulate", "gbm", "--sigma", "0", "--mu", "0.01", "--steps", "1", "--paths", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "101.0050")

	out, err = run(t, "simulate", "gbm", "--instrument", "AAA", "--start", "2024-01-01", "--end", "2024-06-01",
		"--steps", "5", "--paths", "10", "--seed", "1", "-o", "json")
	require.NoError(t, err)
	var result struct {
		Mean []float64 `json:"mean"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Mean, 6)
}

func TestCacheCommands(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "stats", "-i", "S", "--start", "2024-01-01", "--end", "2024-02-01", "-w", "1")
	require.NoError(t, err)

	out, err := run(t, "cache", "stats", "-o", "json")
	require.NoError(t, err)
	var stats cacheStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Entries)

	_, err = run(t, "cache", "cleanup")
	require.NoError(t, err)

	_, err = run(t, "cache", "invalidate", "S")
	require.NoError(t, err)

	out, err = run(t, "cache", "stats", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 0, stats.Entries)

	_, err = run(t, "--no-cache", "cache", "stats")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUnknownOutputFormat(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "simulate", "wiener", "--steps", "2", "-o", "yaml")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
