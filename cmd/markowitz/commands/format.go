package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/aristath/markowitz/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6B50FF"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#858392"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E94090"))
)

// render writes v as JSON or calls text to print the human readable form
func (a *app) render(cmd *cobra.Command, v interface{}, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch a.opts.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		text(w)
		return nil
	default:
		return domain.InvalidInputf("unknown output format %q", a.opts.output)
	}
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

func printField(w io.Writer, name string, value interface{}) {
	fmt.Fprintf(w, "  %s %v\n", mutedStyle.Render(fmt.Sprintf("%-16s", name+":")), value)
}

// weightsTable renders one row per instrument with its weight and a bar
func weightsTable(instruments []string, weights []float64) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("INSTRUMENT", "WEIGHT", "")
	for i, inst := range instruments {
		t.Row(inst, fmt.Sprintf("%7.2f%%", weights[i]*100), weightBar(weights[i], 30))
	}
	return t.Render()
}

func weightBar(weight float64, width int) string {
	n := int(weight*float64(width) + 0.5)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n)
}

func printStatistics(w io.Writer, stats domain.Statistics, ratio float64) {
	printField(w, "Expected return", fmt.Sprintf("%.6f", stats.ExpectedReturn))
	printField(w, "Risk", fmt.Sprintf("%.6f", stats.Risk))
	printField(w, "Sharpe ratio", fmt.Sprintf("%.6f", ratio))
}

// printError renders the extra context carried by typed errors
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))

	var failed *domain.OptimizationFailedError
	if errors.As(err, &failed) && len(failed.LastIterate) > 0 {
		fmt.Fprintf(w, "  last iterate: %v\n", failed.LastIterate)
	}
}
