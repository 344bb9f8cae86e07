// Command analyze runs the analytics engine over a series read from a file or
// stdin and prints the summary, anomalies and insights.
//
// The input is either a JSON array of {"date","value"} objects or an object
// with a "series" field holding such an array.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/insights"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/services"
)

type options struct {
	input     string
	format    string
	metric    string
	threshold float64
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "input", "-", "Input file, - for stdin")
	flag.StringVar(&opts.format, "format", "table", "Output format: table, json")
	flag.StringVar(&opts.metric, "metric", "value", "Metric name used in insights")
	flag.Float64Var(&opts.threshold, "zscore", 0, "Z-score threshold (0 uses the default)")
	flag.Parse()

	if err := run(opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, stdin io.Reader, stdout io.Writer) error {
	data, err := readInput(opts.input, stdin)
	if err != nil {
		return err
	}

	series, err := parseSeries(data)
	if err != nil {
		return err
	}

	var threshold *float64
	if opts.threshold > 0 {
		threshold = &opts.threshold
	}

	svc := services.NewAnalyticsService(logging.NewNop(), services.AnalyticsDeps{})
	result, err := svc.Analyze(series, threshold)
	if err != nil {
		return err
	}

	found := insights.Generate(&models.AnalyticsResult{
		Metric:         opts.metric,
		Summary:        result.Summary,
		Anomalies:      result.Anomalies,
		TimeSeriesData: result.TimeSeriesData,
	})

	switch opts.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*models.AnalysisResult
			Insights []models.Insight `json:"insights"`
		}{result, found})
	case "table":
		_, err := io.WriteString(stdout, render(result, found))
		return err
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json)", opts.format)
	}
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func parseSeries(data []byte) (analytics.Series, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	var series analytics.Series
	if data[0] == '[' {
		if err := json.Unmarshal(data, &series); err != nil {
			return nil, fmt.Errorf("invalid series: %w", err)
		}
		return series, nil
	}

	var req models.AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return analytics.Series(req.Series), nil
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func render(result *models.AnalysisResult, found []models.Insight) string {
	var parts []string

	s := result.Summary
	summary := newTable()
	summary.AppendHeader(table.Row{"Count", "Mean", "Median", "Std Dev", "Min", "Q1", "Q3", "Max"})
	summary.AppendRow(table.Row{s.Count, s.Mean, s.Median, s.StdDev, s.Min, s.Q1, s.Q3, s.Max})
	parts = append(parts, "Summary:\n"+summary.Render())

	if len(result.Anomalies) == 0 {
		parts = append(parts, "No anomalies detected")
	} else {
		tbl := newTable()
		tbl.AppendHeader(table.Row{"Date", "Value", "Type", "Severity", "Z-Score"})
		for _, a := range result.Anomalies {
			z := ""
			if a.ZScore != nil {
				z = fmt.Sprintf("%.2f", *a.ZScore)
			}
			tbl.AppendRow(table.Row{a.Date, a.Value, a.Type, a.Severity.String(), z})
		}
		tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(result.Anomalies))})
		parts = append(parts, "Anomalies:\n"+tbl.Render())
	}

	if len(found) > 0 {
		tbl := newTable()
		tbl.AppendHeader(table.Row{"Severity", "Title", "Description"})
		for _, in := range found {
			tbl.AppendRow(table.Row{in.Severity, in.Title, in.Description})
		}
		parts = append(parts, "Insights:\n"+tbl.Render())
	}

	return strings.Join(parts, "\n\n") + "\n"
}
