package reporting

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/results"
	"github.com/rwx-research/conductor/internal/telemetry"
)

// ReportPaths lists every artifact that was written successfully
type ReportPaths struct {
	HTML     string   `json:"html,omitempty"`
	JSON     string   `json:"json,omitempty"`
	JUnit    string   `json:"junit,omitempty"`
	Markdown string   `json:"markdown,omitempty"`
	Charts   []string `json:"charts,omitempty"`
}

// Count is the number of artifacts
func (p ReportPaths) Count() int {
	count := len(p.Charts)
	for _, path := range []string{p.HTML, p.JSON, p.JUnit, p.Markdown} {
		if path != "" {
			count++
		}
	}

	return count
}

// Generator writes report artifacts into a directory. A failing artifact never prevents the others from being written.
type Generator struct {
	Log        *zap.SugaredLogger
	FileSystem fs.FileSystem
	Telemetry  *telemetry.Recorder
	Dir        string
}

// GenerateComprehensive writes the charts, then the HTML, JSON, JUnit, and Markdown reports.
func (g Generator) GenerateComprehensive(ctx context.Context, set results.ResultSet, cfg Configuration) ReportPaths {
	paths := ReportPaths{}

	if err := g.FileSystem.MkdirAll(g.Dir); err != nil {
		g.Log.Errorf("Failed to generate comprehensive report: unable to create %q: %s", g.Dir, err)
		return paths
	}

	ts := cfg.timestamp()
	metrics := ComputeMetrics(set)

	charts := []struct {
		artifact string
		fileName string
		render   func(io.Writer) error
	}{
		{"pass_fail_chart", "pass_fail_chart_%s.png", func(w io.Writer) error { return RenderPassFailChart(w, metrics) }},
		{"duration_chart", "duration_chart_%s.png", func(w io.Writer) error { return RenderDurationChart(w, set) }},
		{"feature_status_chart", "feature_status_chart_%s.png", func(w io.Writer) error {
			return RenderFeatureStatusChart(w, set)
		}},
	}

	chartNames := make([]string, 0, len(charts))
	for _, c := range charts {
		if len(set.Scenarios) == 0 && c.artifact != "pass_fail_chart" {
			continue
		}

		render := c.render
		path, err := g.write(ctx, c.artifact, fmt.Sprintf(c.fileName, ts), func(file fs.File) error { return render(file) })
		if err != nil {
			continue
		}

		paths.Charts = append(paths.Charts, path)
		chartNames = append(chartNames, filepath.Base(path))
	}

	cfg.Charts = append(chartNames, cfg.Charts...)

	reports := []struct {
		artifact string
		fileName string
		writer   Writer
		target   *string
	}{
		{"html", "test_report_%s.html", WriteHTMLReport, &paths.HTML},
		{"json", "test_report_%s.json", WriteJSONReport, &paths.JSON},
		{"junit", "junit_%s.xml", WriteJUnitSummary, &paths.JUnit},
		{"markdown", "summary_%s.md", WriteMarkdownSummary, &paths.Markdown},
	}

	for _, r := range reports {
		writer := r.writer
		path, err := g.write(ctx, r.artifact, fmt.Sprintf(r.fileName, ts), func(file fs.File) error {
			return writer(file, set, cfg)
		})
		if err != nil {
			continue
		}

		*r.target = path
	}

	g.Log.Infof("Comprehensive report generated with %d components", paths.Count())
	return paths
}

// GenerateTrendReport writes the trend charts and the trend HTML report. Nothing is written without history.
func (g Generator) GenerateTrendReport(ctx context.Context, history []Snapshot, cfg Configuration) ReportPaths {
	paths := ReportPaths{}

	trends := ComputeTrends(history)
	if trends.IsEmpty() {
		g.Log.Warn("No historical data available for trend analysis")
		return paths
	}

	if err := g.FileSystem.MkdirAll(g.Dir); err != nil {
		g.Log.Errorf("Failed to generate trend report: unable to create %q: %s", g.Dir, err)
		return paths
	}

	ts := cfg.timestamp()

	charts := []struct {
		artifact string
		fileName string
		render   func(io.Writer, Trends) error
	}{
		{"pass_rate_trend", "pass_rate_trend_%s.png", RenderPassRateTrend},
		{"duration_trend", "duration_trend_%s.png", RenderDurationTrend},
	}

	chartNames := make([]string, 0, len(charts))
	for _, c := range charts {
		render := c.render
		path, err := g.write(ctx, c.artifact, fmt.Sprintf(c.fileName, ts), func(file fs.File) error {
			return render(file, trends)
		})
		if err != nil {
			continue
		}

		paths.Charts = append(paths.Charts, path)
		chartNames = append(chartNames, filepath.Base(path))
	}

	cfg.Charts = chartNames
	path, err := g.write(ctx, "trend_report", fmt.Sprintf("trend_report_%s.html", ts), func(file fs.File) error {
		return WriteTrendReport(file, trends, cfg)
	})
	if err == nil {
		paths.HTML = path
		g.Log.Infof("Trend report generated: %s", path)
	}

	return paths
}

// write creates a single artifact. Failures are logged & counted, and the partially written file is removed.
func (g Generator) write(ctx context.Context, artifact, fileName string, writeTo func(fs.File) error) (string, error) {
	path := filepath.Join(g.Dir, fileName)

	err := func() error {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}

		file, err := g.FileSystem.Create(path)
		if err != nil {
			return errors.WithStack(err)
		}

		if err := writeTo(file); err != nil {
			file.Close()
			if removeErr := g.FileSystem.Remove(path); removeErr != nil {
				g.Log.Debugf("Unable to remove %q: %s", path, removeErr)
			}

			return err
		}

		return errors.WithStack(file.Close())
	}()
	if err != nil {
		g.Log.Warnf("Failed to generate %s: %s", artifact, err)
		g.Telemetry.ArtifactFailed(artifact)
		return "", err
	}

	g.Log.Debugf("Wrote %s to %q", artifact, path)
	return path, nil
}
