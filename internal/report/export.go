package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fortio.org/safecast"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/perf/benchfmt"

	"github.com/Norgate-AV/footprint/internal/results"
)

// Exporter publishes a finished snapshot. Export returns a description of
// where the data went.
type Exporter interface {
	Name() string
	Export(ctx context.Context, s results.Snapshot) (string, error)
}

// each calls fn for every recorded size in build order
func each(s results.Snapshot, fn func(config, lib string, size uint64) error) error {
	if s.Results == nil {
		return nil
	}

	for _, cfg := range s.Results.Configs() {
		for _, lib := range s.Results.Libraries(cfg) {
			size, _ := s.Results.Get(cfg, lib)
			if err := fn(cfg, lib, size); err != nil {
				return err
			}
		}
	}

	return nil
}

func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	return nil
}

// JSONExporter writes results_<platform-id>.json into Dir
type JSONExporter struct {
	Dir string
}

func (e JSONExporter) Name() string { return "results" }

func (e JSONExporter) Export(_ context.Context, s results.Snapshot) (string, error) {
	return results.Write(e.Dir, s)
}

// BenchExporter writes the results in the Go benchmark format so runs can
// be compared with benchstat
type BenchExporter struct {
	Path string
}

func (e BenchExporter) Name() string { return "benchmark file" }

// BenchName is the benchmark name of one result
func BenchName(platform, config, lib string) string {
	return fmt.Sprintf("CodeSize/platform=%s/config=%s/lib=%s", platform, config, lib)
}

func (e BenchExporter) Export(_ context.Context, s results.Snapshot) (string, error) {
	if err := ensureParent(e.Path); err != nil {
		return "", err
	}

	f, err := os.Create(e.Path)
	if err != nil {
		return "", fmt.Errorf("failed to create benchmark file: %w", err)
	}

	w := benchfmt.NewWriter(f)
	res := &benchfmt.Result{Iters: 1}
	res.Config = append(res.Config, benchfmt.Config{Key: "target", Value: []byte(s.Platform), File: true})

	err = each(s, func(config, lib string, size uint64) error {
		res.Name = benchfmt.Name(BenchName(s.PlatformID, config, lib))
		res.Values = []benchfmt.Value{{Value: float64(size), Unit: "text-B"}}

		return w.Write(res)
	})
	if err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write benchmark file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write benchmark file: %w", err)
	}

	return e.Path, nil
}

// MetricsExporter writes a Prometheus textfile for node_exporter's
// textfile collector
type MetricsExporter struct {
	Path string
}

func (e MetricsExporter) Name() string { return "metrics file" }

// Registry builds a registry holding one text-size gauge per result
func Registry(s results.Snapshot) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	size := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "footprint_text_bytes",
		Help: "Size of the .text section of the benchmark executable in bytes.",
	}, []string{"platform", "config", "library"})

	generated := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "footprint_generated_timestamp_seconds",
		Help: "Unix time the results were generated.",
	}, []string{"platform"})

	if err := reg.Register(size); err != nil {
		return nil, err
	}

	if err := reg.Register(generated); err != nil {
		return nil, err
	}

	generated.WithLabelValues(s.PlatformID).Set(float64(s.GeneratedAt.Unix()))

	_ = each(s, func(config, lib string, bytes uint64) error {
		size.WithLabelValues(s.PlatformID, config, lib).Set(float64(bytes))
		return nil
	})

	return reg, nil
}

func (e MetricsExporter) Export(_ context.Context, s results.Snapshot) (string, error) {
	reg, err := Registry(s)
	if err != nil {
		return "", fmt.Errorf("failed to register metrics: %w", err)
	}

	if err := ensureParent(e.Path); err != nil {
		return "", err
	}

	if err := prometheus.WriteToTextfile(e.Path, reg); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}

	return e.Path, nil
}

// InfluxConfig locates an InfluxDB v2 bucket
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxExporter pushes one code_size point per result
type InfluxExporter struct {
	cfg    InfluxConfig
	client influxdb2.Client
}

// NewInfluxExporter creates an exporter for cfg. Close releases the client.
func NewInfluxExporter(cfg InfluxConfig) *InfluxExporter {
	return &InfluxExporter{
		cfg:    cfg,
		client: influxdb2.NewClient(cfg.URL, cfg.Token),
	}
}

func (e *InfluxExporter) Name() string { return "influxdb" }

// Points converts the snapshot into line-protocol points
func Points(s results.Snapshot) []*write.Point {
	ts := s.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	var pts []*write.Point
	_ = each(s, func(config, lib string, size uint64) error {
		pts = append(pts, influxdb2.NewPoint("code_size",
			map[string]string{
				"platform": s.PlatformID,
				"config":   config,
				"library":  lib,
			},
			map[string]interface{}{
				"bytes": safecast.MustConv[int64](size),
				"kb":    results.KB(size),
			},
			ts))

		return nil
	})

	return pts
}

func (e *InfluxExporter) Export(ctx context.Context, s results.Snapshot) (string, error) {
	pts := Points(s)
	if len(pts) == 0 {
		return "", nil
	}

	writeAPI := e.client.WriteAPIBlocking(e.cfg.Org, e.cfg.Bucket)
	if err := writeAPI.WritePoint(ctx, pts...); err != nil {
		return "", fmt.Errorf("influxdb write failed: %w", err)
	}

	return fmt.Sprintf("%s (bucket %s)", e.cfg.URL, e.cfg.Bucket), nil
}

// Close releases the underlying client
func (e *InfluxExporter) Close() {
	e.client.Close()
}
