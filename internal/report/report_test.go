package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/footprint/internal/catalog"
	"github.com/Norgate-AV/footprint/internal/fetch"
	"github.com/Norgate-AV/footprint/internal/pipeline"
	"github.com/Norgate-AV/footprint/internal/results"
)

func init() {
	color.NoColor = true
}

func testSnapshot() results.Snapshot {
	t := results.NewTable()
	t.Set("size-opt", "Core", 1000)
	t.Set("size-opt", "Other", 800)
	t.Set("speed-opt", "Core", 2048)

	return results.Snapshot{
		Platform:    "ARM Cortex-M",
		PlatformID:  "arm",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Results:     t,
		Versions:    map[string]string{"Core": "HEAD"},
	}
}

func testPair() pipeline.Pair {
	return pipeline.Pair{
		Platform: catalog.Platform{ID: "arm", Name: "ARM Cortex-M"},
		Config:   catalog.BuildConfig{Name: "size-opt", Flags: []string{"-Os"}},
		Library:  catalog.Library{Name: "Core", Description: "reference parser"},
		Index:    1,
		Total:    2,
	}
}

func TestConsole_Banner(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.Banner(catalog.Platform{Name: "ARM Cortex-M"}, []catalog.Library{{Name: "Core"}, {Name: "Other"}})
	c.ConfigHeader(catalog.BuildConfig{Name: "size-opt", Flags: []string{"-mcpu=cortex-m7", "-Os"}})

	out := buf.String()
	assert.Contains(t, out, "=== Embedded Binary Size Benchmark ===")
	assert.Contains(t, out, "Target: ARM Cortex-M")
	assert.Contains(t, out, "Comparing: Core, Other")
	assert.Contains(t, out, "Configuration: size-opt")
	assert.Contains(t, out, "Flags: -mcpu=cortex-m7 -Os")
}

func TestConsole_Fetched(t *testing.T) {
	tests := []struct {
		action fetch.Action
		want   string
	}{
		{fetch.ActionSkipped, "✓ cJSON.h already exists"},
		{fetch.ActionDownloaded, "✓ Downloaded cJSON.h"},
		{fetch.ActionCloned, "✓ Cloned cJSON.h"},
		{fetch.ActionNormalized, "✓ Prepared cJSON.h"},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			var buf bytes.Buffer
			NewConsole(&buf, false).Fetched(tt.action, "cJSON.h")
			assert.Equal(t, tt.want+"\n", buf.String())
		})
	}
}

func TestConsole_OnEvent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	pair := testPair()

	c.OnEvent(pipeline.Event{Pair: pair, Stage: pipeline.StageCompile, Status: pipeline.StatusWorking})
	c.OnEvent(pipeline.Event{Pair: pair, Stage: pipeline.StageLink, Status: pipeline.StatusWorking})
	c.OnEvent(pipeline.Event{Pair: pair, Stage: pipeline.StageLink, Status: pipeline.StatusDone})
	c.OnEvent(pipeline.Event{Pair: pair, Stage: pipeline.StageAnalyze, Status: pipeline.StatusInfo, Message: "size analysis", Detail: []string{"text data bss"}})
	c.OnEvent(pipeline.Event{Pair: pair, Stage: pipeline.StageAnalyze, Status: pipeline.StatusWarning, Message: "suspiciously small"})

	out := buf.String()
	assert.Contains(t, out, "[1/2] Building Core...")
	assert.Contains(t, out, "Description: reference parser")
	assert.Contains(t, out, "Compiling to object file...")
	assert.Contains(t, out, "Linking to ELF...")
	assert.Contains(t, out, "✓ Built: arm_core_size-opt.elf")
	assert.Contains(t, out, "=== Size Analysis ===\ntext data bss\n")
	assert.Contains(t, out, "⚠ suspiciously small")
	assert.NotContains(t, out, "took")
}

func TestConsole_TopSymbols(t *testing.T) {
	tests := []struct {
		name   string
		detail []string
		want   string
	}{
		{
			name:   "parsed rows are aligned",
			detail: []string{"08000100 0000000512 T parse_config(EmbeddedConfig&)", "08000400 0000000064 t helper"},
			want:   "=== Top Symbols by Size ===\n     512  T  parse_config(EmbeddedConfig&)\n      64  t  helper\n",
		},
		{
			name:   "unparseable rows are printed as is",
			detail: []string{"parse_config"},
			want:   "=== Top Symbols by Size ===\nparse_config\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewConsole(&buf, false).OnEvent(pipeline.Event{
				Pair:    testPair(),
				Stage:   pipeline.StageAnalyze,
				Status:  pipeline.StatusInfo,
				Message: "largest symbols",
				Detail:  tt.detail,
			})

			assert.Equal(t, "\n"+tt.want, buf.String())
		})
	}
}

func TestConsole_OnEventError(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.OnEvent(pipeline.Event{
		Pair:   testPair(),
		Stage:  pipeline.StageCompile,
		Status: pipeline.StatusError,
		Err:    errors.New("compile failed"),
		Detail: []string{"parse.cpp:1:1: error: boom", "1 error generated"},
	})

	assert.Equal(t, "✗ Compilation failed\nparse.cpp:1:1: error: boom\n1 error generated\n", buf.String())
}

func TestConsole_VerboseTimings(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.OnEvent(pipeline.Event{Pair: testPair(), Stage: pipeline.StageCompile, Status: pipeline.StatusDone, Elapsed: 1500 * time.Millisecond})
	assert.Contains(t, buf.String(), "compile took 1.5s")
}

func TestConsole_Comparison(t *testing.T) {
	table := results.NewTable()
	table.Set("size-opt", "Core", 1000)
	table.Set("size-opt", "Other", 800)

	cmp, ok := results.Compare(table, "size-opt", "Core")
	require.True(t, ok)

	var buf bytes.Buffer
	NewConsole(&buf, false).Comparison(cmp)

	out := buf.String()
	assert.Contains(t, out, "=== Comparison (size-opt) ===")
	assert.Contains(t, out, "Core                 .text:    1000 bytes")
	assert.Contains(t, out, "→ Core is 200 bytes (25%) larger than Other")
	assert.Equal(t, 1, strings.Count(out, "than Other"))
}

func TestConsole_Summary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.Summary([]ELFFile{{Name: "arm_core_size_opt.elf", Bytes: 2048}}, testSnapshot().Results)
	c.Done()

	out := buf.String()
	assert.Contains(t, out, "Built ELF files:")
	assert.Contains(t, out, "  arm_core_size_opt.elf")
	assert.Contains(t, out, "   2.0 KB")
	assert.Contains(t, out, "Code Size Summary (.text section):")
	assert.Contains(t, out, "Done!")
}

func TestConsole_SummaryEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, false).Summary(nil, results.NewTable())

	assert.NotContains(t, buf.String(), "Code Size Summary")
}

func TestSummaryTable(t *testing.T) {
	out := SummaryTable(testSnapshot().Results)

	assert.Contains(t, out, "Library")
	assert.Contains(t, out, "size-opt")
	assert.Contains(t, out, "speed-opt")
	assert.Contains(t, out, "1.0 KB ( 1000 B)")
	assert.Contains(t, out, "0.8 KB (  800 B)")
	assert.Contains(t, out, "2.0 KB ( 2048 B)")

	// Other has no speed-opt result
	lines := strings.Split(out, "\n")
	var otherRow string
	for _, l := range lines {
		if strings.Contains(l, "Other") {
			otherRow = l
		}
	}

	require.NotEmpty(t, otherRow)
	assert.Contains(t, otherRow, "-")
}

func TestHistoryDelta_Line(t *testing.T) {
	tests := []struct {
		name  string
		delta HistoryDelta
		want  string
	}{
		{
			name:  "grew",
			delta: HistoryDelta{Config: "size-opt", Library: "Core", Previous: 1000, Current: 1100},
			want:  "(+100 bytes)",
		},
		{
			name:  "shrank with changed inputs",
			delta: HistoryDelta{Config: "size-opt", Library: "Core", Previous: 1000, Current: 900, InputsChanged: true},
			want:  "(-100 bytes), inputs changed",
		},
		{
			name:  "unchanged",
			delta: HistoryDelta{Config: "size-opt", Library: "Core", Previous: 1000, Current: 1000},
			want:  "(unchanged)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := tt.delta.Line()
			assert.True(t, strings.HasSuffix(line, tt.want), line)
			assert.Contains(t, line, "[size-opt]")
		})
	}
}

func TestConsole_History(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.History(nil)
	assert.Empty(t, buf.String())

	c.History([]HistoryDelta{{Config: "size-opt", Library: "Core", Previous: 10, Current: 12}})
	assert.Contains(t, buf.String(), "=== Since Last Run ===")
	assert.Contains(t, buf.String(), "(+2 bytes)")
}

func TestJSONExporter(t *testing.T) {
	dir := t.TempDir()

	path, err := JSONExporter{Dir: dir}.Export(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results_arm.json"), path)

	s, err := results.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"size-opt", "speed-opt"}, s.Results.Configs())
}

func TestBenchExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "footprint.bench")

	got, err := BenchExporter{Path: path}.Export(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "target: ARM Cortex-M\n")
	assert.Contains(t, out, "BenchmarkCodeSize/platform=arm/config=size-opt/lib=Core 1 1000 text-B\n")
	assert.Contains(t, out, "BenchmarkCodeSize/platform=arm/config=size-opt/lib=Other 1 800 text-B\n")
	assert.Contains(t, out, "BenchmarkCodeSize/platform=arm/config=speed-opt/lib=Core 1 2048 text-B\n")
	assert.Equal(t, 3, strings.Count(out, "Benchmark"))
}

func TestMetricsExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprint.prom")

	_, err := MetricsExporter{Path: path}.Export(context.Background(), testSnapshot())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "# TYPE footprint_text_bytes gauge")
	assert.Contains(t, out, `footprint_text_bytes{config="size-opt",library="Core",platform="arm"} 1000`)
	assert.Contains(t, out, `footprint_text_bytes{config="speed-opt",library="Core",platform="arm"} 2048`)
	assert.Contains(t, out, `footprint_generated_timestamp_seconds{platform="arm"}`)
}

func TestPoints(t *testing.T) {
	pts := Points(testSnapshot())
	require.Len(t, pts, 3)

	assert.Equal(t, "code_size", pts[0].Name())
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), pts[0].Time())
}

func TestInfluxExporter(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	exp := NewInfluxExporter(InfluxConfig{URL: srv.URL, Token: "t", Org: "embedded", Bucket: "sizes"})
	defer exp.Close()

	dest, err := exp.Export(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Contains(t, dest, "bucket sizes")

	assert.Equal(t, "/api/v2/write", gotPath)
	assert.Contains(t, gotQuery, "org=embedded")
	assert.Contains(t, gotQuery, "bucket=sizes")
	assert.Contains(t, gotBody, "code_size,config=size-opt,library=Core,platform=arm bytes=1000i")
	assert.Contains(t, gotBody, "code_size,config=size-opt,library=Other,platform=arm bytes=800i")
	assert.Equal(t, 3, strings.Count(gotBody, "code_size,"))
}

func TestInfluxExporter_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid","message":"bucket not found"}`))
	}))
	defer srv.Close()

	exp := NewInfluxExporter(InfluxConfig{URL: srv.URL, Org: "o", Bucket: "missing"})
	defer exp.Close()

	_, err := exp.Export(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "influxdb write failed")
}

func TestInfluxExporter_EmptySnapshot(t *testing.T) {
	exp := NewInfluxExporter(InfluxConfig{URL: "http://127.0.0.1:1"})
	defer exp.Close()

	dest, err := exp.Export(context.Background(), results.Snapshot{PlatformID: "arm"})
	require.NoError(t, err)
	assert.Empty(t, dest)
}
