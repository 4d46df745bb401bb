package export

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/indmach/internal/dynamo"
)

func testSamples() []dynamo.Sample {
	samples := make([]dynamo.Sample, 50)
	for i := range samples {
		t := float64(i) * 0.01
		samples[i] = dynamo.Sample{T: t, Slip: 0.007 + 0.001*t, V1: 1, Is1: 240 + t}
	}
	return samples
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, "run", testSamples(), "slip", "v1"); err != nil {
		t.Fatalf("write png: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("output is not a png: %v", err)
	}
}

func TestPlotErrors(t *testing.T) {
	if _, err := Plot("run", nil, "slip"); err == nil {
		t.Error("expected error for no samples")
	}
	if _, err := Plot("run", testSamples(), "torque"); err == nil {
		t.Error("expected error for unknown series")
	}
}

func TestSavePNGs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := SavePNGs(dir, "run", testSamples(), []string{"slip", "is1"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %d", len(paths))
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("missing or empty %s", p)
		}
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, "run", testSamples(), []string{"slip", "is1"}); err != nil {
		t.Fatalf("write html: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<html") {
		t.Error("expected an html document")
	}
	if !strings.Contains(out, "echarts") {
		t.Error("expected echarts script")
	}
}

func TestCaption(t *testing.T) {
	if Caption("is1") != "|Is1| (A)" {
		t.Errorf("unexpected caption %q", Caption("is1"))
	}
	if Caption("other") != "other" {
		t.Error("unknown names should pass through")
	}
}
