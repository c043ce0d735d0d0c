package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/teslashibe/go-sensory/pkg/crowd"
	"github.com/teslashibe/go-sensory/pkg/crowdmap"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("sensory %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestMapJSON(t *testing.T) {
	out := execute(t, "map", "--json", "--category", "all", "-q", "")

	var snap crowdmap.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if len(snap.Entries) != len(crowdmap.Locations()) {
		t.Errorf("entries = %d, want %d", len(snap.Entries), len(crowdmap.Locations()))
	}
}

func TestMapTable(t *testing.T) {
	out := execute(t, "map", "--json=false")
	if !strings.Contains(out, "LOCATION") || !strings.Contains(out, crowdmap.Locations()[0].Name) {
		t.Errorf("table output:\n%s", out)
	}
}

func TestClassifyWithOverlay(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scene.png")
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := color.RGBA{A: 255}
			if x >= 32 {
				c = color.RGBA{190, 190, 190, 255}
			}
			img.Set(x, y, c)
		}
	}
	if err := imaging.Save(img, in); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "overlay.png")

	out := execute(t, "classify", in, "--overlay", outPath)

	var res struct {
		Variance float64        `json:"variance"`
		Status   string         `json:"status"`
		Analysis crowd.Analysis `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(out[:strings.LastIndex(out, "}")+1]), &res); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if res.Variance != 9025 || res.Analysis.PeopleCount != 20 || res.Status != string(crowd.StatusCaution) {
		t.Errorf("result = %+v", res)
	}

	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("overlay not written: %v", err)
	}
	classifyOverlay = ""
}

func TestClassifyMissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"classify", filepath.Join(t.TempDir(), "missing.png")})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for missing file")
	}
}
