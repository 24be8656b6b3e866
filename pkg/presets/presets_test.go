package presets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-goalvision/pkg/vision"
)

const sample = `hsv_ranges:
  - name: high_goal
    hsv_range: [50, 90, 100, 255, 60, 255]
  - name: gear_peg
    hsv_range: [20, 35, 100, 255, 100, 255]
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "high_goal_config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		missing   bool
		wantCount int
		wantErr   bool
	}{
		{"two presets", sample, false, 2, false},
		{"missing file", "", true, 0, false},
		{"empty document", "", false, 0, false},
		{"short range", "hsv_ranges:\n  - name: x\n    hsv_range: [1, 2]\n", false, 0, true},
		{"unnamed", "hsv_ranges:\n  - hsv_range: [1, 2, 3, 4, 5, 6]\n", false, 0, true},
		{"bad yaml", "hsv_ranges: [", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "absent.yaml")
			if !tt.missing {
				path = writeFile(t, tt.content)
			}

			ranges, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(ranges) != tt.wantCount {
				t.Errorf("Load() returned %d presets, want %d", len(ranges), tt.wantCount)
			}
		})
	}
}

func TestSeed(t *testing.T) {
	ranges, err := Load(writeFile(t, sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got := Seed(ranges, "high_goal")
	want := vision.FilterRange{HMin: 50, HMax: 90, SMin: 100, SMax: 255, VMin: 60, VMax: 255}
	if got != want {
		t.Errorf("Seed(high_goal) = %v, want %v", got, want)
	}

	if got := Seed(ranges, "unknown"); got != vision.OpenRange() {
		t.Errorf("Seed(unknown) = %v, want open range", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	r := vision.FilterRange{HMin: 30, HMax: 90, SMin: 50, SMax: 200, VMin: 20, VMax: 255}

	if err := Save(path, []Range{FromFilter("high_goal", r)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	ranges, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := Seed(ranges, "high_goal"); got != r {
		t.Errorf("round trip = %v, want %v", got, r)
	}
}

func TestUpsert(t *testing.T) {
	base := []Range{
		{Name: "high_goal", HSVRange: []int{0, 1, 2, 3, 4, 5}},
		{Name: "gear_peg", HSVRange: []int{20, 35, 100, 255, 100, 255}},
	}

	got := Upsert(base, Range{Name: "high_goal", HSVRange: []int{50, 90, 100, 255, 60, 255}})
	if len(got) != 2 || got[0].HSVRange[0] != 50 || got[1].Name != "gear_peg" {
		t.Errorf("replace = %v", got)
	}
	if base[0].HSVRange[0] != 0 {
		t.Error("Upsert modified its input")
	}

	got = Upsert(base, Range{Name: "boiler", HSVRange: []int{0, 0, 0, 0, 0, 0}})
	if len(got) != 3 || got[2].Name != "boiler" {
		t.Errorf("append = %v", got)
	}

	if got := Upsert(nil, FromFilter("high_goal", vision.OpenRange())); len(got) != 1 {
		t.Errorf("upsert into empty = %v", got)
	}
}

func TestSaveRange(t *testing.T) {
	r := FromFilter("high_goal", vision.FilterRange{HMin: 1, HMax: 2, SMin: 3, SMax: 4, VMin: 5, VMax: 6})

	t.Run("updates existing file", func(t *testing.T) {
		path := writeFile(t, sample)
		if err := SaveRange(path, r); err != nil {
			t.Fatalf("SaveRange error: %v", err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("presets = %d, want 2", len(got))
		}
		if fr := Seed(got, "high_goal"); fr.HMin != 1 || fr.VMax != 6 {
			t.Errorf("high_goal = %v, want the saved range", fr)
		}
		if fr := Seed(got, "gear_peg"); fr.HMin != 20 {
			t.Errorf("gear_peg = %v, want it kept", fr)
		}
	})

	t.Run("creates missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "new.yaml")
		if err := SaveRange(path, r); err != nil {
			t.Fatalf("SaveRange error: %v", err)
		}
		got, err := Load(path)
		if err != nil || len(got) != 1 {
			t.Errorf("Load = %v, %v; want one preset", got, err)
		}
	})

	t.Run("malformed file left alone", func(t *testing.T) {
		const broken = "hsv_ranges: ["
		path := writeFile(t, broken)
		if err := SaveRange(path, r); err == nil {
			t.Fatal("expected error for a malformed preset file")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile error: %v", err)
		}
		if string(data) != broken {
			t.Errorf("file = %q, want unchanged %q", data, broken)
		}
	})
}

func TestGoals(t *testing.T) {
	tests := []struct {
		name       string
		wantAspect float64
	}{
		{"high_goal", 3},
		{"gear_peg", 1.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ok := GetGoal(tt.name)
			if !ok {
				t.Fatalf("GetGoal(%q) not found", tt.name)
			}
			if g.Aspect() != tt.wantAspect {
				t.Errorf("Aspect() = %v, want %v", g.Aspect(), tt.wantAspect)
			}
		})
	}

	if _, ok := GetGoal("boiler"); ok {
		t.Error("unknown goal should not be found")
	}
}
