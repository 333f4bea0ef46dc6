package markers

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solidIcon(c color.RGBA, size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestBuildAtlasLayout(t *testing.T) {
	tests := []struct {
		name     string
		icons    []string
		wantCols int
		wantRows int
	}{
		{name: "single", icons: []string{"pin"}, wantCols: 1, wantRows: 1},
		{name: "two", icons: []string{"pin", "star"}, wantCols: 2, wantRows: 1},
		{name: "five", icons: []string{"a", "b", "c", "d", "e"}, wantCols: 3, wantRows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			icons := make(map[string]image.Image)
			for _, n := range tt.icons {
				icons[n] = solidIcon(color.RGBA{R: 255, A: 255}, 16)
			}

			a, err := BuildAtlas(icons, 32)
			if err != nil {
				t.Fatalf("BuildAtlas: %v", err)
			}

			b := a.Image.Bounds()
			if b.Dx() != tt.wantCols*32 || b.Dy() != tt.wantRows*32 {
				t.Errorf("atlas size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantCols*32, tt.wantRows*32)
			}
			if len(a.Names()) != len(tt.icons) {
				t.Errorf("packed %d icons, want %d", len(a.Names()), len(tt.icons))
			}
		})
	}
}

func TestBuildAtlasCellsDisjoint(t *testing.T) {
	icons := map[string]image.Image{
		"a": solidIcon(color.RGBA{R: 255, A: 255}, 16),
		"b": solidIcon(color.RGBA{G: 255, A: 255}, 16),
		"c": solidIcon(color.RGBA{B: 255, A: 255}, 16),
	}
	a, err := BuildAtlas(icons, 32)
	if err != nil {
		t.Fatalf("BuildAtlas: %v", err)
	}

	names := a.Names()
	for i, n1 := range names {
		r1, ok := a.Cell(n1)
		if !ok {
			t.Fatalf("no cell for %s", n1)
		}
		if r1.MinU < 0 || r1.MaxU > 1 || r1.MinV < 0 || r1.MaxV > 1 || r1.MinU >= r1.MaxU || r1.MinV >= r1.MaxV {
			t.Errorf("cell %s malformed: %+v", n1, r1)
		}
		for _, n2 := range names[i+1:] {
			r2, _ := a.Cell(n2)
			overlapU := r1.MinU < r2.MaxU && r2.MinU < r1.MaxU
			overlapV := r1.MinV < r2.MaxV && r2.MinV < r1.MaxV
			if overlapU && overlapV {
				t.Errorf("cells %s and %s overlap: %+v vs %+v", n1, n2, r1, r2)
			}
		}
	}
}

func TestBuildAtlasScalesIcons(t *testing.T) {
	// A 16px icon in a 32px cell must fill the cell, not a 16px corner.
	a, err := BuildAtlas(map[string]image.Image{
		"solid": solidIcon(color.RGBA{R: 200, G: 10, B: 10, A: 255}, 16),
	}, 32)
	if err != nil {
		t.Fatalf("BuildAtlas: %v", err)
	}

	// Sample near the far corner of the cell.
	r, _, _, alpha := a.Image.At(30, 30).RGBA()
	if alpha == 0 || r == 0 {
		t.Errorf("cell corner not covered: r=%d alpha=%d", r, alpha)
	}
}

func TestBuildAtlasEmpty(t *testing.T) {
	if _, err := BuildAtlas(nil, 32); err == nil {
		t.Error("expected error for empty icon set")
	}
	if _, err := BuildAtlas(map[string]image.Image{"a": solidIcon(color.RGBA{A: 255}, 8)}, 0); err == nil {
		t.Error("expected error for zero cell size")
	}
}

func TestLoadAtlas(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"pin", "star"} {
		f, err := os.Create(filepath.Join(dir, name+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, solidIcon(color.RGBA{R: 128, A: 255}, 16)); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	// Non-PNG files are skipped.
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := LoadAtlas(dir, 32)
	if err != nil {
		t.Fatalf("LoadAtlas: %v", err)
	}

	names := a.Names()
	if len(names) != 2 || names[0] != "pin" || names[1] != "star" {
		t.Errorf("loaded icons = %v, want [pin star]", names)
	}
}

func TestLoadAtlasMissingDir(t *testing.T) {
	if _, err := LoadAtlas(filepath.Join(t.TempDir(), "missing"), 32); err == nil {
		t.Error("expected error for missing directory")
	}
}
