package markers

import (
	"fmt"
	"image"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Rect is a texture-coordinate rectangle into the atlas, in [0, 1].
type Rect struct {
	MinU, MinV float32
	MaxU, MaxV float32
}

// Atlas packs marker icons into a single RGBA image on a fixed grid and
// hands out the texture-coordinate cell of each icon.
type Atlas struct {
	Image    *image.RGBA
	CellSize int

	cells map[string]Rect
}

// BuildAtlas scales the given icons into cellSize cells of a square grid.
// Icon names are sorted so the layout is deterministic.
func BuildAtlas(icons map[string]image.Image, cellSize int) (*Atlas, error) {
	if len(icons) == 0 {
		return nil, fmt.Errorf("no icons to pack")
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("invalid cell size %d", cellSize)
	}

	names := make([]string, 0, len(icons))
	for name := range icons {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := int(math.Ceil(math.Sqrt(float64(len(names)))))
	rows := (len(names) + cols - 1) / cols

	dst := image.NewRGBA(image.Rect(0, 0, cols*cellSize, rows*cellSize))
	cells := make(map[string]Rect, len(names))

	for i, name := range names {
		col := i % cols
		row := i / cols
		cell := image.Rect(col*cellSize, row*cellSize, (col+1)*cellSize, (row+1)*cellSize)

		src := icons[name]
		xdraw.CatmullRom.Scale(dst, cell, src, src.Bounds(), xdraw.Over, nil)

		w := float32(dst.Bounds().Dx())
		h := float32(dst.Bounds().Dy())
		cells[name] = Rect{
			MinU: float32(cell.Min.X) / w,
			MinV: float32(cell.Min.Y) / h,
			MaxU: float32(cell.Max.X) / w,
			MaxV: float32(cell.Max.Y) / h,
		}
	}

	return &Atlas{Image: dst, CellSize: cellSize, cells: cells}, nil
}

// LoadAtlas reads all PNG icons from a directory and packs them. The icon
// name is the file name without extension.
func LoadAtlas(dir string, cellSize int) (*Atlas, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read icon directory: %w", err)
	}

	icons := make(map[string]image.Image)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}

		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to open icon %s: %w", entry.Name(), err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode icon %s: %w", entry.Name(), err)
		}

		icons[strings.TrimSuffix(entry.Name(), ".png")] = img
	}

	return BuildAtlas(icons, cellSize)
}

// Cell returns the texture rectangle of an icon.
func (a *Atlas) Cell(name string) (Rect, bool) {
	r, ok := a.cells[name]
	return r, ok
}

// Names returns the packed icon names in layout order.
func (a *Atlas) Names() []string {
	names := make([]string, 0, len(a.cells))
	for name := range a.cells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
