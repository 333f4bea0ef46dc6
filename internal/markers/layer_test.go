package markers

import (
	"image"
	"image/color"
	"testing"

	"github.com/paulmach/orb"
)

func testAtlas(t *testing.T, names ...string) *Atlas {
	t.Helper()
	icons := make(map[string]image.Image, len(names))
	for i, name := range names {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		img.Set(0, 0, color.RGBA{R: uint8(i + 1), A: 255})
		icons[name] = img
	}
	a, err := BuildAtlas(icons, 32)
	if err != nil {
		t.Fatalf("BuildAtlas: %v", err)
	}
	return a
}

func TestLayerStateMachine(t *testing.T) {
	l := NewLayer("pin", 32)
	if l.State() != TextureLoading {
		t.Fatalf("initial state = %v, want loading", l.State())
	}

	l.SetAtlas(testAtlas(t, "pin"))
	if l.State() != TextureReady {
		t.Fatalf("state after SetAtlas = %v, want ready", l.State())
	}

	// Completion is one-shot: a late failure must not regress the state.
	l.FailTexture()
	if l.State() != TextureReady {
		t.Errorf("state after late FailTexture = %v, want ready", l.State())
	}
}

func TestLayerFailureIsSticky(t *testing.T) {
	l := NewLayer("pin", 32)
	l.FailTexture()
	if l.State() != TextureFailed {
		t.Fatalf("state = %v, want failed", l.State())
	}

	l.SetAtlas(testAtlas(t, "pin"))
	if l.State() != TextureFailed {
		t.Errorf("state after late SetAtlas = %v, want failed", l.State())
	}
	if _, _, ok := l.Mesh(); ok {
		t.Error("failed layer produced a mesh")
	}
}

func TestMeshGatedOnTexture(t *testing.T) {
	l := NewLayer("pin", 32)
	l.SetMarkers([]Marker{{Name: "a", Location: orb.Point{4.9, 52.3}}})

	if _, _, ok := l.Mesh(); ok {
		t.Fatal("mesh produced before atlas load")
	}

	l.SetAtlas(testAtlas(t, "pin"))
	m, _, ok := l.Mesh()
	if !ok {
		t.Fatal("no mesh after atlas load")
	}
	if len(m.Vertices) != 4 {
		t.Errorf("vertex count = %d, want 4", len(m.Vertices))
	}
	if m.TriangleCount() != 2 {
		t.Errorf("triangle count = %d, want 2", m.TriangleCount())
	}
}

func TestMeshRebuildOnlyWhenDirty(t *testing.T) {
	l := NewLayer("pin", 32)
	l.SetAtlas(testAtlas(t, "pin"))
	l.SetMarkers([]Marker{{Location: orb.Point{0, 0}}})

	_, v1, ok := l.Mesh()
	if !ok {
		t.Fatal("no mesh")
	}
	_, v2, _ := l.Mesh()
	if v1 != v2 {
		t.Errorf("version changed without a marker update: %d -> %d", v1, v2)
	}

	l.SetMarkers([]Marker{{Location: orb.Point{1, 1}}, {Location: orb.Point{2, 2}}})
	m, v3, _ := l.Mesh()
	if v3 == v2 {
		t.Error("version unchanged after marker update")
	}
	if len(m.Vertices) != 8 || m.TriangleCount() != 4 {
		t.Errorf("rebuilt mesh has %d vertices, %d triangles; want 8, 4", len(m.Vertices), m.TriangleCount())
	}
}

func TestVertexQuadOrder(t *testing.T) {
	l := NewLayer("pin", 32)
	l.SetAtlas(testAtlas(t, "pin"))
	l.SetMarkers([]Marker{{Location: orb.Point{4.9041, 52.3676}, OffsetX: 3, OffsetY: -2}})

	m, _, ok := l.Mesh()
	if !ok {
		t.Fatal("no mesh")
	}
	if len(m.Vertices) != 4 {
		t.Fatalf("vertex count = %d, want 4", len(m.Vertices))
	}

	bl, br, tr, tl := m.Vertices[0], m.Vertices[1], m.Vertices[2], m.Vertices[3]

	// All corners share the anchor position.
	for i, v := range m.Vertices {
		if v.Position != bl.Position {
			t.Errorf("vertex %d position %v differs from anchor %v", i, v.Position, bl.Position)
		}
	}

	// Screen offsets: left corners west of right corners, top corners above
	// (smaller y than) bottom corners.
	if !(bl.Offset[0] < br.Offset[0] && tl.Offset[0] < tr.Offset[0]) {
		t.Errorf("horizontal order wrong: bl=%v br=%v tl=%v tr=%v", bl.Offset, br.Offset, tl.Offset, tr.Offset)
	}
	if !(tr.Offset[1] < br.Offset[1] && tl.Offset[1] < bl.Offset[1]) {
		t.Errorf("vertical order wrong: bl=%v br=%v tl=%v tr=%v", bl.Offset, br.Offset, tl.Offset, tr.Offset)
	}

	// Texture coords follow the same corner layout (v grows downward).
	if !(bl.TexCoord[0] < br.TexCoord[0] && tl.TexCoord[1] < bl.TexCoord[1]) {
		t.Errorf("texcoord layout wrong: bl=%v br=%v tl=%v", bl.TexCoord, br.TexCoord, tl.TexCoord)
	}

	// The marker's own pixel offset shifts every corner.
	if bl.Offset != [2]float32{3 - 16, -2} {
		t.Errorf("bottom-left offset = %v, want [-13 -2]", bl.Offset)
	}
}

func TestUnknownIconFallsBack(t *testing.T) {
	l := NewLayer("pin", 32)
	l.SetAtlas(testAtlas(t, "pin", "star"))
	l.SetMarkers([]Marker{
		{Icon: "star", Location: orb.Point{0, 0}},
		{Icon: "no-such-icon", Location: orb.Point{1, 1}},
		{Location: orb.Point{2, 2}}, // empty icon name
	})

	m, _, ok := l.Mesh()
	if !ok {
		t.Fatal("no mesh")
	}
	if len(m.Vertices) != 12 {
		t.Errorf("vertex count = %d, want 12 (fallback icons still render)", len(m.Vertices))
	}

	pin, _ := l.Atlas().Cell("pin")
	fallback := m.Vertices[4] // bottom-left of the unknown-icon marker
	if fallback.TexCoord[0] != pin.MinU {
		t.Errorf("unknown icon did not fall back to default cell")
	}
}

func TestSetMarkersCopies(t *testing.T) {
	l := NewLayer("pin", 32)
	in := []Marker{{Name: "a", Location: orb.Point{0, 0}}}
	l.SetMarkers(in)
	in[0].Name = "mutated"

	if got := l.Markers(); got[0].Name != "a" {
		t.Errorf("layer shares caller slice: name = %q", got[0].Name)
	}
}
