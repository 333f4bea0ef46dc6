// Package markers maintains the marker overlay: the marker set, the icon
// atlas and its load state, and the quad geometry handed to the renderer.
package markers

import (
	"sync"

	"github.com/paulmach/orb"

	"markermap/pkg/mesh"
	"markermap/pkg/tiles"
)

// Marker is a map overlay icon anchored at a geographic coordinate.
type Marker struct {
	Name     string
	Icon     string
	Location orb.Point // lon, lat

	// OffsetX/OffsetY shift the icon from its anchor, in pixels.
	OffsetX float32
	OffsetY float32
}

// Vertex is the per-corner payload of a marker quad. The mesher treats it
// as opaque; the renderer reads all three attributes.
type Vertex struct {
	Position [2]float32 // Web Mercator unit coordinates
	TexCoord [2]float32 // atlas coordinates
	Offset   [2]float32 // screen-pixel offset from the anchor
}

// TextureState tracks the one-shot atlas load.
type TextureState int32

const (
	TextureLoading TextureState = iota
	TextureReady
	TextureFailed
)

func (s TextureState) String() string {
	switch s {
	case TextureLoading:
		return "loading"
	case TextureReady:
		return "ready"
	case TextureFailed:
		return "failed"
	}
	return "unknown"
}

// Layer holds the marker set and rebuilds its mesh wholesale whenever the
// set changes. No mesh exists until the atlas load has completed, and a
// failed load keeps the layer empty for good.
type Layer struct {
	mu          sync.RWMutex
	markers     []Marker
	atlas       *Atlas
	state       TextureState
	defaultIcon string
	sizePx      float32

	mesh    mesh.Mesh[Vertex]
	dirty   bool
	version uint64
}

// NewLayer creates an empty marker layer awaiting its atlas.
func NewLayer(defaultIcon string, sizePx float32) *Layer {
	return &Layer{
		state:       TextureLoading,
		defaultIcon: defaultIcon,
		sizePx:      sizePx,
	}
}

// State returns the atlas load state.
func (l *Layer) State() TextureState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// SetAtlas installs the loaded atlas. Only the first completion counts;
// later calls are ignored so the load stays one-shot.
func (l *Layer) SetAtlas(a *Atlas) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != TextureLoading {
		return
	}
	l.atlas = a
	l.state = TextureReady
	l.dirty = true
}

// FailTexture marks the atlas load as failed. Only the first completion
// counts.
func (l *Layer) FailTexture() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != TextureLoading {
		return
	}
	l.state = TextureFailed
}

// Atlas returns the installed atlas, or nil before the load completes.
func (l *Layer) Atlas() *Atlas {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.atlas
}

// SetIconSize changes the on-screen icon size and schedules a rebuild.
func (l *Layer) SetIconSize(px float32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if px == l.sizePx {
		return
	}
	l.sizePx = px
	l.dirty = true
}

// SetMarkers replaces the marker set and schedules a rebuild.
func (l *Layer) SetMarkers(ms []Marker) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.markers = append([]Marker(nil), ms...)
	l.dirty = true
}

// Markers returns a copy of the current marker set.
func (l *Layer) Markers() []Marker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Marker(nil), l.markers...)
}

// Len returns the marker count.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.markers)
}

// Mesh returns the current marker mesh and a version that increments on
// every rebuild, so the renderer knows when to re-upload buffers. The
// second return is false until the atlas is ready.
func (l *Layer) Mesh() (mesh.Mesh[Vertex], uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != TextureReady {
		return mesh.Mesh[Vertex]{}, 0, false
	}

	if l.dirty {
		l.mesh = mesh.Build(l.vertices())
		l.dirty = false
		l.version++
	}

	return l.mesh, l.version, true
}

// vertices emits four vertices per marker in bottom-left, bottom-right,
// top-right, top-left order. Callers hold l.mu.
func (l *Layer) vertices() []Vertex {
	out := make([]Vertex, 0, len(l.markers)*4)

	for _, m := range l.markers {
		icon := m.Icon
		if icon == "" {
			icon = l.defaultIcon
		}
		cell, ok := l.atlas.Cell(icon)
		if !ok {
			cell, ok = l.atlas.Cell(l.defaultIcon)
			if !ok {
				continue
			}
		}

		x, y := tiles.Project(m.Location.Lat(), m.Location.Lon())
		pos := [2]float32{float32(x), float32(y)}

		half := l.sizePx / 2
		// Anchor sits at the quad's bottom edge center: the icon points at
		// the coordinate and extends upward. Screen y grows downward, so
		// "up" is a negative offset.
		bl := [2]float32{m.OffsetX - half, m.OffsetY}
		br := [2]float32{m.OffsetX + half, m.OffsetY}
		tr := [2]float32{m.OffsetX + half, m.OffsetY - l.sizePx}
		tl := [2]float32{m.OffsetX - half, m.OffsetY - l.sizePx}

		out = append(out,
			Vertex{Position: pos, TexCoord: [2]float32{cell.MinU, cell.MaxV}, Offset: bl},
			Vertex{Position: pos, TexCoord: [2]float32{cell.MaxU, cell.MaxV}, Offset: br},
			Vertex{Position: pos, TexCoord: [2]float32{cell.MaxU, cell.MinV}, Offset: tr},
			Vertex{Position: pos, TexCoord: [2]float32{cell.MinU, cell.MinV}, Offset: tl},
		)
	}

	return out
}
