package mesh

import (
	"reflect"
	"testing"
)

type vert struct {
	X, Y float32
}

func verts(n int) []vert {
	vs := make([]vert, n)
	for i := range vs {
		vs[i] = vert{X: float32(i), Y: float32(i * 2)}
	}
	return vs
}

// triangleSet collects a mesh's index triples for order-independent
// comparison. The triple itself stays ordered because winding matters.
func triangleSet(m Mesh[vert]) map[[3]uint32]bool {
	set := make(map[[3]uint32]bool)
	for i := 0; i < m.TriangleCount(); i++ {
		set[m.Triangle(i)] = true
	}
	return set
}

// TestBuildTriangleCount checks the 2*floor(n/4) triangle rule across
// vertex counts, including the leftover-dropping cases.
func TestBuildTriangleCount(t *testing.T) {
	tests := []struct {
		name          string
		n             int
		wantTriangles int
	}{
		{name: "empty", n: 0, wantTriangles: 0},
		{name: "one vertex", n: 1, wantTriangles: 0},
		{name: "three vertices", n: 3, wantTriangles: 0},
		{name: "one quad", n: 4, wantTriangles: 2},
		{name: "one quad plus leftover", n: 6, wantTriangles: 2},
		{name: "one quad plus three leftover", n: 7, wantTriangles: 2},
		{name: "two quads", n: 8, wantTriangles: 4},
		{name: "many quads", n: 400, wantTriangles: 200},
		{name: "many quads plus leftover", n: 402, wantTriangles: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Build(verts(tt.n))
			if got := m.TriangleCount(); got != tt.wantTriangles {
				t.Errorf("Build(%d vertices) produced %d triangles, want %d", tt.n, got, tt.wantTriangles)
			}
			if len(m.Indices) != tt.wantTriangles*3 {
				t.Errorf("index count = %d, want %d", len(m.Indices), tt.wantTriangles*3)
			}
		})
	}
}

// TestBuildDiagonalSplit pins down the exact per-quad triangles. The split
// along the second/fourth-vertex diagonal is load-bearing for rendering
// parity and must not drift to the other diagonal.
func TestBuildDiagonalSplit(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want [][3]uint32
	}{
		{
			name: "single quad",
			n:    4,
			want: [][3]uint32{{3, 1, 0}, {2, 1, 3}},
		},
		{
			name: "two quads",
			n:    8,
			want: [][3]uint32{{3, 1, 0}, {2, 1, 3}, {7, 5, 4}, {6, 5, 7}},
		},
		{
			name: "quad with trailing pair",
			n:    6,
			want: [][3]uint32{{3, 1, 0}, {2, 1, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Build(verts(tt.n))
			got := triangleSet(m)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d distinct triangles, want %d", len(got), len(tt.want))
			}
			for _, tri := range tt.want {
				if !got[tri] {
					t.Errorf("missing triangle %v (got %v)", tri, got)
				}
			}
		})
	}
}

// TestBuildVerticesPassThrough verifies the mesh carries the input slice
// unchanged, leftovers included.
func TestBuildVerticesPassThrough(t *testing.T) {
	for _, n := range []int{0, 1, 4, 6, 9, 40} {
		in := verts(n)
		m := Build(in)
		if !reflect.DeepEqual(m.Vertices, in) {
			t.Errorf("n=%d: vertex slice changed: got %v, want %v", n, m.Vertices, in)
		}
	}
}

// TestBuildLeftoversUnreferenced checks that vertices past the last full
// quad appear in no triangle.
func TestBuildLeftoversUnreferenced(t *testing.T) {
	m := Build(verts(6))
	for _, idx := range m.Indices {
		if idx >= 4 {
			t.Errorf("index %d references a leftover vertex", idx)
		}
	}
}

// TestBuildIdempotent verifies two builds over the same input agree.
func TestBuildIdempotent(t *testing.T) {
	in := verts(12)
	a := Build(in)
	b := Build(in)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated builds differ: %v vs %v", a, b)
	}
}

// TestTriangleAccessor checks Triangle against the raw index slice.
func TestTriangleAccessor(t *testing.T) {
	m := Build(verts(8))
	for i := 0; i < m.TriangleCount(); i++ {
		tri := m.Triangle(i)
		for j := 0; j < 3; j++ {
			if tri[j] != m.Indices[3*i+j] {
				t.Fatalf("Triangle(%d)[%d] = %d, want %d", i, j, tri[j], m.Indices[3*i+j])
			}
		}
	}
}
