// Package mesh converts flat vertex sequences into indexed triangle meshes.
package mesh

// Mesh pairs a vertex slice with the triangle indices that reference it.
// A mesh is built once and replaced wholesale on the next rebuild; it is
// never mutated in place.
type Mesh[T any] struct {
	Vertices []T
	Indices  []uint32
}

// Build converts vertices grouped in consecutive runs of four into an
// indexed triangle mesh. Quad N occupies vertices [4N, 4N+4) in the order
// bottom-left, bottom-right, top-right, top-left; each quad becomes two
// triangles sharing the diagonal between its second and fourth vertex.
// The vertex slice passes through unchanged. Trailing vertices that do not
// fill a quad stay in the vertex slice but are referenced by no triangle.
func Build[T any](vertices []T) Mesh[T] {
	quads := len(vertices) / 4
	indices := make([]uint32, 0, quads*6)
	for q := 0; q < quads; q++ {
		o := uint32(q * 4)
		indices = append(indices,
			o+3, o+1, o,
			o+2, o+1, o+3,
		)
	}
	return Mesh[T]{Vertices: vertices, Indices: indices}
}

// TriangleCount returns the number of triangles in the mesh.
func (m Mesh[T]) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangle returns the i-th index triple in emission order.
func (m Mesh[T]) Triangle(i int) [3]uint32 {
	return [3]uint32{m.Indices[3*i], m.Indices[3*i+1], m.Indices[3*i+2]}
}
