package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/lumen/types"
	"github.com/olekukonko/tablewriter"
)

// Material properties. Materials are referenced by index from geometry instances.
type Material struct {
	Color types.Vec3

	// Emitted radiance scaler; non-zero for light sources.
	Emittance float32

	// 1 - roughness for specular materials, 0 otherwise.
	HasReflective float32

	// 1 for refractive materials, 0 otherwise.
	HasRefractive float32

	IndexOfRefraction float32

	SpecularColor types.Vec3
}

// The type of a geometry instance.
type GeomType uint32

const (
	Cube GeomType = iota
	Sphere
	Mesh
)

func (t GeomType) String() string {
	switch t {
	case Cube:
		return "cube"
	case Sphere:
		return "sphere"
	case Mesh:
		return "mesh"
	}
	return fmt.Sprintf("GeomType(%d)", uint32(t))
}

// An inclusive range of indices into the scene triangle list.
type TriangleRange struct {
	Start int32
	End   int32
}

// A range that does not reference any triangle.
var EmptyTriangleRange = TriangleRange{Start: -1, End: -1}

// Returns true if the range does not contain any triangle.
func (r TriangleRange) Empty() bool {
	return r.Start < 0 || r.End < r.Start
}

// Get the number of triangles in the range.
func (r TriangleRange) Len() int {
	if r.Empty() {
		return 0
	}
	return int(r.End-r.Start) + 1
}

// A geometry instance positions an implicit surface or a mesh in the scene.
type Geom struct {
	GeometryID uint32
	Type       GeomType
	MaterialID uint32

	Translation types.Vec3
	// Euler angles in degrees.
	Rotation types.Vec3
	Scale    types.Vec3

	Transform        types.Mat4
	InverseTransform types.Mat4
	// Used for transforming normals.
	InvTranspose types.Mat4

	// Mesh instances only.
	Triangles       TriangleRange
	HasNormals      bool
	HasUVs          bool
	HasAlbedo       bool
	AlbedoTextureID int32
}

// A triangle vertex. Normals and UVs are zero when the source mesh does not
// define them.
type Vertex struct {
	Position types.Vec3
	Normal   types.Vec3
	UV       types.Vec2
}

type Triangle struct {
	V0, V1, V2 Vertex
}

// Get the bounding box of the triangle vertices.
func (t *Triangle) BBox() types.AABB {
	return types.EmptyAABB().Expand(t.V0.Position).Expand(t.V1.Position).Expand(t.V2.Position)
}

// Get the triangle centroid.
func (t *Triangle) Centroid() types.Vec3 {
	return t.V0.Position.Add(t.V1.Position).Add(t.V2.Position).Mul(1.0 / 3.0)
}

// The intended use of a texture.
type TextureUsage uint32

const (
	AlbedoMap TextureUsage = iota
	EnvironmentMap
)

// The texture metadata. Texel colors for all textures are stored as a
// contiguous list of normalized RGB values.
type Texture struct {
	ID uint32

	Width       uint32
	Height      uint32
	NumChannels uint32

	Usage TextureUsage

	// Inclusive range of texels in the scene texture color list.
	StartIdx uint32
	EndIdx   uint32
}

// Bvh nodes are stored in a flat list in depth-first (pre-order) order with
// the root at index 0. Leaves reference Count entries of the scene's
// PrimitiveIndices list starting at Start; internal nodes reference their
// children by index. Unused fields are set to -1.
type BvhNode struct {
	BBox types.AABB

	IsLeaf bool

	Start int32
	Count int32

	Left  int32
	Right int32
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right int32) {
	n.IsLeaf = false
	n.Left = left
	n.Right = right
	n.Start = -1
	n.Count = 0
}

// Set primitive index and count.
func (n *BvhNode) SetPrimitives(firstPrimIndex, count int32) {
	n.IsLeaf = true
	n.Start = firstPrimIndex
	n.Count = count
	n.Left = -1
	n.Right = -1
}

// Get primitive index and count.
func (n *BvhNode) GetPrimitives() (firstPrimIndex, count int32) {
	return n.Start, n.Count
}

type Scene struct {
	// A unique identifier generated for each compiled scene.
	BuildID string

	Materials []Material
	Geoms     []Geom

	// Triangles for all mesh instances.
	Triangles []Triangle

	// Texture definitions and the associated data.
	Textures      []Texture
	TextureColors []types.Vec3

	// Index of the environment map texture or -1 if no skybox is used.
	SkyboxTextureID int32

	// The flattened BVH and the triangle indices referenced by its leaves.
	BvhNodes         []BvhNode
	PrimitiveIndices []uint32
	MaxLeafSize      int

	State RenderState
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", "", fmtSize(sc.Triangles, sc.BvhNodes, sc.PrimitiveIndices)})
	table.Append([]string{"", "Triangles", fmt.Sprint(len(sc.Triangles)), fmtSize(sc.Triangles)})
	table.Append([]string{"", "BVH nodes", fmt.Sprint(len(sc.BvhNodes)), fmtSize(sc.BvhNodes)})
	table.Append([]string{"", "BVH prim. indices", fmt.Sprint(len(sc.PrimitiveIndices)), fmtSize(sc.PrimitiveIndices)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Instances", "---", "", fmtSize(sc.Geoms)})
	table.Append([]string{"", "Geometry instances", fmt.Sprint(len(sc.Geoms)), fmtSize(sc.Geoms)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Materials", "---", fmt.Sprint(len(sc.Materials)), fmtSize(sc.Materials)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Textures", "---", "", fmtSize(sc.Textures, sc.TextureColors)})
	table.Append([]string{"", "Metadata", fmt.Sprint(len(sc.Textures)), fmtSize(sc.Textures)})
	table.Append([]string{"", "Texels", fmt.Sprint(len(sc.TextureColors)), fmtSize(sc.TextureColors)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Render state", "---", "", fmtSize(sc.State.Image)})
	table.Append([]string{"", "Accumulation buffer", fmt.Sprint(len(sc.State.Image)), fmtSize(sc.State.Image)})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.Triangles, sc.BvhNodes, sc.PrimitiveIndices, sc.Geoms, sc.Materials, sc.Textures, sc.TextureColors, sc.State.Image), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
