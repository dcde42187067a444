package mesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/asset/scene"
	"github.com/achilleasa/lumen/asset/texure"
	"github.com/achilleasa/lumen/log"
	"github.com/achilleasa/lumen/types"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const (
	attrPosition = "POSITION"
	attrNormal   = "NORMAL"
	attrTexCoord = "TEXCOORD_0"
)

// Context owns the append-only triangle and texture buffers that are shared
// by all mesh instances of a scene. Meshes must be ingested sequentially.
type Context struct {
	logger log.Logger

	Triangles     []scene.Triangle
	Textures      []scene.Texture
	TextureColors []types.Vec3
}

// Create a new ingestion context with empty buffers.
func NewContext() *Context {
	return &Context{
		logger:        log.New("mesh loader"),
		Triangles:     make([]scene.Triangle, 0),
		Textures:      make([]scene.Texture, 0),
		TextureColors: make([]types.Vec3, 0),
	}
}

// The outcome of ingesting a mesh asset.
type Result struct {
	// The triangles appended to the shared triangle list.
	Triangles scene.TriangleRange

	HasNormals      bool
	HasUVs          bool
	HasAlbedo       bool
	AlbedoTextureID int32

	// Primitives or textures that were skipped.
	Warnings []error
}

// Load a glTF asset from res and append its geometry and albedo textures to
// the context buffers. If an error is returned the context buffers are left
// untouched.
func (ctx *Context) Ingest(res *asset.Resource) (Result, error) {
	doc, err := decodeDocument(res)
	if err != nil {
		return Result{Triangles: scene.EmptyTriangleRange, AlbedoTextureID: -1}, fmt.Errorf("mesh: could not load %s: %w", res.Path(), err)
	}

	return ctx.IngestDocument(doc, res)
}

// Append the geometry of an already decoded glTF document to the context
// buffers. External images are resolved relative to res which may be nil.
func (ctx *Context) IngestDocument(doc *gltf.Document, res *asset.Resource) (Result, error) {
	ld := &loader{
		ctx:           ctx,
		doc:           doc,
		res:           res,
		texIndexCache: make(map[int]int32),
		result: Result{
			Triangles:       scene.EmptyTriangleRange,
			AlbedoTextureID: -1,
		},
	}

	if err := ld.load(); err != nil {
		return Result{Triangles: scene.EmptyTriangleRange, AlbedoTextureID: -1}, err
	}

	// Commit staged data
	start := len(ctx.Triangles)
	ctx.Triangles = append(ctx.Triangles, ld.triangles...)
	ctx.Textures = append(ctx.Textures, ld.textures...)
	ctx.TextureColors = append(ctx.TextureColors, ld.textureColors...)

	ld.result.Triangles = scene.TriangleRange{
		Start: int32(start),
		End:   int32(len(ctx.Triangles) - 1),
	}

	for _, warning := range ld.result.Warnings {
		ctx.logger.Warning(warning.Error())
	}
	ctx.logger.Infof("loaded %d triangles and %d textures from %s", len(ld.triangles), len(ld.textures), ld.name())

	return ld.result, nil
}

func decodeDocument(res *asset.Resource) (*gltf.Document, error) {
	var decoder *gltf.Decoder
	if dir := res.Dir(); dir != "" {
		decoder = gltf.NewDecoderFS(res, os.DirFS(dir))
	} else {
		decoder = gltf.NewDecoder(res)
	}

	doc := new(gltf.Document)
	if err := decoder.Decode(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// A loader stages all data extracted from a single glTF document so that
// it can be committed to the shared buffers in one step.
type loader struct {
	ctx *Context
	doc *gltf.Document
	res *asset.Resource

	triangles     []scene.Triangle
	textures      []scene.Texture
	textureColors []types.Vec3

	// Maps glTF texture indices to scene texture IDs.
	texIndexCache map[int]int32

	result Result
}

func (ld *loader) name() string {
	if ld.res == nil {
		return "embedded mesh"
	}
	return ld.res.Path()
}

func (ld *loader) warn(err error) {
	ld.result.Warnings = append(ld.result.Warnings, fmt.Errorf("mesh: %s: %w", ld.name(), err))
}

func (ld *loader) load() error {
	for meshIndex, m := range ld.doc.Meshes {
		for primIndex, prim := range m.Primitives {
			if err := ld.loadPrimitive(prim); err != nil {
				return fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIndex, err)
			}
		}
	}
	return nil
}

// Extract triangles from a primitive. Unsupported encodings are reported as
// warnings and skip the primitive; a missing or unreadable POSITION attribute
// aborts the whole mesh.
func (ld *loader) loadPrimitive(prim *gltf.Primitive) error {
	posIndex, ok := prim.Attributes[attrPosition]
	if !ok {
		return fmt.Errorf("missing %s attribute", attrPosition)
	}
	posAccessor, err := ld.accessor(posIndex)
	if err != nil {
		return err
	}
	positions, err := modeler.ReadPosition(ld.doc, posAccessor, nil)
	if err != nil {
		return fmt.Errorf("could not read %s attribute: %w", attrPosition, err)
	}

	if prim.Mode != gltf.PrimitiveTriangles {
		ld.warn(fmt.Errorf("%w: primitive mode %v; skipping primitive", asset.ErrUnsupportedAssetFormat, prim.Mode))
		return nil
	}

	var normals [][3]float32
	if index, ok := prim.Attributes[attrNormal]; ok {
		normals, err = ld.readNormals(index, len(positions))
		if err != nil {
			ld.warn(fmt.Errorf("ignoring %s attribute: %w", attrNormal, err))
			normals = nil
		}
	}

	var uvs [][2]float32
	if index, ok := prim.Attributes[attrTexCoord]; ok {
		uvs, err = ld.readUVs(index, len(positions))
		if err != nil {
			ld.warn(fmt.Errorf("ignoring %s attribute: %w", attrTexCoord, err))
			uvs = nil
		}
	}

	// Decode indices or generate a sequential index list
	var indices []uint32
	if prim.Indices != nil {
		idxAccessor, err := ld.accessor(*prim.Indices)
		if err == nil {
			indices, err = readIndices(ld.doc, idxAccessor)
		}
		if err != nil {
			ld.warn(fmt.Errorf("%w; skipping primitive", err))
			return nil
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	for _, index := range indices {
		if int(index) >= len(positions) {
			ld.warn(fmt.Errorf("%w: vertex index %d out of range [0, %d); skipping primitive", asset.ErrUnsupportedAssetFormat, index, len(positions)))
			return nil
		}
	}

	if prim.Material != nil {
		ld.loadAlbedo(*prim.Material)
	}

	vertex := func(index uint32) scene.Vertex {
		v := scene.Vertex{Position: types.Vec3(positions[index])}
		if normals != nil {
			v.Normal = types.Vec3(normals[index])
		}
		if uvs != nil {
			v.UV = types.Vec2(uvs[index])
		}
		return v
	}

	for i := 0; i+2 < len(indices); i += 3 {
		ld.triangles = append(ld.triangles, scene.Triangle{
			V0: vertex(indices[i]),
			V1: vertex(indices[i+1]),
			V2: vertex(indices[i+2]),
		})
	}

	ld.result.HasNormals = ld.result.HasNormals || normals != nil
	ld.result.HasUVs = ld.result.HasUVs || uvs != nil
	return nil
}

func (ld *loader) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(ld.doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}
	return ld.doc.Accessors[index], nil
}

func (ld *loader) readNormals(index, vertexCount int) ([][3]float32, error) {
	acr, err := ld.accessor(index)
	if err != nil {
		return nil, err
	}
	normals, err := modeler.ReadNormal(ld.doc, acr, nil)
	if err != nil {
		return nil, err
	}
	if len(normals) < vertexCount {
		return nil, fmt.Errorf("expected %d normals; got %d", vertexCount, len(normals))
	}
	return normals, nil
}

func (ld *loader) readUVs(index, vertexCount int) ([][2]float32, error) {
	acr, err := ld.accessor(index)
	if err != nil {
		return nil, err
	}
	uvs, err := modeler.ReadTextureCoord(ld.doc, acr, nil)
	if err != nil {
		return nil, err
	}
	if len(uvs) < vertexCount {
		return nil, fmt.Errorf("expected %d uvs; got %d", vertexCount, len(uvs))
	}
	return uvs, nil
}

// Decode an index accessor. Only dense 16 and 32-bit unsigned indices are
// supported.
func readIndices(doc *gltf.Document, acr *gltf.Accessor) ([]uint32, error) {
	var width int
	switch acr.ComponentType {
	case gltf.ComponentUshort:
		width = 2
	case gltf.ComponentUint:
		width = 4
	default:
		return nil, fmt.Errorf("%w: index component type %v", asset.ErrUnsupportedAssetFormat, acr.ComponentType)
	}

	if acr.Sparse != nil {
		return nil, fmt.Errorf("%w: sparse index accessor", asset.ErrUnsupportedAssetFormat)
	}

	indices := make([]uint32, acr.Count)
	if acr.BufferView == nil || acr.Count == 0 {
		return indices, nil
	}
	if *acr.BufferView < 0 || *acr.BufferView >= len(doc.BufferViews) {
		return nil, fmt.Errorf("%w: buffer view index %d out of range", asset.ErrUnsupportedAssetFormat, *acr.BufferView)
	}
	bv := doc.BufferViews[*acr.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("%w: buffer index %d out of range", asset.ErrUnsupportedAssetFormat, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data

	stride := bv.ByteStride
	if stride == 0 {
		stride = width
	}
	offset := bv.ByteOffset + acr.ByteOffset
	if end := offset + (acr.Count-1)*stride + width; end > len(data) {
		return nil, fmt.Errorf("%w: index data exceeds buffer length (%d > %d)", asset.ErrUnsupportedAssetFormat, end, len(data))
	}

	for i := range indices {
		at := offset + i*stride
		if width == 2 {
			indices[i] = uint32(binary.LittleEndian.Uint16(data[at:]))
		} else {
			indices[i] = binary.LittleEndian.Uint32(data[at:])
		}
	}
	return indices, nil
}

// Bake the base color texture of a glTF material into the staged texture
// buffers. Failures are reported as warnings.
func (ld *loader) loadAlbedo(matIndex int) {
	if matIndex < 0 || matIndex >= len(ld.doc.Materials) {
		ld.warn(fmt.Errorf("material index %d out of range; ignoring material", matIndex))
		return
	}
	pbr := ld.doc.Materials[matIndex].PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorTexture == nil {
		return
	}

	texIndex := pbr.BaseColorTexture.Index
	if texID, exists := ld.texIndexCache[texIndex]; exists {
		ld.setAlbedo(texID)
		return
	}

	tex, err := ld.decodeTexture(texIndex)
	if err != nil {
		ld.warn(fmt.Errorf("skipping albedo texture %d: %w", texIndex, err))
		return
	}
	texels, err := tex.Texels()
	if err != nil {
		ld.warn(fmt.Errorf("skipping albedo texture %d: %w", texIndex, err))
		return
	}
	if len(texels) == 0 {
		ld.warn(fmt.Errorf("skipping empty albedo texture %d", texIndex))
		return
	}

	texID := int32(len(ld.ctx.Textures) + len(ld.textures))
	startIdx := uint32(len(ld.ctx.TextureColors) + len(ld.textureColors))
	ld.textureColors = append(ld.textureColors, texels...)
	ld.textures = append(ld.textures, scene.Texture{
		ID:          uint32(texID),
		Width:       tex.Width,
		Height:      tex.Height,
		NumChannels: uint32(tex.Channels),
		Usage:       scene.AlbedoMap,
		StartIdx:    startIdx,
		EndIdx:      startIdx + uint32(len(texels)) - 1,
	})

	ld.texIndexCache[texIndex] = texID
	ld.setAlbedo(texID)
}

func (ld *loader) setAlbedo(texID int32) {
	ld.result.HasAlbedo = true
	ld.result.AlbedoTextureID = texID
}

func (ld *loader) decodeTexture(texIndex int) (*texture.Texture, error) {
	if texIndex < 0 || texIndex >= len(ld.doc.Textures) {
		return nil, fmt.Errorf("texture index out of range")
	}
	src := ld.doc.Textures[texIndex].Source
	if src == nil || *src < 0 || *src >= len(ld.doc.Images) {
		return nil, fmt.Errorf("texture does not reference an image")
	}
	img := ld.doc.Images[*src]

	var data []byte
	var err error
	switch {
	case img.BufferView != nil:
		data, err = ld.bufferViewData(*img.BufferView)
	case img.IsEmbeddedResource():
		data, err = img.MarshalData()
	case img.URI != "":
		data, err = ld.readExternal(img.URI)
	default:
		err = fmt.Errorf("image %d does not define any data", *src)
	}
	if err != nil {
		return nil, err
	}

	return texture.Decode(bytes.NewReader(data))
}

func (ld *loader) bufferViewData(index int) ([]byte, error) {
	if index < 0 || index >= len(ld.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view index %d out of range", index)
	}
	bv := ld.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(ld.doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}
	data := ld.doc.Buffers[bv.Buffer].Data
	if bv.ByteOffset+bv.ByteLength > len(data) {
		return nil, fmt.Errorf("buffer view %d exceeds buffer length", index)
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

func (ld *loader) readExternal(uri string) ([]byte, error) {
	res, err := asset.NewResource(uri, ld.res)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return io.ReadAll(res)
}
