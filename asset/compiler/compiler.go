package compiler

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/asset/compiler/bvh"
	"github.com/achilleasa/lumen/asset/compiler/input"
	"github.com/achilleasa/lumen/asset/compiler/mesh"
	"github.com/achilleasa/lumen/asset/scene"
	"github.com/achilleasa/lumen/asset/texure"
	"github.com/achilleasa/lumen/config"
	"github.com/achilleasa/lumen/log"
	"github.com/achilleasa/lumen/types"
	"github.com/google/uuid"
)

// Supported material types.
const (
	MaterialDiffuse    = "Diffuse"
	MaterialEmitting   = "Emitting"
	MaterialSpecular   = "Specular"
	MaterialRefractive = "Refractive"
)

// Supported object types.
const (
	ObjectCube     = "cube"
	ObjectSphere   = "sphere"
	ObjectMeshGltf = "mesh_gltf"
)

type sceneCompiler struct {
	doc            *input.Document
	opts           config.Options
	optimizedScene *scene.Scene
	logger         log.Logger

	// A map of material names to their index in the material list.
	matNameToIndex map[string]uint32

	// Shared triangle and texture buffers populated by mesh ingestion.
	meshCtx *mesh.Context

	// Non-fatal problems encountered while compiling.
	warnings []error
}

// Compile a scene document parsed by a scene reader into a flat,
// GPU-friendly optimized scene.
//
// Problems that only affect a single object, primitive or texture are
// returned as a list of warnings; the affected items are skipped. A non-nil
// error indicates that the scene could not be compiled.
func Compile(doc *input.Document, opts config.Options) (*scene.Scene, []error, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	compiler := &sceneCompiler{
		doc:  doc,
		opts: opts,
		optimizedScene: &scene.Scene{
			BuildID:         uuid.NewString(),
			SkyboxTextureID: -1,
			MaxLeafSize:     opts.Bvh.MaxLeafSize,
		},
		logger:         log.New("scene compiler"),
		matNameToIndex: make(map[string]uint32),
		meshCtx:        mesh.NewContext(),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene")

	var err error
	err = compiler.loadSkybox()
	if err != nil {
		return nil, nil, err
	}

	err = compiler.createMaterials()
	if err != nil {
		return nil, nil, err
	}

	compiler.createGeometry()

	err = compiler.setupCamera()
	if err != nil {
		return nil, nil, err
	}

	compiler.partitionGeometry()

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, compiler.warnings, nil
}

func (sc *sceneCompiler) warn(err error) {
	sc.logger.Warning(err.Error())
	sc.warnings = append(sc.warnings, err)
}

// Resolve a path relative to the scene document.
func (sc *sceneCompiler) openResource(pathToResource string) (*asset.Resource, error) {
	return asset.NewResource(pathToResource, sc.doc.Source)
}

// Load the environment map into the texture list.
func (sc *sceneCompiler) loadSkybox() error {
	if sc.opts.Skybox == "" {
		return nil
	}

	sc.logger.Infof("loading skybox %q", sc.opts.Skybox)
	res, err := sc.openResource(sc.opts.Skybox)
	if err != nil {
		return fmt.Errorf("skybox: %w: %v", asset.ErrFatalIO, err)
	}
	defer res.Close()

	tex, err := texture.New(res)
	if err != nil {
		return fmt.Errorf("skybox: %w: %v", asset.ErrFatalIO, err)
	}
	texels, err := tex.Texels()
	if err != nil {
		return fmt.Errorf("skybox: %w: %v", asset.ErrFatalIO, err)
	}

	ctx := sc.meshCtx
	texID := uint32(len(ctx.Textures))
	startIdx := uint32(len(ctx.TextureColors))
	ctx.TextureColors = append(ctx.TextureColors, texels...)
	ctx.Textures = append(ctx.Textures, scene.Texture{
		ID:          texID,
		Width:       tex.Width,
		Height:      tex.Height,
		NumChannels: uint32(tex.Channels),
		Usage:       scene.EnvironmentMap,
		StartIdx:    startIdx,
		EndIdx:      startIdx + uint32(len(texels)) - 1,
	})
	sc.optimizedScene.SkyboxTextureID = int32(texID)
	return nil
}

// Convert material definitions. Materials are processed in name order.
func (sc *sceneCompiler) createMaterials() error {
	names := sc.doc.MaterialNames()
	sc.logger.Noticef("processing %d materials", len(names))

	sc.optimizedScene.Materials = make([]scene.Material, 0, len(names))
	for _, name := range names {
		mat, err := convertMaterial(sc.doc.Materials[name])
		if err != nil {
			return fmt.Errorf("material %q: %w", name, err)
		}

		sc.matNameToIndex[name] = uint32(len(sc.optimizedScene.Materials))
		sc.optimizedScene.Materials = append(sc.optimizedScene.Materials, mat)
	}

	return nil
}

func convertMaterial(def *input.Material) (scene.Material, error) {
	var mat scene.Material
	if def == nil {
		return mat, fmt.Errorf("%w: empty material definition", asset.ErrMalformedScene)
	}

	requireRGB := func(field string, v *[3]float32) (types.Vec3, error) {
		if v == nil {
			return types.Vec3{}, fmt.Errorf("%w: %s material is missing %s", asset.ErrMalformedScene, def.Type, field)
		}
		return types.Vec3(*v), nil
	}
	requireFloat := func(field string, v *float32) (float32, error) {
		if v == nil {
			return 0, fmt.Errorf("%w: %s material is missing %s", asset.ErrMalformedScene, def.Type, field)
		}
		return *v, nil
	}

	var err error
	switch def.Type {
	case MaterialDiffuse:
		mat.Color, err = requireRGB("RGB", def.RGB)
	case MaterialEmitting:
		if mat.Color, err = requireRGB("RGB", def.RGB); err == nil {
			mat.Emittance, err = requireFloat("EMITTANCE", def.Emittance)
		}
	case MaterialSpecular:
		var roughness float32
		if mat.Color, err = requireRGB("RGB", def.RGB); err != nil {
			break
		}
		if roughness, err = requireFloat("ROUGHNESS", def.Roughness); err != nil {
			break
		}
		mat.HasReflective = 1.0 - roughness
		mat.SpecularColor, err = requireRGB("SPECRGB", def.SpecRGB)
	case MaterialRefractive:
		if mat.Color, err = requireRGB("RGB", def.RGB); err != nil {
			break
		}
		if mat.IndexOfRefraction, err = requireFloat("IOR", def.IOR); err != nil {
			break
		}
		mat.HasRefractive = 1.0
		mat.SpecularColor, err = requireRGB("SPECRGB", def.SpecRGB)
	default:
		err = fmt.Errorf("%w: unknown material type %q", asset.ErrMalformedScene, def.Type)
	}

	return mat, err
}

// Create geometry instances. Objects that cannot be processed are skipped
// and do not consume a geometry ID.
func (sc *sceneCompiler) createGeometry() {
	start := time.Now()
	sc.logger.Noticef("processing %d objects", len(sc.doc.Objects))

	sc.optimizedScene.Geoms = make([]scene.Geom, 0, len(sc.doc.Objects))
	for objIndex, obj := range sc.doc.Objects {
		geom, err := sc.convertObject(obj)
		if err != nil {
			sc.warn(fmt.Errorf("object %d: %w; skipping object", objIndex, err))
			continue
		}

		geom.GeometryID = uint32(len(sc.optimizedScene.Geoms))
		if geom.Type == scene.Mesh {
			sc.loadMesh(obj.File, &geom)
		}
		sc.optimizedScene.Geoms = append(sc.optimizedScene.Geoms, geom)
	}

	ctx := sc.meshCtx
	sc.optimizedScene.Triangles = ctx.Triangles
	sc.optimizedScene.Textures = ctx.Textures
	sc.optimizedScene.TextureColors = ctx.TextureColors

	sc.logger.Noticef(
		"processed %d geometry instances (%d triangles, %d textures) in %d ms",
		len(sc.optimizedScene.Geoms), len(ctx.Triangles), len(ctx.Textures),
		time.Since(start).Nanoseconds()/1e6,
	)
}

func (sc *sceneCompiler) convertObject(obj *input.Object) (scene.Geom, error) {
	geom := scene.Geom{
		Triangles:       scene.EmptyTriangleRange,
		AlbedoTextureID: -1,
	}
	if obj == nil {
		return geom, fmt.Errorf("%w: empty object definition", asset.ErrMalformedScene)
	}

	switch obj.Type {
	case ObjectCube:
		geom.Type = scene.Cube
	case ObjectSphere:
		geom.Type = scene.Sphere
	case ObjectMeshGltf:
		geom.Type = scene.Mesh
		if obj.File == "" {
			return geom, fmt.Errorf("%w: mesh object is missing FILE", asset.ErrMalformedScene)
		}
	default:
		return geom, fmt.Errorf("%w: unknown object type %q", asset.ErrMalformedScene, obj.Type)
	}

	matIndex, exists := sc.matNameToIndex[obj.Material]
	if !exists {
		return geom, fmt.Errorf("%w: unknown material %q", asset.ErrMalformedScene, obj.Material)
	}
	geom.MaterialID = matIndex

	if obj.Trans == nil || obj.Rotat == nil || obj.Scale == nil {
		return geom, fmt.Errorf("%w: %s object is missing one of TRANS, ROTAT, SCALE", asset.ErrMalformedScene, obj.Type)
	}
	geom.Translation = types.Vec3(*obj.Trans)
	geom.Rotation = types.Vec3(*obj.Rotat)
	geom.Scale = types.Vec3(*obj.Scale)

	geom.Transform = BuildTransform(geom.Translation, geom.Rotation, geom.Scale)
	geom.InverseTransform = geom.Transform.Inv()
	geom.InvTranspose = geom.InverseTransform.Transpose()

	return geom, nil
}

// Build a transformation matrix that applies scaling, followed by a rotation
// around the X, Y and Z axes (Euler angles in degrees) and a translation.
func BuildTransform(translation, rotation, scale types.Vec3) types.Mat4 {
	return types.Translate4(translation).
		Mul4(types.RotateEuler4(rotation)).
		Mul4(types.Scale4(scale))
}

// Ingest the mesh referenced by an object. Failures are reported as warnings
// and leave the instance with an empty triangle range.
func (sc *sceneCompiler) loadMesh(file string, geom *scene.Geom) {
	meshPath := ResolveMeshPath(file, sc.opts.ResourceRoot)
	sc.logger.Infof("loading mesh %q for geometry %d", meshPath, geom.GeometryID)

	res, err := sc.openResource(meshPath)
	if err != nil {
		sc.warn(fmt.Errorf("geometry %d: %w: %v", geom.GeometryID, asset.ErrPartialLoad, err))
		return
	}
	defer res.Close()

	result, err := sc.meshCtx.Ingest(res)
	if err != nil {
		sc.warn(fmt.Errorf("geometry %d: %w: %v", geom.GeometryID, asset.ErrPartialLoad, err))
		return
	}
	sc.warnings = append(sc.warnings, result.Warnings...)

	geom.Triangles = result.Triangles
	geom.HasNormals = result.HasNormals
	geom.HasUVs = result.HasUVs
	geom.HasAlbedo = result.HasAlbedo
	geom.AlbedoTextureID = result.AlbedoTextureID
}

// Get the path to a mesh asset. Paths to .gltf and .glb files are returned
// unchanged; a bare asset name N maps to <resourceRoot>/N/glTF/N.gltf.
func ResolveMeshPath(file, resourceRoot string) string {
	switch strings.ToLower(path.Ext(file)) {
	case ".gltf", ".glb":
		return file
	}
	return path.Join(resourceRoot, file, "glTF", file+".gltf")
}

func (sc *sceneCompiler) setupCamera() error {
	def := sc.doc.Camera
	if def == nil {
		return fmt.Errorf("camera: %w: missing camera definition", asset.ErrMalformedScene)
	}

	var missing []string
	if def.Res == nil {
		missing = append(missing, "RES")
	}
	if def.FovY == nil {
		missing = append(missing, "FOVY")
	}
	if def.Iterations == nil {
		missing = append(missing, "ITERATIONS")
	}
	if def.Depth == nil {
		missing = append(missing, "DEPTH")
	}
	if def.File == nil {
		missing = append(missing, "FILE")
	}
	if def.Eye == nil {
		missing = append(missing, "EYE")
	}
	if def.LookAt == nil {
		missing = append(missing, "LOOKAT")
	}
	if def.Up == nil {
		missing = append(missing, "UP")
	}
	if sc.opts.DepthOfField {
		if def.LensRadius == nil {
			missing = append(missing, "LENSRADIUS")
		}
		if def.FocalLength == nil {
			missing = append(missing, "FOCALLENGTH")
		}
	}
	if len(missing) != 0 {
		return fmt.Errorf("camera: %w: missing %s", asset.ErrMalformedScene, strings.Join(missing, ", "))
	}
	if def.Res[0] <= 0 || def.Res[1] <= 0 {
		return fmt.Errorf("camera: %w: invalid resolution %dx%d", asset.ErrMalformedScene, def.Res[0], def.Res[1])
	}

	state := &sc.optimizedScene.State
	state.Iterations = *def.Iterations
	state.TraceDepth = *def.Depth
	state.ImageName = *def.File

	camera := &state.Camera
	camera.Resolution = *def.Res
	camera.Position = types.Vec3(*def.Eye)
	camera.LookAt = types.Vec3(*def.LookAt)
	camera.Up = types.Vec3(*def.Up)
	if sc.opts.DepthOfField {
		camera.LensRadius = *def.LensRadius
		camera.FocalLength = *def.FocalLength
	}
	camera.Setup(*def.FovY)

	state.AllocImage()
	sc.logger.Infof("camera resolution: %dx%d, fov: %v", camera.Resolution[0], camera.Resolution[1], camera.FOV)
	return nil
}

// Build a BVH over the scene triangles.
func (sc *sceneCompiler) partitionGeometry() {
	if !sc.opts.Bvh.Enabled {
		sc.logger.Notice("BVH construction is disabled")
		return
	}

	sc.logger.Noticef("building BVH tree (%d triangles)", len(sc.optimizedScene.Triangles))
	res := bvh.Build(sc.optimizedScene.Triangles, bvh.Options{
		MaxLeafSize: sc.opts.Bvh.MaxLeafSize,
		Parallel:    sc.opts.Bvh.Parallel,
	})

	sc.optimizedScene.BvhNodes = res.Nodes
	sc.optimizedScene.PrimitiveIndices = res.PrimitiveIndices
	sc.logger.Noticef(
		"partitioned geometry in %d ms (nodes: %d, leafs: %d, max depth: %d)",
		res.Stats.BuildTime.Nanoseconds()/1e6, res.Stats.Nodes, res.Stats.Leafs, res.Stats.MaxDepth,
	)
}
