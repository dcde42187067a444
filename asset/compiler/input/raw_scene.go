package input

import (
	"sort"

	"github.com/achilleasa/lumen/asset"
)

// Material definition. The fields that are read depend on the material type.
type Material struct {
	Type      string      `json:"TYPE" yaml:"TYPE"`
	RGB       *[3]float32 `json:"RGB,omitempty" yaml:"RGB,omitempty"`
	Emittance *float32    `json:"EMITTANCE,omitempty" yaml:"EMITTANCE,omitempty"`
	Roughness *float32    `json:"ROUGHNESS,omitempty" yaml:"ROUGHNESS,omitempty"`
	SpecRGB   *[3]float32 `json:"SPECRGB,omitempty" yaml:"SPECRGB,omitempty"`
	IOR       *float32    `json:"IOR,omitempty" yaml:"IOR,omitempty"`
}

// An object instance.
type Object struct {
	Type     string      `json:"TYPE" yaml:"TYPE"`
	Material string      `json:"MATERIAL" yaml:"MATERIAL"`
	Trans    *[3]float32 `json:"TRANS,omitempty" yaml:"TRANS,omitempty"`
	Rotat    *[3]float32 `json:"ROTAT,omitempty" yaml:"ROTAT,omitempty"`
	Scale    *[3]float32 `json:"SCALE,omitempty" yaml:"SCALE,omitempty"`

	// Mesh asset reference (mesh objects only).
	File string `json:"FILE,omitempty" yaml:"FILE,omitempty"`
}

// Camera and render settings.
type Camera struct {
	Res         *[2]int32   `json:"RES,omitempty" yaml:"RES,omitempty"`
	FovY        *float32    `json:"FOVY,omitempty" yaml:"FOVY,omitempty"`
	Iterations  *uint32     `json:"ITERATIONS,omitempty" yaml:"ITERATIONS,omitempty"`
	Depth       *uint32     `json:"DEPTH,omitempty" yaml:"DEPTH,omitempty"`
	File        *string     `json:"FILE,omitempty" yaml:"FILE,omitempty"`
	Eye         *[3]float32 `json:"EYE,omitempty" yaml:"EYE,omitempty"`
	LookAt      *[3]float32 `json:"LOOKAT,omitempty" yaml:"LOOKAT,omitempty"`
	Up          *[3]float32 `json:"UP,omitempty" yaml:"UP,omitempty"`
	LensRadius  *float32    `json:"LENSRADIUS,omitempty" yaml:"LENSRADIUS,omitempty"`
	FocalLength *float32    `json:"FOCALLENGTH,omitempty" yaml:"FOCALLENGTH,omitempty"`
}

// The scene document as decoded by a scene reader. It is processed by the
// scene compiler into an optimized scene.
type Document struct {
	Materials map[string]*Material `json:"Materials" yaml:"Materials"`
	Objects   []*Object            `json:"Objects" yaml:"Objects"`
	Camera    *Camera              `json:"Camera" yaml:"Camera"`

	// The resource the document was read from. Mesh references are resolved
	// relative to it.
	Source *asset.Resource `json:"-" yaml:"-"`
}

// Get material names in ascending order. Materials are assigned indices in
// this order.
func (d *Document) MaterialNames() []string {
	names := make([]string, 0, len(d.Materials))
	for name := range d.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
