package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/asset/compiler"
	"github.com/achilleasa/lumen/asset/compiler/input"
	"github.com/achilleasa/lumen/asset/scene"
	"github.com/achilleasa/lumen/config"
)

// The Reader interface is implemented by all compiled scene readers.
type Reader interface {
	// Read compiled scene from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// The DocumentReader interface is implemented by all scene document readers.
type DocumentReader interface {
	// Read scene document from a resource.
	Read(*asset.Resource) (*input.Document, error)
}

// Returns true if filename refers to a compiled scene.
func IsCompiledScene(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".zip"
}

// Read a scene document from a .json, .yaml or .yml file.
func ReadDocument(filename string) (*input.Document, error) {
	var reader DocumentReader
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		reader = newJSONDocumentReader()
	case ".yaml", ".yml":
		reader = newYAMLDocumentReader()
	default:
		return nil, fmt.Errorf("readDocument: %w: unsupported file format %q", asset.ErrFatalIO, filepath.Ext(filename))
	}

	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, fmt.Errorf("readDocument: %w: %v", asset.ErrFatalIO, err)
	}
	defer res.Close()

	return reader.Read(res)
}

// Read scene from file. Compiled scenes (.zip) are loaded as-is while scene
// documents are compiled using the supplied options. Any warnings generated
// while compiling a scene document are also returned.
func ReadScene(filename string, opts config.Options) (*scene.Scene, []error, error) {
	if !IsCompiledScene(filename) {
		doc, err := ReadDocument(filename)
		if err != nil {
			return nil, nil, err
		}
		return compiler.Compile(doc, opts)
	}

	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("readScene: %w: %v", asset.ErrFatalIO, err)
	}
	defer res.Close()

	sc, err := newZipSceneReader().Read(res)
	return sc, nil, err
}
