package reader

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/asset/scene"
	"github.com/achilleasa/lumen/log"
)

const (
	dataFile = "scene.bin"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read compiled scene from zip file.
func (p *zipSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`loading compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, fmt.Errorf("zipSceneReader: %w: %v", asset.ErrFatalIO, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zipSceneReader: %w: %v", asset.ErrFatalIO, err)
	}

	var sc *scene.Scene
	for _, f := range zr.File {
		if f.Name != dataFile {
			p.logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("zipSceneReader: %w: %v", asset.ErrFatalIO, err)
		}
		sc = new(scene.Scene)
		err = gob.NewDecoder(rc).Decode(sc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("zipSceneReader: %w: failed to load %s: %v", asset.ErrFatalIO, f.Name, err)
		}
	}

	if sc == nil {
		return nil, fmt.Errorf("zipSceneReader: %w: %s does not contain %s", asset.ErrFatalIO, sceneRes.Path(), dataFile)
	}

	p.logger.Noticef("loaded scene %s in %d ms", sc.BuildID, time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}
