package writer

import (
	"archive/zip"
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/achilleasa/lumen/asset/scene"
	"github.com/achilleasa/lumen/log"
)

const (
	dataFile = "scene.bin"
)

type zipSceneWriter struct {
	logger    log.Logger
	sceneFile string
}

// Create a new zip scene writer
func newZipSceneWriter(sceneFile string) *zipSceneWriter {
	return &zipSceneWriter{
		logger:    log.New("zip writer"),
		sceneFile: sceneFile,
	}
}

// Write scene definition to zip file.
func (w *zipSceneWriter) Write(sc *scene.Scene) (err error) {
	w.logger.Noticef("writing compressed scene to %s", w.sceneFile)
	start := time.Now()

	zipFile, err := os.Create(w.sceneFile)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := zipFile.Close(); err == nil {
			err = closeErr
		}
	}()

	zw := zip.NewWriter(zipFile)
	cw, err := zw.Create(dataFile)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(cw).Encode(sc); err != nil {
		return fmt.Errorf("zipSceneWriter: could not encode scene: %w", err)
	}
	if err = zw.Close(); err != nil {
		return err
	}

	w.logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}
