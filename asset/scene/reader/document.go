package reader

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/asset/compiler/input"
	"github.com/achilleasa/lumen/log"
	"gopkg.in/yaml.v3"
)

type documentDecoder func(data []byte, doc *input.Document) error

type documentReader struct {
	logger log.Logger
	decode documentDecoder
}

// Create a reader for JSON scene documents.
func newJSONDocumentReader() *documentReader {
	return &documentReader{
		logger: log.New("json reader"),
		decode: func(data []byte, doc *input.Document) error {
			return json.Unmarshal(data, doc)
		},
	}
}

// Create a reader for YAML scene documents. YAML documents use the same keys
// as their JSON counterparts.
func newYAMLDocumentReader() *documentReader {
	return &documentReader{
		logger: log.New("yaml reader"),
		decode: func(data []byte, doc *input.Document) error {
			return yaml.Unmarshal(data, doc)
		},
	}
}

// Read scene document from a resource.
func (r *documentReader) Read(res *asset.Resource) (*input.Document, error) {
	r.logger.Noticef(`parsing scene document from "%s"`, res.Path())

	data, err := io.ReadAll(res)
	if err != nil {
		return nil, fmt.Errorf("documentReader: %w: %v", asset.ErrFatalIO, err)
	}

	doc := new(input.Document)
	if err = r.decode(data, doc); err != nil {
		return nil, fmt.Errorf("documentReader: %w: failed to parse %s: %v", asset.ErrFatalIO, res.Path(), err)
	}
	doc.Source = res

	r.logger.Infof("parsed %d materials and %d objects", len(doc.Materials), len(doc.Objects))
	return doc, nil
}
