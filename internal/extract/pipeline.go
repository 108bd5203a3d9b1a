package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/twbx"
)

// Pipeline unpacks a packaged workbook and exports its extract.
type Pipeline struct {
	reader *Reader
	unpack func(archivePath, destDir string) (string, error)
}

// NewPipeline returns a Pipeline using twbx.Unpack and reader.
func NewPipeline(reader *Reader) *Pipeline {
	return &Pipeline{reader: reader, unpack: twbx.Unpack}
}

// Extract unpacks archivePath into unpackDir, then writes the tables of the
// extract database it contains to outputDir. unpackDir should be empty: the
// extract is searched for in all of it. Errors from either step are returned
// unchanged.
func (p *Pipeline) Extract(ctx context.Context, archivePath, unpackDir, outputDir, workbook string) (*Manifest, error) {
	dbPath, err := p.unpack(archivePath, unpackDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return p.reader.ReadTables(ctx, dbPath, outputDir, workbook)
}
