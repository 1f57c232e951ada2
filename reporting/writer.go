package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ethereum-optimism/craft-report/types"
)

const (
	// DataFilename is the machine-readable artifact written next to the rendered document
	DataFilename = "report-data.json"

	dirPerm  = 0755
	filePerm = 0644
)

// Artifacts are the paths of the files written for one run
type Artifacts struct {
	DataPath     string
	DataSize     int
	DocumentPath string
	DocumentSize int
}

// WriteDocuments creates outputDir if needed and writes both documents into it.
// Any failure is returned: there is no degraded output to fall back to.
func WriteDocuments(ctx context.Context, docs *Documents, outputDir, outputFile string) (*Artifacts, error) {
	if docs == nil {
		return nil, fmt.Errorf("documents are required")
	}
	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	artifacts := &Artifacts{
		DataPath:     filepath.Join(outputDir, DataFilename),
		DataSize:     len(docs.Data),
		DocumentPath: filepath.Join(outputDir, outputFile),
		DocumentSize: len(docs.Rendered),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeFile(ctx, artifacts.DataPath, docs.Data)
	})
	g.Go(func() error {
		return writeFile(ctx, artifacts.DocumentPath, docs.Rendered)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func writeFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Result is what a completed run leaves behind
type Result struct {
	Summary   *types.RunSummary
	Artifacts *Artifacts
}
