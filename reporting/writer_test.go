package reporting

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDocuments_CreatesDirectory(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "nested", "craft-report")
	docs := &Documents{Data: []byte("{}\n"), Rendered: []byte("<html></html>")}

	artifacts, err := WriteDocuments(context.Background(), docs, outputDir, "report.html")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, DataFilename), artifacts.DataPath)
	assert.Equal(t, filepath.Join(outputDir, "report.html"), artifacts.DocumentPath)
	assert.Equal(t, 3, artifacts.DataSize)
	assert.Equal(t, 13, artifacts.DocumentSize)

	data, err := os.ReadFile(artifacts.DataPath)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	rendered, err := os.ReadFile(artifacts.DocumentPath)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(rendered))
}

func TestWriteDocuments_LeavesCommentsUntouched(t *testing.T) {
	outputDir := t.TempDir()
	commentsPath := filepath.Join(outputDir, "comments.json")
	require.NoError(t, os.WriteFile(commentsPath, []byte(`{"a":"b"}`), 0644))

	_, err := WriteDocuments(context.Background(), &Documents{Data: []byte("{}"), Rendered: []byte("x")}, outputDir, "report.html")
	require.NoError(t, err)

	content, err := os.ReadFile(commentsPath)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, string(content))
}

func TestWriteDocuments_DirectoryCreationFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := WriteDocuments(context.Background(), &Documents{}, filepath.Join(blocker, "out"), "report.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
}

func TestWriteDocuments_WriteFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	outputDir := t.TempDir()
	require.NoError(t, os.Chmod(outputDir, 0555))
	t.Cleanup(func() { _ = os.Chmod(outputDir, 0755) })

	_, err := WriteDocuments(context.Background(), &Documents{Data: []byte("{}"), Rendered: []byte("x")}, outputDir, "report.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write")
}

func TestWriteDocuments_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WriteDocuments(ctx, &Documents{Data: []byte("{}"), Rendered: []byte("x")}, t.TempDir(), "report.html")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteDocuments_NilDocuments(t *testing.T) {
	_, err := WriteDocuments(context.Background(), nil, t.TempDir(), "report.html")
	assert.Error(t, err)
}
