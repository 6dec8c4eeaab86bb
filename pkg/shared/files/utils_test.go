package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineFileFullPath(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "findings.json")
	require.NoError(t, os.WriteFile(existing, []byte("[]"), 0644))

	tests := []struct {
		name         string
		inputPath    string
		nameTemplate string
		expectFile   string
		expectFolder string
	}{
		{
			name:         "Directory path with name template",
			inputPath:    tmpDir,
			nameTemplate: "crnow-report.html",
			expectFile:   filepath.Join(tmpDir, "crnow-report.html"),
			expectFolder: tmpDir,
		},
		{
			name:         "Existing file path",
			inputPath:    existing,
			nameTemplate: "ignored.html",
			expectFile:   existing,
			expectFolder: tmpDir,
		},
		{
			name:         "Missing path without extension is a folder",
			inputPath:    filepath.Join(tmpDir, "results"),
			nameTemplate: "report.sarif",
			expectFile:   filepath.Join(tmpDir, "results", "report.sarif"),
			expectFolder: filepath.Join(tmpDir, "results"),
		},
		{
			name:         "Missing file with extension",
			inputPath:    filepath.Join(tmpDir, "out.html"),
			nameTemplate: "ignored.html",
			expectFile:   filepath.Join(tmpDir, "out.html"),
			expectFolder: tmpDir,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath, folderPath, err := DetermineFileFullPath(tt.inputPath, tt.nameTemplate)
			require.NoError(t, err)
			assert.Equal(t, tt.expectFile, filePath)
			assert.Equal(t, tt.expectFolder, folderPath)
		})
	}
}

func TestCreateFolderIfNotExists(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, CreateFolderIfNotExists(target))
	assert.True(t, IsDir(target))
	assert.NoError(t, CreateFolderIfNotExists(target))
}
