package analysis

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mamaar/extractor/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writePackage writes files into a fresh temp directory and returns it.
func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func loadPackage(t *testing.T, files map[string]string) (*GoParser, *types.Package) {
	t.Helper()
	p, err := NewParser(discardLogger())
	require.NoError(t, err)
	_, pkg, err := p.LoadPackage(writePackage(t, files))
	require.NoError(t, err)
	return p, pkg
}
