package evaluate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mamaar/extractor/pkg/types"
)

// scratch is a private on-disk copy of one package, used by a single trial.
type scratch struct {
	dir string
}

// newScratch copies the non-test files of pkg into a fresh directory under
// root (the system temp directory when root is empty). The caller must
// Close it.
func newScratch(root string, pkg *types.Package) (*scratch, error) {
	dir, err := os.MkdirTemp(root, "extractor-trial-*")
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("create scratch directory: %v", err),
			Cause:   err,
		}
	}
	s := &scratch{dir: dir}
	for name, f := range pkg.Files {
		if err := s.WriteFile(name, f.OriginalContent); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *scratch) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// WriteFile replaces the file called name in the copy.
func (s *scratch) WriteFile(name string, content []byte) error {
	if err := os.WriteFile(s.path(name), content, 0o644); err != nil {
		return &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("write scratch file: %v", err),
			File:    s.path(name),
			Cause:   err,
		}
	}
	return nil
}

// ReadFile returns the current content of the file called name.
func (s *scratch) ReadFile(name string) ([]byte, error) {
	content, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("read scratch file: %v", err),
			File:    s.path(name),
			Cause:   err,
		}
	}
	return content, nil
}

// Close removes the copy.
func (s *scratch) Close() error {
	return os.RemoveAll(s.dir)
}
