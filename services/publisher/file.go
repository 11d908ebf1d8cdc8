package publisher

import (
	"fmt"
	"os"
	"path/filepath"

	"sjsage522/wikicatalog/logger"
	apperrors "sjsage522/wikicatalog/pkg/errors"
)

// FilePublisher writes documents into a directory. Each document is written
// to a temporary file next to its target and renamed into place, so readers
// only ever see the previous or the new complete document.
type FilePublisher struct {
	dir string
	log *logger.Logger
}

// NewFilePublisher creates the output directory if needed
func NewFilePublisher(dir string) (*FilePublisher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.NewPublisher("file", "creating output directory", err)
	}
	return &FilePublisher{dir: dir, log: logger.ForPublisher()}, nil
}

// Path returns the final location of the named document
func (p *FilePublisher) Path(name string) string {
	return filepath.Join(p.dir, name)
}

// Publish atomically replaces the named document
func (p *FilePublisher) Publish(name string, document []byte) error {
	if name == "" || filepath.Base(name) != name {
		return apperrors.NewValidation("file", fmt.Sprintf("invalid document name %q", name))
	}
	target := p.Path(name)

	tmp, err := os.CreateTemp(p.dir, "."+name+".*.tmp")
	if err != nil {
		return apperrors.NewPublisher("file", "creating temporary file", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(document); err != nil {
		tmp.Close()
		return apperrors.NewPublisher("file", "writing "+name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewPublisher("file", "syncing "+name, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewPublisher("file", "closing "+name, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return apperrors.NewPublisher("file", "chmod "+name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return apperrors.NewPublisher("file", "renaming into "+target, err)
	}
	committed = true

	p.log.Info().Str("path", target).Int("bytes", len(document)).Msg("Document written")
	return nil
}

// Close is a no-op for files
func (p *FilePublisher) Close() error {
	return nil
}
