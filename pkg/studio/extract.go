package studio

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrUnsafePath is returned for archive entries that would escape the
// destination directory.
const ErrUnsafePath = studioError("archive entry path escapes destination")

// ExtractZip extracts a deployment archive into destDir, creating it if
// needed. A pre-existing .gitignore and README.md in destDir survive the
// extraction so a checked-in model directory keeps its own files.
func ExtractZip(data []byte, destDir string) error {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to read zip archive: %w", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	gitignore, _ := os.ReadFile(filepath.Join(destDir, ".gitignore"))
	readme, _ := os.ReadFile(filepath.Join(destDir, "README.md"))

	for _, f := range archive.File {
		if err := extractEntry(f, destDir); err != nil {
			return err
		}
	}

	if gitignore != nil {
		if err := os.WriteFile(filepath.Join(destDir, ".gitignore"), gitignore, 0o644); err != nil {
			log.WithError(err).Warn("Failed to restore .gitignore")
		}
	}
	if readme != nil {
		if err := os.WriteFile(filepath.Join(destDir, "README.md"), readme, 0o644); err != nil {
			log.WithError(err).Warn("Failed to restore README.md")
		}
	}
	return nil
}

func extractEntry(f *zip.File, destDir string) error {
	target, err := sanitizePath(destDir, f.Name)
	if err != nil {
		return err
	}

	if strings.HasSuffix(f.Name, "/") {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", target, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return nil
}

// sanitizePath joins an archive entry name onto destDir and verifies the
// result stays inside it.
func sanitizePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	base := filepath.Clean(destDir)
	if target != base && !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}
	return target, nil
}
