package capstonesys

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// unpackedSourceDir is the directory under OutDir receiving SourceArchive.
const unpackedSourceDir = "capstone-src"

// ensureSources returns the bundled source tree, unpacking SourceArchive
// into OutDir when the checked-out tree is absent.
func ensureSources(config *BuildConfig) (string, error) {
	dir := config.sourceDir()
	if dirExists(dir) {
		return dir, nil
	}

	if config.SourceArchive == "" {
		return "", discoveryError("bundled sources", fmt.Errorf("source directory %s not found and no source archive configured", dir))
	}

	dest := filepath.Join(config.OutDir, unpackedSourceDir)
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("cleaning %s: %w", dest, err)
	}

	config.logger().Info("unpacking bundled sources", "archive", config.SourceArchive, "dest", dest)
	if err := extractSourceArchive(config.SourceArchive, dest); err != nil {
		return "", discoveryError("bundled sources", err)
	}
	return dest, nil
}

// extractSourceArchive unpacks a .tar.xz, .tar.gz or plain .tar archive into
// dest. Release tarballs wrap everything in a single top-level directory
// (capstone-5.0.1/); that component is stripped.
func extractSourceArchive(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("opening source archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(archive, ".xz") || strings.HasSuffix(archive, ".txz"):
		xzReader, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		r = xzReader
	case strings.HasSuffix(archive, ".gz") || strings.HasSuffix(archive, ".tgz"):
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzReader.Close()
		r = gzReader
	}

	tarReader := tar.NewReader(r)
	files := 0
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		rel := stripTopLevel(header.Name)
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(filepath.Separator)) {
			return fmt.Errorf("archive entry %s escapes %s", header.Name, dest)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeArchiveFile(tarReader, target, os.FileMode(header.Mode)&0o777); err != nil {
				return err
			}
			files++
		}
	}

	if files == 0 {
		return fmt.Errorf("source archive %s contains no files", archive)
	}
	return nil
}

func stripTopLevel(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	if i := strings.Index(name, "/"); i >= 0 {
		return strings.Trim(name[i+1:], "/")
	}
	return ""
}

func writeArchiveFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing file %s: %w", target, err)
	}
	return out.Close()
}
