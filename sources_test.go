package capstonesys

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"
)

type archiveEntry struct {
	name string
	body string
	dir  bool
}

func writeTar(t *testing.T, w io.Writer, entries []archiveEntry) {
	t.Helper()

	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header: %v", err)
		}
		if !e.dir {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("failed to write tar body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
}

func writeTarXz(t *testing.T, path string, entries []archiveEntry) {
	t.Helper()

	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	writeTar(t, xw, entries)
	if err := xw.Close(); err != nil {
		t.Fatalf("failed to close xz writer: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
}

var sourceEntries = []archiveEntry{
	{name: "capstone-5.0.1/", dir: true},
	{name: "capstone-5.0.1/include/capstone/", dir: true},
	{name: "capstone-5.0.1/include/capstone/capstone.h", body: "int cs_version(int*, int*);\n"},
	{name: "capstone-5.0.1/Makefile", body: "all:\n"},
}

func TestEnsureSourcesUnpacksXzArchive(t *testing.T) {
	manifest := t.TempDir()
	archive := filepath.Join(t.TempDir(), "capstone-5.0.1.tar.xz")
	writeTarXz(t, archive, sourceEntries)

	config := &BuildConfig{
		ManifestDir:   manifest,
		OutDir:        filepath.Join(manifest, "out"),
		SourceArchive: archive,
	}

	dir, err := ensureSources(config)
	if err != nil {
		t.Fatalf("ensureSources returned error: %v", err)
	}
	if want := filepath.Join(config.OutDir, unpackedSourceDir); dir != want {
		t.Errorf("expected sources in %s, got %s", want, dir)
	}

	header, err := os.ReadFile(filepath.Join(dir, "include", "capstone", "capstone.h"))
	if err != nil {
		t.Fatalf("expected header to be unpacked: %v", err)
	}
	if string(header) != "int cs_version(int*, int*);\n" {
		t.Errorf("unexpected header content %q", header)
	}

	dirs, err := BundledIncludeDirs(config)
	if err != nil {
		t.Fatalf("BundledIncludeDirs returned error: %v", err)
	}
	if _, err := FindHeader(dirs, "capstone.h"); err != nil {
		t.Errorf("expected header in bundled include dirs: %v", err)
	}
}

func TestEnsureSourcesUnpacksGzipArchive(t *testing.T) {
	manifest := t.TempDir()
	archive := filepath.Join(t.TempDir(), "capstone.tar.gz")

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	writeTar(t, gw, sourceEntries)
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}

	config := &BuildConfig{ManifestDir: manifest, OutDir: t.TempDir(), SourceArchive: archive}
	dir, err := ensureSources(config)
	if err != nil {
		t.Fatalf("ensureSources returned error: %v", err)
	}
	if !fileExists(filepath.Join(dir, "Makefile")) {
		t.Error("expected Makefile to be unpacked")
	}
}

func TestEnsureSourcesPrefersCheckout(t *testing.T) {
	manifest := t.TempDir()
	if err := os.MkdirAll(filepath.Join(manifest, "capstone"), 0o755); err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}

	config := &BuildConfig{ManifestDir: manifest, SourceArchive: "/does/not/exist.tar.xz"}
	dir, err := ensureSources(config)
	if err != nil {
		t.Fatalf("ensureSources returned error: %v", err)
	}
	if dir != filepath.Join(manifest, "capstone") {
		t.Errorf("expected checked-out sources, got %s", dir)
	}
}

func TestExtractSourceArchiveRejectsTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.tar.xz")
	writeTarXz(t, archive, []archiveEntry{
		{name: "capstone/../../escape.txt", body: "x"},
	})

	dest := filepath.Join(t.TempDir(), "dest")
	if err := extractSourceArchive(archive, dest); err == nil {
		t.Fatal("expected traversal entry to be rejected")
	}
	if fileExists(filepath.Join(filepath.Dir(dest), "escape.txt")) {
		t.Error("entry escaped the destination directory")
	}
}

func TestExtractSourceArchiveEmpty(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "empty.tar.xz")
	writeTarXz(t, archive, []archiveEntry{{name: "capstone/", dir: true}})

	if err := extractSourceArchive(archive, t.TempDir()); err == nil {
		t.Error("expected error for archive without files")
	}
}
