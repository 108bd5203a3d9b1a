// Package twbx unpacks Tableau packaged workbooks and locates the embedded
// extract database.
package twbx

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
)

// ExtractSuffix is the file suffix of an extract database inside a workbook.
const ExtractSuffix = ".hyper"

// ErrNoExtract is wrapped when an archive holds no extract database.
var ErrNoExtract = errors.New("no .hyper file found inside TWBX")

// Unpack decompresses every entry of the archive into destDir and returns the
// path of the first extract database found under destDir.
//
// Decompression is all or nothing: the first bad entry aborts the unpack.
func Unpack(archivePath, destDir string) (string, error) {
	if err := extractAll(archivePath, destDir); err != nil {
		return "", errs.E(errs.KindArchive, "twbx.unpack", err)
	}

	path, err := FindExtract(destDir)
	if err != nil {
		return "", errs.E(errs.KindArchive, "twbx.unpack", err)
	}
	return path, nil
}

// FindExtract walks root in lexical order and returns the first file whose
// name ends with ExtractSuffix.
func FindExtract(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ExtractSuffix) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", root, err)
	}
	if found == "" {
		return "", ErrNoExtract
	}
	return found, nil
}

func extractAll(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	for _, f := range zr.File {
		if err := extractFile(f, destDir); err != nil {
			return fmt.Errorf("extract %q: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, destDir string) error {
	target, err := safeJoin(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// safeJoin rejects entry names that would land outside destDir.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry escapes destination: %s", name)
	}
	return target, nil
}
