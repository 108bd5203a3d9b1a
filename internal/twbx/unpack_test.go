package twbx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
)

// writeArchive builds a zip at dir/name holding files (path -> contents).
func writeArchive(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for entry, body := range files {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestUnpack_FindsNestedExtract(t *testing.T) {
	tmp := t.TempDir()
	archive := writeArchive(t, tmp, "Sales.twbx", map[string]string{
		"Sales.twb":                          "<workbook/>",
		"Data/Extracts/federated_1abc.hyper": "HYPER",
		"Data/Images/logo.png":               "png",
	})
	dest := filepath.Join(tmp, "out")

	got, err := Unpack(archive, dest)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dest, "Data", "Extracts", "federated_1abc.hyper"), got)

	body, err := os.ReadFile(got)
	require.NoError(t, err)
	require.Equal(t, "HYPER", string(body))

	// Every entry is decompressed, not just the extract.
	require.FileExists(t, filepath.Join(dest, "Sales.twb"))
	require.FileExists(t, filepath.Join(dest, "Data", "Images", "logo.png"))
}

func TestUnpack_NoExtract(t *testing.T) {
	tmp := t.TempDir()
	archive := writeArchive(t, tmp, "Empty.twbx", map[string]string{
		"Empty.twb": "<workbook/>",
	})

	_, err := Unpack(archive, filepath.Join(tmp, "out"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoExtract))
	require.True(t, errs.Is(err, errs.KindArchive))
}

func TestUnpack_CorruptArchive(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "broken.twbx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := Unpack(path, filepath.Join(tmp, "out"))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindArchive))
}

func TestUnpack_RejectsEscapingEntry(t *testing.T) {
	tmp := t.TempDir()
	archive := writeArchive(t, tmp, "evil.twbx", map[string]string{
		"../escape.hyper": "x",
	})

	_, err := Unpack(archive, filepath.Join(tmp, "out"))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindArchive))
	require.NoFileExists(t, filepath.Join(tmp, "escape.hyper"))
}

func TestFindExtract_FirstInWalkOrder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "two.hyper"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "one.hyper"), nil, 0o644))

	got, err := FindExtract(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "a", "one.hyper"), got)
}
