package core

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// hostedRoot exists on the hosting platform and survives restarts.
	hostedRoot = "/home/site/wwwroot"

	workDirName = "temp_extractions"
)

// BlobPath maps a produced CSV filename to its object key in the output
// bucket. The schema is the part before the last underscore:
// "Extract_Customers.csv" in workbook "Sales2024" becomes
// "Sales2024/Extract/Extract_Customers.csv". A filename without an
// underscore is stored directly under the workbook.
func BlobPath(workbook, filename string) string {
	i := strings.LastIndex(filename, "_")
	if i < 0 {
		return workbook + "/" + filename
	}
	return workbook + "/" + filename[:i] + "/" + filename
}

// WorkbookName derives the workbook name from an archive's blob path:
// the last path element without its extension.
func WorkbookName(blobPath string) string {
	base := path.Base(strings.ReplaceAll(blobPath, "\\", "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ResolveWorkBase picks the directory job work dirs are created under:
// override when set, the hosted site root when present, otherwise
// ./temp_extractions.
func ResolveWorkBase(override string) string {
	if override != "" {
		return override
	}
	if info, err := os.Stat(hostedRoot); err == nil && info.IsDir() {
		return filepath.Join(hostedRoot, workDirName)
	}
	return filepath.Join(".", workDirName)
}
