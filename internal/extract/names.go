package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Normalize strips surrounding double quotes from a catalog name.
// Applying it twice gives the same result as applying it once.
func Normalize(raw string) string {
	return strings.Trim(raw, `"`)
}

// Clean derives the output name of a table: a trailing ".csv" is dropped and,
// if what remains has an underscore, only the part before the first
// underscore is kept.
//
// The underscore rule is lossy for names like "customer_orders"; NameCleaner
// with a suffix pattern avoids that.
func Clean(name string) string {
	name = strings.TrimSuffix(name, ".csv")
	if i := strings.Index(name, "_"); i >= 0 {
		return name[:i]
	}
	return name
}

// NameCleaner derives output table names. The zero value applies Clean.
type NameCleaner struct {
	suffix *regexp.Regexp
}

// NewNameCleaner returns a cleaner that strips only a trailing match of
// pattern (for example `_[0-9A-Fa-f]{6,}$`). An empty pattern selects Clean.
func NewNameCleaner(pattern string) (*NameCleaner, error) {
	if pattern == "" {
		return &NameCleaner{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid name suffix pattern %q: %w", pattern, err)
	}
	return &NameCleaner{suffix: re}, nil
}

// Clean returns the output name for name.
func (c *NameCleaner) Clean(name string) string {
	if c == nil || c.suffix == nil {
		return Clean(name)
	}

	name = strings.TrimSuffix(name, ".csv")
	for _, loc := range c.suffix.FindAllStringIndex(name, -1) {
		// Only a match that ends the name counts, and the name must keep a base.
		if loc[1] == len(name) && loc[0] > 0 {
			return name[:loc[0]]
		}
	}
	return name
}

// Pattern returns the configured suffix pattern, empty for the legacy rule.
func (c *NameCleaner) Pattern() string {
	if c == nil || c.suffix == nil {
		return ""
	}
	return c.suffix.String()
}

// pathChars are replaced in catalog names that become file names, so a name
// like "x/../evil" stays a single entry of the output directory.
var pathChars = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")

// CSVName is the file name a table is exported under. Path separators in
// either part are replaced with underscores.
func CSVName(schema, cleanTable string) string {
	return pathChars.Replace(schema) + "_" + pathChars.Replace(cleanTable) + ".csv"
}
