package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// UUID will generate a random v4 unique identifier.
func UUID() string {
	return uuid.NewString()
}

// Empty checks if a string pointer is nil or points to an empty string.
func Empty(s *string) bool {
	return s == nil || *s == ""
}

// AddExtToFilename adds ext to filename when filename has no extension.
func AddExtToFilename(filename, ext string) string {
	if filepath.Ext(filename) == "" {
		filename = filename + "." + ext
	}
	return filename
}

// SplitList splits comma separated values, trimming blanks and dropping
// empty items. Order and duplicates are preserved.
func SplitList(values ...string) []string {
	var res []string
	for _, v := range values {
		res = append(res, lo.Map(strings.Split(v, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		})...)
	}
	return lo.Compact(res)
}
