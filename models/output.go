package models

import (
	"path/filepath"
	"strings"

	"anime-dubber/internal/config"
)

// OutputExtensions are the container extensions accepted for the output file.
var OutputExtensions = []string{".mp4", ".mkv", ".avi"}

// NormalizeOutputName makes name a bare file name ending in one of
// OutputExtensions. A missing or unknown extension gets ".mp4" appended;
// an empty name is derived from the source video.
func NormalizeOutputName(name, sourcePath string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		name = filepath.Base(name)
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
		if stem == "" || stem == "." {
			stem = "output"
		}
		name = stem + config.DefaultOutputSuffix
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range OutputExtensions {
		if ext == allowed {
			return name
		}
	}
	return name + ".mp4"
}
