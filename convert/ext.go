package convert

import (
	"path/filepath"
	"strings"
)

const WebpExt = ".webp"

var sourceFormats = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

func IsSourceImage(path string) bool {
	return sourceFormats[strings.ToLower(filepath.Ext(path))]
}

func IsWebp(path string) bool {
	return strings.EqualFold(filepath.Ext(path), WebpExt)
}

// IsSupported reports whether path is either a convertible source image or a
// generated webp file. Everything else is ignored by every action.
func IsSupported(path string) bool {
	return IsSourceImage(path) || IsWebp(path)
}
