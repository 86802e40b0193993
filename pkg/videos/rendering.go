package videos

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// markerPattern matches the part and version markers of a file name, such as
// "part 2", "pt2", "-p1" or ".v3".
var markerPattern = regexp.MustCompile(`(?i)[ ._-](part|pt|p|v)[ ._-]?(\d+)\b`)

// Rendering derives the rendering of a video from its path. Files that only differ
// by their part or version markers share a rendering.
func Rendering(path string) string {
	sum := sha256.Sum256([]byte(markerPattern.ReplaceAllString(path, "")))
	return hex.EncodeToString(sum[:])
}

// Markers reads the part and version markers Rendering strips from path. The last
// marker of each kind wins. A path without a version marker is version 1.
func Markers(path string) (part *int, version int) {
	version = 1
	for _, m := range markerPattern.FindAllStringSubmatch(path, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if strings.EqualFold(m[1], "v") {
			version = n
			continue
		}
		part = &n
	}
	return part, version
}
