package walker

import (
	"bytes"
	"strings"
)

// binarySniffLen is how much of a file IsBinary inspects.
const binarySniffLen = 8192

// IsBinary reports whether data looks binary: a NUL byte within the first
// binarySniffLen bytes. Annotating such content would only produce noise.
func IsBinary(data []byte) bool {
	return bytes.IndexByte(data[:min(len(data), binarySniffLen)], 0) >= 0
}

// binaryExtGroups lists extensions of formats that never hold annotatable
// text, so the walker can skip them without reading.
var binaryExtGroups = []string{
	"a o so dylib dll exe bin class pyc wasm",    // objects and executables
	"gz bz2 xz zst lz4 zip tar rar 7z jar deb rpm", // archives
	"png jpg jpeg gif bmp ico tif tiff webp psd",   // images
	"mp3 mp4 ogg flac wav avi mkv webm mov",        // media
	"ttf otf woff woff2 eot",                       // fonts
	"pdf doc docx xls xlsx ppt pptx odt",           // office documents
	"db sqlite swp",                                // data files
}

var binaryExts = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, g := range binaryExtGroups {
		for _, ext := range strings.Fields(g) {
			m[ext] = struct{}{}
		}
	}
	return m
}()

// IsBinaryExtension reports whether name has a known binary extension,
// including versioned shared libraries such as libfoo.so.1.2.
func IsBinaryExtension(name string) bool {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return false
	}
	if _, ok := binaryExts[strings.ToLower(name[dot+1:])]; ok {
		return true
	}
	return strings.Contains(name, ".so.")
}
