package extract

import (
	"path/filepath"
)

// Format is the container kind of an input file. It is derived from the file extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatTarball
	FormatZip
	FormatSevenZip
	FormatDiskImage
)

// ImageExt is the extension carried by disk images at every layer.
const ImageExt = ".img"

var formatExts = map[string]Format{
	".tgz":   FormatTarball,
	".zip":   FormatZip,
	".7z":    FormatSevenZip,
	ImageExt: FormatDiskImage,
}

// FormatOf returns the format for filename's extension. Extensions are case-sensitive.
func FormatOf(filename string) Format {
	return formatExts[filepath.Ext(filename)]
}

func (f Format) String() string {
	switch f {
	case FormatTarball:
		return "tarball"
	case FormatZip:
		return "zip"
	case FormatSevenZip:
		return "7z"
	case FormatDiskImage:
		return "disk image"
	default:
		return "unknown"
	}
}
