// Package descriptor reads the moduledescriptor.xml manifest shipped inside console images.
package descriptor

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/log"
)

// FileName is the name of the descriptor at the top of an unwrapped image.
const FileName = "moduledescriptor.xml"

const (
	attrModuleType  = "ModuleType"
	attrInstallPath = "ModuleInstallPath"
)

var ErrNotExist = errors.New("descriptor file does not exist")

type document struct {
	XMLName xml.Name
	Modules []module `xml:"module"`
}

type module struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

func (m module) attr(name string) (string, bool) {
	for _, a := range m.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Descriptor is a parsed module descriptor.
type Descriptor struct {
	filename string
	modules  []module
	logger   *log.Logger
}

// Load parses the descriptor at filename. Missing attributes are reported to logger when they are looked up.
// logger may be nil.
func Load(filename string, logger *log.Logger) (*Descriptor, error) {
	info, err := os.Stat(filename)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, filename)
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var doc document
	err = xml.Unmarshal(content, &doc)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Descriptor{
		filename: filename,
		modules:  doc.Modules,
		logger:   logger,
	}, nil
}

// lookup returns the value of attribute name on the first module element that has it.
func (d *Descriptor) lookup(name string) (string, bool) {
	for _, m := range d.modules {
		val, ok := m.attr(name)
		if ok {
			return val, true
		}
		d.logger.Warn("error reading module descriptor", "file", d.filename, "attribute", name)
	}
	return "", false
}

// ModuleType returns the declared module type.
func (d *Descriptor) ModuleType() (string, bool) {
	return d.lookup(attrModuleType)
}

// ResolvedName returns the last element of the module's install path. This is the name the module is
// extracted and installed under.
func (d *Descriptor) ResolvedName() (string, bool) {
	installPath, ok := d.lookup(attrInstallPath)
	if !ok {
		return "", false
	}
	name := baseName(installPath)
	if name == "" {
		d.logger.Warn("module install path has no name", "file", d.filename, "path", installPath)
		return "", false
	}
	return name, true
}

// baseName returns the last element of p, accepting both / and \ separators and ignoring trailing ones.
func baseName(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimRight(path.Clean(p), "/")
	if p == "" || p == "." {
		return ""
	}
	base := path.Base(p)
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return base
}
