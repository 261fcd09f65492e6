package engine

import (
	"fmt"
	"strconv"
)

// LocationKind tags which variant of Location is populated.
type LocationKind string

const (
	LocationNone     LocationKind = "none"
	LocationFile     LocationKind = "file"
	LocationEndpoint LocationKind = "endpoint"
	LocationManifest LocationKind = "manifest"
)

// Location is a tagged union: file path and line for source scanners, URL
// for the dynamic scanner, manifest coordinate for dependency scanners.
type Location struct {
	Kind LocationKind `json:"kind"`

	Path string `json:"path,omitempty"`
	Line int    `json:"line,omitempty"`

	URL    string `json:"url,omitempty"`
	Method string `json:"method,omitempty"`
	Param  string `json:"param,omitempty"`

	Package string `json:"package,omitempty"`
	Version string `json:"version,omitempty"`
}

func FileLocation(path string, line int) Location {
	return Location{Kind: LocationFile, Path: path, Line: line}
}

func EndpointLocation(url, method, param string) Location {
	return Location{Kind: LocationEndpoint, URL: url, Method: method, Param: param}
}

func ManifestLocation(manifest, pkg, version string) Location {
	return Location{Kind: LocationManifest, Path: manifest, Package: pkg, Version: version}
}

// PathComponent is the string path allowlist globs are matched against:
// the file or manifest path, or the URL for endpoints. It is used exactly
// as reported.
func (l Location) PathComponent() string {
	if l.Kind == LocationEndpoint {
		return l.URL
	}
	return l.Path
}

// Key is a stable, unambiguous encoding used for dedupe and ordering.
func (l Location) Key() string {
	switch l.Kind {
	case LocationFile:
		return "file:" + l.Path + ":" + strconv.Itoa(l.Line)
	case LocationEndpoint:
		return "endpoint:" + l.Method + " " + l.URL + "#" + l.Param
	case LocationManifest:
		return "manifest:" + l.Path + ":" + l.Package + "@" + l.Version
	}
	return "none"
}

func (l Location) String() string {
	switch l.Kind {
	case LocationFile:
		if l.Line > 0 {
			return fmt.Sprintf("%s:%d", l.Path, l.Line)
		}
		return l.Path
	case LocationEndpoint:
		s := l.URL
		if l.Method != "" {
			s = l.Method + " " + s
		}
		if l.Param != "" {
			s += " [" + l.Param + "]"
		}
		return s
	case LocationManifest:
		s := l.Path
		if l.Package != "" {
			s += " " + l.Package
			if l.Version != "" {
				s += "@" + l.Version
			}
		}
		return s
	}
	return "-"
}
