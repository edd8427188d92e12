// Package tiger downloads Census TIGER/Line shapefiles and reads their
// polygons into go-geom geometries.
package tiger

import (
	"fmt"
	"strings"
)

// Layer is a per-state TIGER/Line polygon layer.
type Layer string

// Layers used by the tract population merge.
const (
	BlockGroup Layer = "BG"
	Tract      Layer = "TRACT"
)

// BaseURL is the Census Bureau TIGER/Line download root.
const BaseURL = "https://www2.census.gov/geo/tiger"

// DownloadURL builds the download URL of a per-state layer, e.g.
// https://www2.census.gov/geo/tiger/TIGER2024/BG/tl_2024_06_bg.zip.
func DownloadURL(layer Layer, year int, stateFIPS string) string {
	return fmt.Sprintf(
		"%s/TIGER%d/%s/tl_%d_%s_%s.zip",
		BaseURL, year, layer, year, stateFIPS, strings.ToLower(string(layer)),
	)
}

// ParseLayer maps a layer name (case-insensitive) to a Layer.
func ParseLayer(s string) (Layer, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BG", "BLOCKGROUP", "BLOCK_GROUP":
		return BlockGroup, true
	case "TRACT":
		return Tract, true
	}
	return "", false
}
