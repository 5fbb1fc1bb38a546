package vocyolo

// The intermediate annotation metadata representation.

import (
	"fmt"
	"strings"
)

// Keys for known annotation attributes.
const (
	Difficult = "Difficult" // The object is hard to recognise. Type bool.
	Pose      = "Pose"      // The viewpoint of the object, e.g. "Frontal". Type string.
	Truncated = "Truncated" // The object extends beyond the image boundary. Type bool.
)

// Annotation is the intermediate representation of an object label.
type Annotation struct {
	Attributes map[string]interface{} // Additional attributes of this annotation.
	Coords     [4]float64             // Absolute x1, y1, x2, y2 offsets from the top-left corner.
	Label      string
}

// Width is the object width from a.Coords.
func (a Annotation) Width() float64 {
	return a.Coords[2] - a.Coords[0]
}

// Height is the object height from a.Coords.
func (a Annotation) Height() float64 {
	return a.Coords[3] - a.Coords[1]
}

// AnnotatedFile is the intermediate representation of the metadata for one image.
type AnnotatedFile struct {
	Annotations []Annotation // The annotations, in descriptor order.
	FilePath    string       // The annotation descriptor.
	ID          string       // The image identifier (the file name without extension).
	Width       int          // The image width in pixels.
	Height      int          // The image height in pixels.
}

// LabelMapping replaces the substring Old with New in labels.
type LabelMapping struct {
	Old, New string
}

// ParseLabelMappings parses mappings of the format old=new.
func ParseLabelMappings(mappings []string) ([]LabelMapping, error) {
	replacements := make([]LabelMapping, len(mappings))
	for i, v := range mappings {
		a := strings.Split(v, "=")
		if len(a) != 2 || a[0] == "" {
			return nil, fmt.Errorf("invalid mapping: %v", v)
		}

		replacements[i].Old = a[0]
		replacements[i].New = a[1]
	}
	return replacements, nil
}

// MapLabel applies the replacements, in order, to label.
func MapLabel(label string, mappings []LabelMapping) string {
	for _, r := range mappings {
		label = strings.Replace(label, r.Old, r.New, -1)
	}
	return label
}
