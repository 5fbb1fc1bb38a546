package vocyolo

// Pascal VOC specific functionality.

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// VOCBndBox is the pixel-space bounding box of a VOC object, as found in the descriptor.
type VOCBndBox struct {
	XMin string `xml:"xmin"`
	YMin string `xml:"ymin"`
	XMax string `xml:"xmax"`
	YMax string `xml:"ymax"`
}

// VOCObject is a single object entry within a VOC descriptor.
type VOCObject struct {
	Name      *string    `xml:"name"` // Nil if the element is missing.
	Pose      string     `xml:"pose"`
	Truncated string     `xml:"truncated"`
	Difficult string     `xml:"difficult"`
	BndBox    *VOCBndBox `xml:"bndbox"`
}

// Label returns the category name of the object, or "" if it has none.
func (o VOCObject) Label() string {
	if o.Name == nil {
		return ""
	}
	return strings.TrimSpace(*o.Name)
}

// IsDifficult reports whether the object is flagged as difficult.
func (o VOCObject) IsDifficult() bool {
	return isFlagSet(o.Difficult)
}

// VOCSize is the image size block of a VOC descriptor.
type VOCSize struct {
	Width  string `xml:"width"`
	Height string `xml:"height"`
	Depth  string `xml:"depth"`
}

// VOCAnnotatedFile defines the VOC annotation structure for a single image.
type VOCAnnotatedFile struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename string      `xml:"filename"`
	Size     *VOCSize    `xml:"size"`
	Objects  []VOCObject `xml:"object"`
	FilePath string      `xml:"-"` // The descriptor file.
}

// ReadVOCFile reads and decodes the VOC descriptor at path. Only XML well-formedness and the
// presence of a name element in every object are checked here; the remaining fields are validated
// by ToIR.
func ReadVOCFile(path string) (VOCAnnotatedFile, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return VOCAnnotatedFile{}, &FileNotFoundError{Path: path, Err: err}
		}
		return VOCAnnotatedFile{}, err
	}

	var vocData VOCAnnotatedFile
	if err := xml.Unmarshal(enc, &vocData); err != nil {
		return VOCAnnotatedFile{}, &ParseError{Path: path, Err: err}
	}
	vocData.FilePath = path

	for i, o := range vocData.Objects {
		if o.Name == nil {
			return VOCAnnotatedFile{}, &ParseError{
				Path:  path,
				Field: fmt.Sprintf("object[%d]/name", i),
				Err:   errors.New("missing element"),
			}
		}
	}

	return vocData, nil
}

// MapLabels applies the label mappings to all object names and returns the number of names that
// changed.
func (f *VOCAnnotatedFile) MapLabels(mappings []LabelMapping) int {
	if len(mappings) == 0 {
		return 0
	}

	count := 0
	for i := range f.Objects {
		o := &f.Objects[i]
		if o.Name == nil {
			continue
		}
		newLabel := MapLabel(*o.Name, mappings)
		if newLabel != *o.Name {
			o.Name = &newLabel
			count++
		}
	}
	return count
}

// Any reports whether at least one object satisfies keep.
func (f *VOCAnnotatedFile) Any(keep func(VOCObject) bool) bool {
	for _, o := range f.Objects {
		if keep(o) {
			return true
		}
	}
	return false
}

// ImageSize parses the size block. Missing or non-integer values are reported as *ParseError; zero
// values are returned as is.
func (f *VOCAnnotatedFile) ImageSize() (width, height int, err error) {
	if f.Size == nil {
		return 0, 0, &ParseError{Path: f.FilePath, Field: "size", Err: errors.New("missing element")}
	}
	if width, err = parseVOCInt(f.Size.Width); err != nil {
		return 0, 0, &ParseError{Path: f.FilePath, Field: "size/width", Err: err}
	}
	if height, err = parseVOCInt(f.Size.Height); err != nil {
		return 0, 0, &ParseError{Path: f.FilePath, Field: "size/height", Err: err}
	}
	return width, height, nil
}

// ToIR converts the objects accepted by keep to the intermediate representation. The object order
// is preserved. If keep is nil, all objects are converted.
//
// The image size is taken from the size block. A missing size block or empty width and height
// elements result in a zero size rather than an error, so that the caller may resolve it by other
// means; non-integer values are errors.
func (f *VOCAnnotatedFile) ToIR(id string, keep func(VOCObject) bool) (AnnotatedFile, error) {
	irFile := AnnotatedFile{
		Annotations: make([]Annotation, 0, len(f.Objects)),
		FilePath:    f.FilePath,
		ID:          id,
	}

	if f.Size != nil {
		var err error
		if irFile.Width, err = parseOptionalVOCInt(f.Size.Width); err != nil {
			return AnnotatedFile{}, &ParseError{Path: f.FilePath, Field: "size/width", Err: err}
		}
		if irFile.Height, err = parseOptionalVOCInt(f.Size.Height); err != nil {
			return AnnotatedFile{}, &ParseError{Path: f.FilePath, Field: "size/height", Err: err}
		}
	}

	for i, o := range f.Objects {
		if keep != nil && !keep(o) {
			continue
		}

		irObject := Annotation{Label: o.Label()}

		// Set the bounding box.
		if o.BndBox == nil {
			return AnnotatedFile{}, &ParseError{
				Path:  f.FilePath,
				Field: fmt.Sprintf("object[%d]/bndbox", i),
				Err:   errors.New("missing element"),
			}
		}
		fields := []struct {
			name  string
			value string
		}{
			{"xmin", o.BndBox.XMin},
			{"ymin", o.BndBox.YMin},
			{"xmax", o.BndBox.XMax},
			{"ymax", o.BndBox.YMax},
		}
		for j, field := range fields {
			v, err := parseVOCFloat(field.value)
			if err != nil {
				return AnnotatedFile{}, &ParseError{
					Path:  f.FilePath,
					Field: fmt.Sprintf("object[%d]/bndbox/%s", i, field.name),
					Err:   err,
				}
			}
			irObject.Coords[j] = v
		}

		// Set the optional attributes.
		irObject.Attributes = map[string]interface{}{
			Difficult: isFlagSet(o.Difficult),
			Truncated: isFlagSet(o.Truncated),
		}
		if pose := strings.TrimSpace(o.Pose); pose != "" {
			irObject.Attributes[Pose] = pose
		}

		irFile.Annotations = append(irFile.Annotations, irObject)
	}

	return irFile, nil
}

func parseVOCInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing value")
	}
	return strconv.Atoi(s)
}

// parseOptionalVOCInt is parseVOCInt with an empty value read as 0.
func parseOptionalVOCInt(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseVOCInt(s)
}

func parseVOCFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing value")
	}
	return strconv.ParseFloat(s, 64)
}

// isFlagSet interprets VOC 0/1 flags. Anything other than a non-zero integer is false.
func isFlagSet(s string) bool {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && v != 0
}

// VOCAnnotationDir returns <root>/Annotations.
func VOCAnnotationDir(root string) string {
	return filepath.Join(root, "Annotations")
}

// VOCImagePath returns <root>/JPEGImages/<id>.jpg.
func VOCImagePath(root, id string) string {
	return filepath.Join(root, "JPEGImages", id+".jpg")
}
