package vocyolo

// YOLO specific functionality.

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// YOLOAnnotation is a single line of a YOLO label file. All values except ClassID are relative to
// the image size.
type YOLOAnnotation struct {
	ClassID int
	CenterX float64
	CenterY float64
	Width   float64
	Height  float64
}

// String renders the annotation as a label file line with six decimals per value.
func (a YOLOAnnotation) String() string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", a.ClassID, a.CenterX, a.CenterY, a.Width, a.Height)
}

// Coords converts the annotation back to absolute x1, y1, x2, y2 coordinates for an image of the
// given size.
func (a YOLOAnnotation) Coords(width, height int) [4]float64 {
	w := float64(width)
	h := float64(height)
	return [4]float64{
		(a.CenterX - a.Width/2) * w,
		(a.CenterY - a.Height/2) * h,
		(a.CenterX + a.Width/2) * w,
		(a.CenterY + a.Height/2) * h,
	}
}

// YOLOAnnotatedFile defines the YOLO annotation structure for a single image.
type YOLOAnnotatedFile struct {
	Annotations []YOLOAnnotation
	ID          string // The image identifier; the label file is named <ID>.txt.
}

// Lines renders all annotations as label file lines.
func (f YOLOAnnotatedFile) Lines() []string {
	lines := make([]string, len(f.Annotations))
	for i, a := range f.Annotations {
		lines[i] = a.String()
	}
	return lines
}

// ToYOLO converts the intermediate representation of one image to YOLO format.
//
// The returned bool is false if no annotation has a label in classes, in which case the image is
// not relevant and nothing is emitted. Otherwise there is one YOLOAnnotation per annotation with an
// allow-listed label, in descriptor order; annotations with other labels are dropped.
func ToYOLO(fileData AnnotatedFile, classes Classes) (YOLOAnnotatedFile, bool, error) {
	relevant := false
	for _, a := range fileData.Annotations {
		if _, ok := classes.Index(a.Label); ok {
			relevant = true
			break
		}
	}
	if !relevant {
		return YOLOAnnotatedFile{}, false, nil
	}

	if fileData.Width <= 0 || fileData.Height <= 0 {
		return YOLOAnnotatedFile{}, false, &ParseError{
			Path:  fileData.FilePath,
			Field: "size",
			Err:   fmt.Errorf("invalid image size %dx%d", fileData.Width, fileData.Height),
		}
	}
	w := float64(fileData.Width)
	h := float64(fileData.Height)

	yoloFile := YOLOAnnotatedFile{
		Annotations: make([]YOLOAnnotation, 0, len(fileData.Annotations)),
		ID:          fileData.ID,
	}
	for _, a := range fileData.Annotations {
		classID, ok := classes.Index(a.Label)
		if !ok {
			continue
		}
		yoloFile.Annotations = append(yoloFile.Annotations, YOLOAnnotation{
			ClassID: classID,
			CenterX: (a.Coords[0] + a.Coords[2]) / 2 / w,
			CenterY: (a.Coords[1] + a.Coords[3]) / 2 / h,
			Width:   a.Width() / w,
			Height:  a.Height() / h,
		})
	}

	return yoloFile, true, nil
}

// ParseYOLOLine parses a single label file line of the form "<class> <cx> <cy> <w> <h>".
func ParseYOLOLine(line string) (YOLOAnnotation, error) {
	a := YOLOAnnotation{}

	tokens := strings.Fields(line)
	if len(tokens) != 5 {
		return a, fmt.Errorf("expected 5 tokens in %q, got %d", line, len(tokens))
	}

	var err error
	if a.ClassID, err = strconv.Atoi(tokens[0]); err != nil || a.ClassID < 0 {
		return a, fmt.Errorf("invalid class ID in %q", line)
	}
	values := []*float64{&a.CenterX, &a.CenterY, &a.Width, &a.Height}
	for i, v := range values {
		if *v, err = strconv.ParseFloat(tokens[i+1], 64); err != nil {
			return a, fmt.Errorf("unexpected values in %q: %v", line, err)
		}
	}

	return a, nil
}

// ReadYOLOLabel reads the label file at path.
func ReadYOLOLabel(path string) (YOLOAnnotatedFile, error) {
	lines, err := readLines(path)
	if err != nil {
		return YOLOAnnotatedFile{}, err
	}
	_, id, _, err := splitPath(path)
	if err != nil {
		return YOLOAnnotatedFile{}, err
	}

	yoloFile := YOLOAnnotatedFile{Annotations: make([]YOLOAnnotation, 0, len(lines)), ID: id}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, err := ParseYOLOLine(line)
		if err != nil {
			return YOLOAnnotatedFile{}, fmt.Errorf("cannot parse %q: %w", path, err)
		}
		yoloFile.Annotations = append(yoloFile.Annotations, a)
	}
	return yoloFile, nil
}

// WriteYOLOLabel writes the label file for data to dirPath/<ID>.txt and returns its path.
func WriteYOLOLabel(dirPath string, data YOLOAnnotatedFile) (string, error) {
	dirInfo, err := os.Stat(dirPath)
	if err != nil || !dirInfo.IsDir() {
		return "", fmt.Errorf("cannot access directory %q: %v", dirPath, err)
	}

	filePath := filepath.Join(dirPath, data.ID+".txt")
	if err := writeLines(filePath, data.Lines()); err != nil {
		return "", err
	}
	return filePath, nil
}
