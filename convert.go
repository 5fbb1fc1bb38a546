package vocyolo

import (
	"fmt"

	"github.com/cyclopcam/logs"
)

// Conversion is the result of converting a directory of VOC descriptors. It only describes the
// labels; nothing has been written yet.
type Conversion struct {
	Labels   map[string]YOLOAnnotatedFile // Keyed by image identifier; relevant images only.
	Relevant []string                     // Relevant identifiers, in descriptor name order.
	Skipped  []string                     // Identifiers without any allow-listed object.
	Failures []Failure
}

// Converter turns VOC descriptors into YOLO labels for the allow-listed categories.
type Converter struct {
	log           logs.Log
	sourceRoot    string
	classes       Classes
	mappings      []LabelMapping
	skipDifficult bool
	sizeFromImage bool
}

// NewConverter creates a converter for the validated configuration cfg.
func NewConverter(log logs.Log, cfg *Config) (*Converter, error) {
	classes, err := cfg.Classes()
	if err != nil {
		return nil, err
	}
	if err := classes.Validate(); err != nil {
		return nil, err
	}
	mappings, err := ParseLabelMappings(cfg.LabelMappings)
	if err != nil {
		return nil, &ConfigError{Field: "label_mappings", Msg: err.Error()}
	}

	return &Converter{
		log:           log,
		sourceRoot:    cfg.SourceRoot,
		classes:       classes,
		mappings:      mappings,
		skipDifficult: cfg.SkipDifficult,
		sizeFromImage: cfg.SizeFromImage,
	}, nil
}

// Classes returns the allow-list of the converter.
func (c *Converter) Classes() Classes {
	return c.classes
}

// keep decides whether an object contributes to the label file.
func (c *Converter) keep(o VOCObject) bool {
	if c.skipDifficult && o.IsDifficult() {
		return false
	}
	_, ok := c.classes.Index(o.Label())
	return ok
}

// ConvertFile converts the VOC descriptor at path.
//
// The returned bool is false if the image has no allow-listed object. The size block and bounding
// boxes are only validated for relevant images.
func (c *Converter) ConvertFile(path string) (YOLOAnnotatedFile, bool, error) {
	_, id, _, err := splitPath(path)
	if err != nil {
		return YOLOAnnotatedFile{}, false, err
	}

	vocData, err := ReadVOCFile(path)
	if err != nil {
		return YOLOAnnotatedFile{}, false, err
	}
	vocData.MapLabels(c.mappings)

	if !vocData.Any(c.keep) {
		return YOLOAnnotatedFile{}, false, nil
	}

	fileData, err := vocData.ToIR(id, c.keep)
	if err != nil {
		return YOLOAnnotatedFile{}, false, err
	}

	// Fall back to the image header for descriptors without a usable size.
	if c.sizeFromImage && (fileData.Width <= 0 || fileData.Height <= 0) {
		imgPath := VOCImagePath(c.sourceRoot, id)
		config, _, err := decodeImageConfig(imgPath)
		if err != nil {
			return YOLOAnnotatedFile{}, false, &ParseError{
				Path:  path,
				Field: "size",
				Err:   fmt.Errorf("no usable size and cannot read %q: %w", imgPath, err),
			}
		}
		fileData.Width, fileData.Height = config.Width, config.Height
	}

	return ToYOLO(fileData, c.classes)
}

// ConvertDir converts all .xml descriptors in dirPath, in file name order.
//
// A descriptor that cannot be converted is recorded in the returned failures and does not stop the
// batch. Only an unreadable directory is an error.
func (c *Converter) ConvertDir(dirPath string) (*Conversion, error) {
	files, err := filesByExtInDir(dirPath, ".xml")
	if err != nil {
		return nil, err
	}
	c.log.Infof("Converting %d annotation files for categories %v", len(files), []string(c.classes))

	result := &Conversion{Labels: make(map[string]YOLOAnnotatedFile)}
	for _, path := range files {
		_, id, _, _ := splitPath(path)

		yoloData, relevant, err := c.ConvertFile(path)
		if err != nil {
			c.log.Warnf("Error while parsing, skipping %q: %v", path, err)
			result.Failures = append(result.Failures, Failure{ID: id, Stage: StageConvert, Err: err})
			continue
		}
		if !relevant {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		result.Labels[id] = yoloData
		result.Relevant = append(result.Relevant, id)
	}

	c.log.Infof("%d of %d annotation files contain allow-listed objects", len(result.Relevant),
		len(files))
	return result, nil
}
