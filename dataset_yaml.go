package vocyolo

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DatasetYAMLName is the file name of the dataset description in the output tree.
const DatasetYAMLName = "data.yaml"

// DatasetYAML is the dataset description read by Ultralytics style trainers. Train and Val are
// relative to Path; label directories are derived by replacing "images" with "labels".
type DatasetYAML struct {
	Path  string         `yaml:"path"`
	Train string         `yaml:"train"`
	Val   string         `yaml:"val"`
	NC    int            `yaml:"nc"`
	Names map[int]string `yaml:"names"`
}

// NewDatasetYAML describes the output tree at destRoot for the given classes.
func NewDatasetYAML(destRoot string, classes Classes) (DatasetYAML, error) {
	absRoot, err := filepath.Abs(destRoot)
	if err != nil {
		return DatasetYAML{}, err
	}

	names := make(map[int]string, len(classes))
	for i, c := range classes {
		names[i] = c
	}
	return DatasetYAML{
		Path:  absRoot,
		Train: filepath.Join("images", Train.String()),
		Val:   filepath.Join("images", Val.String()),
		NC:    len(classes),
		Names: names,
	}, nil
}

// WriteDatasetYAML writes <destRoot>/data.yaml and returns its path.
func WriteDatasetYAML(destRoot string, classes Classes) (string, error) {
	data, err := NewDatasetYAML(destRoot, classes)
	if err != nil {
		return "", err
	}
	enc, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}

	path := filepath.Join(destRoot, DatasetYAMLName)
	if err := os.WriteFile(path, enc, 0644); err != nil {
		return "", fmt.Errorf("cannot write file %q: %w", path, err)
	}
	return path, nil
}
