package vocyolo

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig returns the annotated sample configuration file.
func SampleConfig() string {
	return sampleConfig
}

// Config holds all options of a conversion run.
type Config struct {
	SourceRoot            string       `toml:"source_root"`             // The VOC tree.
	DestRoot              string       `toml:"dest_root"`               // The YOLO output tree.
	CategoryAllowlist     []string     `toml:"category_allowlist"`      // Ordered; the index is the class ID.
	CategoryAllowlistFile string       `toml:"category_allowlist_file"` // Replaces CategoryAllowlist when set.
	LabelMappings         []string     `toml:"label_mappings"`          // old=new label rewrites.
	SkipDifficult         bool         `toml:"skip_difficult"`
	SizeFromImage         bool         `toml:"size_from_image"`
	OrphanPolicy          OrphanPolicy `toml:"orphan_policy"`
	ManifestAbsolutePaths bool         `toml:"manifest_absolute_paths"`
	WriteDatasetYAML      bool         `toml:"write_dataset_yaml"`
	Workers               int          `toml:"workers"`
	Images                ImageOptions `toml:"images"`
}

// Default returns the default configuration: VOC2012 to dataset, person only.
func Default() Config {
	return Config{
		SourceRoot:        "VOC2012",
		DestRoot:          "dataset",
		CategoryAllowlist: []string{"person"},
		OrphanPolicy:      OrphanWarn,
		Workers:           1,
		Images: ImageOptions{
			DownsampleFilter: "box",
			UpsampleFilter:   "linear",
			JPEGQuality:      90,
		},
	}
}

// LoadConfig parses the TOML file at path on top of the defaults. It is not an error if the file
// does not exist; the returned bool reports whether it did. An empty path yields the defaults.
func LoadConfig(path string) (*Config, bool, error) {
	cfg := Default()
	if path == "" {
		return &cfg, false, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, false, nil
		}
		return nil, false, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, true, fmt.Errorf("parse config %q: %w", path, err)
	}

	return &cfg, true, nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Classes returns the category allow-list, loading it from CategoryAllowlistFile if that is set.
func (c *Config) Classes() (Classes, error) {
	if c.CategoryAllowlistFile == "" {
		return Classes(c.CategoryAllowlist), nil
	}
	classes, err := LoadClasses(c.CategoryAllowlistFile)
	if err != nil {
		return nil, &ConfigError{Field: "category_allowlist_file", Msg: err.Error()}
	}
	return classes, nil
}

// Validate ensures the configuration is usable. All errors are *ConfigError.
func (c *Config) Validate() error {
	if c.SourceRoot == "" {
		return &ConfigError{Field: "source_root", Msg: "must be set"}
	}
	if c.DestRoot == "" {
		return &ConfigError{Field: "dest_root", Msg: "must be set"}
	}
	if filepath.Clean(c.SourceRoot) == filepath.Clean(c.DestRoot) {
		return &ConfigError{Field: "dest_root", Msg: "must differ from source_root"}
	}

	classes, err := c.Classes()
	if err != nil {
		return err
	}
	if err := classes.Validate(); err != nil {
		return err
	}

	if _, err := ParseLabelMappings(c.LabelMappings); err != nil {
		return &ConfigError{Field: "label_mappings", Msg: err.Error()}
	}
	if !c.OrphanPolicy.Valid() {
		return &ConfigError{Field: "orphan_policy",
			Msg: fmt.Sprintf("unknown policy %q, expected drop, warn, error or keep", c.OrphanPolicy)}
	}
	if c.Workers < 1 {
		return &ConfigError{Field: "workers", Msg: "must be at least 1"}
	}

	if c.Images.ResizeLonger < 0 || c.Images.ResizeShorter < 0 {
		return &ConfigError{Field: "images", Msg: "resize lengths must not be negative"}
	}
	if _, err := parseResampleFilter(c.Images.DownsampleFilter); err != nil {
		return &ConfigError{Field: "images.downsample_filter", Msg: err.Error()}
	}
	if _, err := parseResampleFilter(c.Images.UpsampleFilter); err != nil {
		return &ConfigError{Field: "images.upsample_filter", Msg: err.Error()}
	}
	if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
		return &ConfigError{Field: "images.jpeg_quality", Msg: "must be in [1, 100]"}
	}

	return nil
}
