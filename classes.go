package vocyolo

import (
	"fmt"
	"strings"
)

// Classes is the ordered category allow-list. The position of a label is its class ID.
type Classes []string

// Index returns the class ID of label.
func (c Classes) Index(label string) (int, bool) {
	for i, v := range c {
		if v == label {
			return i, true
		}
	}
	return -1, false
}

// Validate checks that the allow-list is non-empty and free of blank or duplicate labels.
func (c Classes) Validate() error {
	if len(c) == 0 {
		return &ConfigError{Field: "category_allowlist", Msg: "at least one category is required"}
	}
	seen := make(map[string]bool, len(c))
	for i, v := range c {
		if strings.TrimSpace(v) == "" {
			return &ConfigError{Field: "category_allowlist", Msg: fmt.Sprintf("entry %d is empty", i)}
		}
		if seen[v] {
			return &ConfigError{Field: "category_allowlist", Msg: fmt.Sprintf("duplicate category %q", v)}
		}
		seen[v] = true
	}
	return nil
}

// LoadClasses reads an allow-list from a text file with one label per line. Blank lines are
// ignored.
func LoadClasses(path string) (Classes, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	classes := make(Classes, 0, len(lines))
	for _, line := range lines {
		if label := strings.TrimSpace(line); label != "" {
			classes = append(classes, label)
		}
	}
	return classes, nil
}
