package vocyolo

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed or incomplete annotation descriptor.
type ParseError struct {
	Path  string // The descriptor file.
	Field string // The offending element path, e.g. "size/width". May be empty.
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cannot parse %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("cannot parse %q: field %s: %v", e.Path, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Msg)
}

// FileNotFoundError reports a missing input file, either an image or a split list.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found %q: %v", e.Path, e.Err)
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}

// OrphanError is returned under the OrphanFail policy when relevant identifiers are listed in
// neither split list.
type OrphanError struct {
	IDs []string
}

func (e *OrphanError) Error() string {
	const maxListed = 5
	ids := e.IDs
	suffix := ""
	if len(ids) > maxListed {
		ids = ids[:maxListed]
		suffix = ", ..."
	}
	return fmt.Sprintf("%d relevant images are in neither split list: %s%s",
		len(e.IDs), strings.Join(ids, ", "), suffix)
}
