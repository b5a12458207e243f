package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Error codes for LoadError.
const (
	ErrCodeNotFound    = "E_NOT_FOUND"
	ErrCodeUnsupported = "E_UNSUPPORTED_FORMAT"
	ErrCodeParse       = "E_PARSE"
	ErrCodeDecode      = "E_DECODE"
)

// LoadError reports a failure to read or decode a parameter file.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Line    int       // YAML line, 0 if unknown
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Code, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsNotFound reports whether err is a LoadError for a missing file.
func IsNotFound(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == ErrCodeNotFound
}

// Raw is an undecoded parameter value.
type Raw interface {
	Decode(v any) error
}

// Format is a parameter file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf picks the syntax from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{Code: ErrCodeUnsupported, Path: path, Message: fmt.Sprintf("unsupported extension %q (want .yaml, .yml, .json or .cue)", filepath.Ext(path))}
	}
}

// LoadValues reads a parameter file into a name to value map.
func LoadValues(path string) (map[string]Raw, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if format == FormatCUE {
		return cueValues(path, data)
	}
	return yamlValues(path, data)
}

// LoadInto decodes a whole parameter file into v.
func LoadInto(path string, v any) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if format == FormatCUE {
		root, err := compileCUE(path, data)
		if err != nil {
			return err
		}
		return cueRaw{path: path, v: root}.Decode(v)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return &LoadError{Code: ErrCodeDecode, Path: path, Message: err.Error()}
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "file does not exist"}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

type yamlRaw struct {
	path string
	node *yaml.Node
}

// Decode re-encodes the node and decodes it strictly, since yaml.Node.Decode
// has no KnownFields switch.
func (r yamlRaw) Decode(v any) error {
	data, err := yaml.Marshal(r.node)
	if err != nil {
		return &LoadError{Code: ErrCodeDecode, Path: r.path, Line: r.node.Line, Message: err.Error()}
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return &LoadError{Code: ErrCodeDecode, Path: r.path, Line: r.node.Line, Message: err.Error()}
	}
	return nil
}

func yamlValues(path string, data []byte) (map[string]Raw, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	out := make(map[string]Raw, len(doc))
	for name, node := range doc {
		n := node
		out[name] = yamlRaw{path: path, node: &n}
	}
	return out, nil
}

type cueRaw struct {
	path string
	v    cue.Value
}

func (r cueRaw) Decode(v any) error {
	if err := r.v.Decode(v); err != nil {
		return &LoadError{Code: ErrCodeDecode, Path: r.path, Pos: r.v.Pos(), Message: err.Error()}
	}
	return nil
}

func compileCUE(path string, data []byte) (cue.Value, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(data, cue.Filename(path))
	if err := root.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	if err := root.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	return root, nil
}

func cueValues(path string, data []byte) (map[string]Raw, error) {
	root, err := compileCUE(path, data)
	if err != nil {
		return nil, err
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: fmt.Sprintf("top level must be a struct: %v", err)}
	}
	out := make(map[string]Raw)
	for iter.Next() {
		out[iter.Label()] = cueRaw{path: path, v: iter.Value()}
	}
	return out, nil
}
