// Package config loads parameter files for simulations.
//
// A parameter file is a top-level map from names to values. YAML (.yaml,
// .yml) and JSON (.json) files are read with gopkg.in/yaml.v3; CUE (.cue)
// files are evaluated with cuelang.org/go, so CUE constraints and
// references may be used to derive parameters.
//
// Values come back as Raw and are decoded on demand into the Go type the
// caller owns. YAML decoding is strict: unknown struct fields are errors.
// CUE decoding follows json struct tags.
package config
