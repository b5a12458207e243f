// Package value renders property values into canonical text.
//
// Canonical text is used wherever a value must become a map key or leave the
// process: multi-property index keys, report rows and scenario traces.
//
// Rules:
//   - Strings are JSON quoted without HTML escaping; Format also applies NFC
//   - Integers are plain decimal, floats use the shortest round-trip form
//   - Structs and arrays become JSON arrays in field/element order
//   - Pointers, maps, slices, channels and funcs are rejected
//
// Two values of the same Go type Encode to the same text if and only if they
// compare equal with ==, except that every NaN encodes as "NaN". The kernel
// rejects NaN property values (see HasNaN), so keys never carry it.
package value
