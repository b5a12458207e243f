package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Encode returns the canonical key text of v. Strings are kept byte-exact so
// that two values share a key only when they compare equal.
func Encode(v any) (string, error) {
	var b strings.Builder
	if err := encode(&b, reflect.ValueOf(v), false); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Format returns the display text of v: Encode with strings NFC normalized.
// Used for text that leaves the process (reports, traces).
func Format(v any) (string, error) {
	var b strings.Builder
	if err := encode(&b, reflect.ValueOf(v), true); err != nil {
		return "", err
	}
	return b.String(), nil
}

// MustFormat is like Format but panics on unsupported values.
// Property types are checked with Supported when they are defined.
func MustFormat(v any) string {
	s, err := Format(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Tuple returns the canonical text of a value tuple, used as a
// multi-property index key.
func Tuple(vals ...any) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := encode(&b, reflect.ValueOf(v), false); err != nil {
			return "", fmt.Errorf("tuple[%d]: %w", i, err)
		}
	}
	b.WriteByte(']')
	return b.String(), nil
}

// Supported reports whether values of type t can be encoded.
func Supported(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Array:
		return Supported(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := Supported(t.Field(i).Type); err != nil {
				return fmt.Errorf("%s.%s: %w", t.Name(), t.Field(i).Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value kind %s (%s)", t.Kind(), t)
	}
}

// HasNaN reports whether v is or contains a NaN float. NaN is not equal to
// itself, so it cannot be stored in a property or used as an index key.
func HasNaN(v any) bool {
	return hasNaN(reflect.ValueOf(v))
}

func hasNaN(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(v.Float())
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if hasNaN(v.Index(i)) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if hasNaN(v.Field(i)) {
				return true
			}
		}
	}
	return false
}

func encode(b *strings.Builder, v reflect.Value, nfc bool) error {
	if !v.IsValid() {
		return fmt.Errorf("nil value is not encodable")
	}

	switch v.Kind() {
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString(formatFloat(v.Float(), v.Type().Bits()))
	case reflect.String:
		s, err := quote(v.String(), nfc)
		if err != nil {
			return err
		}
		b.WriteString(s)
	case reflect.Array:
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encode(b, v.Index(i), nfc); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		b.WriteByte(']')
	case reflect.Struct:
		b.WriteByte('[')
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encode(b, v.Field(i), nfc); err != nil {
				return fmt.Errorf("%s: %w", v.Type().Field(i).Name, err)
			}
		}
		b.WriteByte(']')
	default:
		return fmt.Errorf("unsupported value kind %s (%s)", v.Kind(), v.Type())
	}
	return nil
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return `"NaN"`
	case math.IsInf(f, 1):
		return `"+Inf"`
	case math.IsInf(f, -1):
		return `"-Inf"`
	case f == 0:
		// -0 == 0, so both must share a key
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// quote produces a JSON string without HTML escaping.
func quote(s string, nfc bool) (string, error) {
	if nfc {
		s = norm.NFC.String(s)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
