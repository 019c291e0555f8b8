package encoder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Metadata threads positional information through a Marshal/Unmarshal call
// so a nested BinaryMarshaler/BinaryUnmarshaler can compute offsets relative
// to the start of the enclosing message, as the AndX chain requires
// (AndXOffset is counted from the start of the SMB header, not from the
// start of the current command block).
type Metadata struct {
	// ParentOffset is the offset, in the final wire message, at which the
	// struct currently being encoded/decoded begins. Marshal and Unmarshal
	// themselves always pass a zero Metadata, for top-level values and
	// nested fields alike; they do not fill this in.
	ParentOffset int
}

// BinaryMarshaler lets a type whose wire layout isn't a flat sequence of
// fixed-size fields take over its own encoding. The command codecs in
// package smb do not implement it; they build their variable-length parts
// with Buffer directly.
type BinaryMarshaler interface {
	MarshalBinary(meta *Metadata) ([]byte, error)
}

// BinaryUnmarshaler is the decode counterpart of BinaryMarshaler.
type BinaryUnmarshaler interface {
	UnmarshalBinary(buf []byte, meta *Metadata) error
}

// Marshal encodes v field by field in declaration order. Each field must be
// a fixed-width integer (uint8/16/32/64, int16), a []byte tagged
// `smb:"fixed:N"`, or a nested struct/BinaryMarshaler. This mirrors the
// struct-tag convention used for SMB1Header: a handful of scalar fields plus
// one or two fixed-length byte slices (the protocol magic, the security
// features blob).
func Marshal(v interface{}) ([]byte, error) {
	if m, ok := v.(BinaryMarshaler); ok {
		return m.MarshalBinary(&Metadata{})
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("encoder: Marshal expects a struct, got %s", rv.Kind())
	}

	buf := NewBuffer(64)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		val := rv.Field(i)
		if err := marshalField(buf, field, val); err != nil {
			return nil, fmt.Errorf("encoder: field %s: %w", field.Name, err)
		}
	}
	return buf.Bytes(), nil
}

func marshalField(buf *Buffer, field reflect.StructField, val reflect.Value) error {
	if bm, ok := val.Interface().(BinaryMarshaler); ok {
		b, err := bm.MarshalBinary(&Metadata{})
		if err != nil {
			return err
		}
		buf.PutBytes(b)
		return nil
	}

	fixedN, isFixed := fixedSize(field)

	switch val.Kind() {
	case reflect.Uint8:
		buf.PutU8(uint8(val.Uint()))
	case reflect.Uint16:
		buf.PutU16(uint16(val.Uint()))
	case reflect.Uint32:
		buf.PutU32(uint32(val.Uint()))
	case reflect.Uint64:
		buf.PutU64(val.Uint())
	case reflect.Int16:
		buf.PutU16(uint16(int16(val.Int())))
	case reflect.Slice:
		if val.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("unsupported slice element type %s", val.Type().Elem())
		}
		b := val.Bytes()
		if isFixed {
			padded := make([]byte, fixedN)
			copy(padded, b)
			buf.PutBytes(padded)
		} else {
			buf.PutBytes(b)
		}
	case reflect.Struct:
		nested, err := Marshal(val.Interface())
		if err != nil {
			return err
		}
		buf.PutBytes(nested)
	default:
		return fmt.Errorf("unsupported kind %s", val.Kind())
	}
	return nil
}

// Unmarshal decodes buf into v using the same field-order convention as
// Marshal. Unlike Marshal, variable-length fields (slices without a
// `fixed:N` tag) are not supported here — a type that needs them must
// implement BinaryUnmarshaler.
func Unmarshal(buf []byte, v interface{}) error {
	if um, ok := v.(BinaryUnmarshaler); ok {
		return um.UnmarshalBinary(buf, &Metadata{})
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("encoder: Unmarshal expects a pointer to struct")
	}
	rv = rv.Elem()

	r := NewBufferFrom(buf)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		val := rv.Field(i)
		if err := unmarshalField(r, field, val); err != nil {
			return fmt.Errorf("encoder: field %s: %w", field.Name, err)
		}
	}
	return nil
}

func unmarshalField(r *Buffer, field reflect.StructField, val reflect.Value) error {
	fixedN, isFixed := fixedSize(field)

	switch val.Kind() {
	case reflect.Uint8:
		x, err := r.GetU8()
		if err != nil {
			return err
		}
		val.SetUint(uint64(x))
	case reflect.Uint16:
		x, err := r.GetU16()
		if err != nil {
			return err
		}
		val.SetUint(uint64(x))
	case reflect.Uint32:
		x, err := r.GetU32()
		if err != nil {
			return err
		}
		val.SetUint(uint64(x))
	case reflect.Uint64:
		x, err := r.GetU64()
		if err != nil {
			return err
		}
		val.SetUint(x)
	case reflect.Int16:
		x, err := r.GetU16()
		if err != nil {
			return err
		}
		val.SetInt(int64(int16(x)))
	case reflect.Slice:
		if val.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("unsupported slice element type %s", val.Type().Elem())
		}
		if !isFixed {
			return fmt.Errorf("variable-length slice requires a custom UnmarshalBinary")
		}
		b, err := r.GetBytes(fixedN)
		if err != nil {
			return err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		val.SetBytes(cp)
	case reflect.Struct:
		nestedVal := reflect.New(val.Type())
		n, err := structWireSize(val.Type())
		if err != nil {
			return err
		}
		chunk, err := r.GetBytes(n)
		if err != nil {
			return err
		}
		if err := Unmarshal(chunk, nestedVal.Interface()); err != nil {
			return err
		}
		val.Set(nestedVal.Elem())
	default:
		return fmt.Errorf("unsupported kind %s", val.Kind())
	}
	return nil
}

// fixedSize parses the `smb:"fixed:N"` struct tag.
func fixedSize(field reflect.StructField) (int, bool) {
	tag := field.Tag.Get("smb")
	if tag == "" {
		return 0, false
	}
	for _, part := range strings.Split(tag, ",") {
		if strings.HasPrefix(part, "fixed:") {
			n, err := strconv.Atoi(strings.TrimPrefix(part, "fixed:"))
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

// structWireSize computes the flat encoded size of a struct made only of
// fixed-width scalar fields and `fixed:N` byte slices, used when decoding a
// nested struct field out of a larger buffer.
func structWireSize(t reflect.Type) (int, error) {
	size := 0
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if n, ok := fixedSize(field); ok {
			size += n
			continue
		}
		switch field.Type.Kind() {
		case reflect.Uint8:
			size++
		case reflect.Uint16, reflect.Int16:
			size += 2
		case reflect.Uint32:
			size += 4
		case reflect.Uint64:
			size += 8
		case reflect.Struct:
			n, err := structWireSize(field.Type)
			if err != nil {
				return 0, err
			}
			size += n
		default:
			return 0, fmt.Errorf("cannot size field %s of kind %s", field.Name, field.Type.Kind())
		}
	}
	return size, nil
}
