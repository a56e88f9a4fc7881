package serializer

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"google.golang.org/protobuf/encoding/protowire"
	"reflect"
	"strconv"
	"sync"
)

// NewProtobufSerializer creates a new serializer producing the protobuf wire format
func NewProtobufSerializer() IRPCSerializer {
	return &protobufSerializerImpl{}
}

// protobufSerializerImpl implements IRPCSerializer on top of protowire.
// Message layouts are derived from the `protobuf` struct tags and cached per type.
type protobufSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (p protobufSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, fmt.Errorf("protobuf: cannot serialize nil message")
	}
	return appendMessage(nil, v.Elem())
}

func (p protobufSerializerImpl) Deserialize(b []byte, msg common.Message) error {
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("protobuf: cannot deserialize into nil message")
	}

	// Reset the target, absent fields must read as zero
	v.Elem().Set(reflect.Zero(v.Elem().Type()))
	return consumeMessage(b, v.Elem())
}

// --------------------------------------------------------------------------
// Message Layout
// --------------------------------------------------------------------------

type fieldInfo struct {
	num   protowire.Number
	index int
}

type messageInfo struct {
	fields   []fieldInfo
	byNumber map[protowire.Number]int
}

// layouts caches one messageInfo per struct type
var layouts sync.Map

func layoutOf(t reflect.Type) (*messageInfo, error) {
	if mi, ok := layouts.Load(t); ok {
		return mi.(*messageInfo), nil
	}

	mi := &messageInfo{byNumber: make(map[protowire.Number]int)}
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("protobuf")
		if tag == "" {
			continue
		}
		n, err := strconv.Atoi(tag)
		if err != nil || n < int(protowire.MinValidNumber) || n > int(protowire.MaxValidNumber) {
			return nil, fmt.Errorf("protobuf: invalid field number %q on %s.%s", tag, t.Name(), t.Field(i).Name)
		}
		num := protowire.Number(n)
		if _, dup := mi.byNumber[num]; dup {
			return nil, fmt.Errorf("protobuf: duplicate field number %d on %s", n, t.Name())
		}
		mi.fields = append(mi.fields, fieldInfo{num: num, index: i})
		mi.byNumber[num] = i
	}

	actual, _ := layouts.LoadOrStore(t, mi)
	return actual.(*messageInfo), nil
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

func appendMessage(b []byte, v reflect.Value) ([]byte, error) {
	mi, err := layoutOf(v.Type())
	if err != nil {
		return nil, err
	}
	for _, f := range mi.fields {
		if b, err = appendField(b, f.num, v.Field(f.index)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func appendField(b []byte, num protowire.Number, fv reflect.Value) ([]byte, error) {
	switch fv.Kind() {
	case reflect.Ptr:
		if fv.IsNil() {
			return b, nil
		}
		if fv.Elem().Kind() == reflect.Struct {
			return appendNested(b, num, fv.Elem())
		}
		// pointer scalars are present even when zero
		return appendScalar(b, num, fv.Elem())

	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			if fv.Len() == 0 {
				return b, nil
			}
			return appendScalar(b, num, fv)
		}
		var err error
		for i := 0; i < fv.Len(); i++ {
			elem := fv.Index(i)
			if elem.Kind() == reflect.Ptr {
				if elem.IsNil() {
					return nil, fmt.Errorf("protobuf: nil element in repeated field %d", num)
				}
				b, err = appendField(b, num, elem)
			} else {
				b, err = appendScalar(b, num, elem)
			}
			if err != nil {
				return nil, err
			}
		}
		return b, nil

	default:
		if fv.IsZero() {
			return b, nil
		}
		return appendScalar(b, num, fv)
	}
}

func appendScalar(b []byte, num protowire.Number, v reflect.Value) ([]byte, error) {
	switch v.Kind() {
	case reflect.String:
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendString(b, v.String()), nil
	case reflect.Slice:
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendBytes(b, v.Bytes()), nil
	case reflect.Bool:
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeBool(v.Bool())), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// negative values are sign extended to 64 bit like protobuf int32/int64
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, v.Uint()), nil
	default:
		return nil, fmt.Errorf("protobuf: unsupported field type %s (field %d)", v.Type(), num)
	}
}

func appendNested(b []byte, num protowire.Number, v reflect.Value) ([]byte, error) {
	inner, err := appendMessage(nil, v)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner), nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

func consumeMessage(b []byte, v reflect.Value) error {
	mi, err := layoutOf(v.Type())
	if err != nil {
		return err
	}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("protobuf: %w", protowire.ParseError(n))
		}
		b = b[n:]

		idx, known := mi.byNumber[num]
		if !known {
			// skip fields this schema version does not know
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("protobuf: field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		n, err = consumeField(b, typ, v.Field(idx))
		if err != nil {
			return fmt.Errorf("protobuf: field %d of %s: %w", num, v.Type().Name(), err)
		}
		b = b[n:]
	}
	return nil
}

func consumeField(b []byte, typ protowire.Type, fv reflect.Value) (int, error) {
	switch fv.Kind() {
	case reflect.Ptr:
		if fv.Type().Elem().Kind() == reflect.Struct {
			data, n, err := consumeBytes(b, typ)
			if err != nil {
				return 0, err
			}
			// repeated occurrences of a message field merge into one value
			if fv.IsNil() {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			return n, consumeMessage(data, fv.Elem())
		}
		elem := reflect.New(fv.Type().Elem())
		n, err := consumeScalar(b, typ, elem.Elem())
		if err != nil {
			return 0, err
		}
		fv.Set(elem)
		return n, nil

	case reflect.Slice:
		elemType := fv.Type().Elem()
		if elemType.Kind() == reflect.Uint8 {
			return consumeScalar(b, typ, fv)
		}
		if elemType.Kind() == reflect.Ptr && elemType.Elem().Kind() == reflect.Struct {
			data, n, err := consumeBytes(b, typ)
			if err != nil {
				return 0, err
			}
			elem := reflect.New(elemType.Elem())
			if err := consumeMessage(data, elem.Elem()); err != nil {
				return 0, err
			}
			fv.Set(reflect.Append(fv, elem))
			return n, nil
		}
		if typ == protowire.BytesType && elemType.Kind() != reflect.String {
			return consumePacked(b, fv)
		}
		elem := reflect.New(elemType).Elem()
		n, err := consumeScalar(b, typ, elem)
		if err != nil {
			return 0, err
		}
		fv.Set(reflect.Append(fv, elem))
		return n, nil

	default:
		return consumeScalar(b, typ, fv)
	}
}

// consumePacked reads a packed repeated varint field
func consumePacked(b []byte, fv reflect.Value) (int, error) {
	data, n, err := consumeBytes(b, protowire.BytesType)
	if err != nil {
		return 0, err
	}
	for len(data) > 0 {
		elem := reflect.New(fv.Type().Elem()).Elem()
		m, err := consumeScalar(data, protowire.VarintType, elem)
		if err != nil {
			return 0, err
		}
		fv.Set(reflect.Append(fv, elem))
		data = data[m:]
	}
	return n, nil
}

func consumeBytes(b []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("wire type %d, want bytes", typ)
	}
	data, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return data, n, nil
}

func consumeVarint(b []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("wire type %d, want varint", typ)
	}
	x, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return x, n, nil
}

func consumeScalar(b []byte, typ protowire.Type, v reflect.Value) (int, error) {
	switch v.Kind() {
	case reflect.String:
		data, n, err := consumeBytes(b, typ)
		if err != nil {
			return 0, err
		}
		v.SetString(string(data))
		return n, nil
	case reflect.Slice:
		data, n, err := consumeBytes(b, typ)
		if err != nil {
			return 0, err
		}
		v.SetBytes(append([]byte(nil), data...))
		return n, nil
	case reflect.Bool:
		x, n, err := consumeVarint(b, typ)
		if err != nil {
			return 0, err
		}
		v.SetBool(protowire.DecodeBool(x))
		return n, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		x, n, err := consumeVarint(b, typ)
		if err != nil {
			return 0, err
		}
		v.SetInt(int64(x))
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		x, n, err := consumeVarint(b, typ)
		if err != nil {
			return 0, err
		}
		v.SetUint(x)
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported field type %s", v.Type())
	}
}
