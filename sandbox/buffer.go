package sandbox

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dop251/goja"
)

// byteBuffers holds the bytes behind Buffer instances of one context
type byteBuffers map[*goja.Object][]byte

func installBuffer(sc *scriptContext) error {
	buffers := byteBuffers{}
	ctor := sc.vm.NewObject()

	from := func(call goja.FunctionCall) goja.Value {
		data, err := buffers.bytesOf(call.Argument(0), encodingArg(call.Argument(1)))
		if err != nil {
			panic(sc.vm.NewTypeError(err.Error()))
		}
		return buffers.wrap(sc.vm, data)
	}

	isBuffer := func(call goja.FunctionCall) goja.Value {
		obj, ok := call.Argument(0).(*goja.Object)
		if !ok {
			return sc.vm.ToValue(false)
		}
		_, ok = buffers[obj]
		return sc.vm.ToValue(ok)
	}

	byteLength := func(call goja.FunctionCall) goja.Value {
		data, err := buffers.bytesOf(call.Argument(0), encodingArg(call.Argument(1)))
		if err != nil {
			panic(sc.vm.NewTypeError(err.Error()))
		}
		return sc.vm.ToValue(len(data))
	}

	concat := func(call goja.FunctionCall) goja.Value {
		list, ok := call.Argument(0).(*goja.Object)
		if !ok || list.ClassName() != "Array" {
			panic(sc.vm.NewTypeError("Buffer.concat: list must be an array of buffers"))
		}

		var out []byte
		for _, key := range list.Keys() {
			item, ok := list.Get(key).(*goja.Object)
			if !ok {
				panic(sc.vm.NewTypeError("Buffer.concat: list must be an array of buffers"))
			}
			data, ok := buffers[item]
			if !ok {
				panic(sc.vm.NewTypeError("Buffer.concat: list must be an array of buffers"))
			}
			out = append(out, data...)
		}
		return buffers.wrap(sc.vm, out)
	}

	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"from":       from,
		"isBuffer":   isBuffer,
		"byteLength": byteLength,
		"concat":     concat,
	} {
		if err := ctor.Set(name, fn); err != nil {
			return err
		}
	}

	return sc.vm.Set("Buffer", ctor)
}

func encodingArg(v goja.Value) string {
	if isMissing(v) {
		return "utf8"
	}
	return strings.ToLower(v.String())
}

// wrap creates the script-visible Buffer instance for data
func (b byteBuffers) wrap(vm *goja.Runtime, data []byte) *goja.Object {
	obj := vm.NewObject()
	b[obj] = data

	_ = obj.Set("length", len(data))
	_ = obj.Set("toString", func(call goja.FunctionCall) goja.Value {
		s, err := encodeBytes(data, encodingArg(call.Argument(0)))
		if err != nil {
			panic(vm.NewTypeError(err.Error()))
		}
		return vm.ToValue(s)
	})
	_ = obj.Set("toJSON", func(goja.FunctionCall) goja.Value {
		values := make([]any, len(data))
		for i, c := range data {
			values[i] = int(c)
		}
		out := vm.NewObject()
		_ = out.Set("type", "Buffer")
		_ = out.Set("data", vm.NewArray(values...))
		return out
	})

	return obj
}

// bytesOf accepts a string, a Buffer or an array of byte values
func (b byteBuffers) bytesOf(v goja.Value, encoding string) ([]byte, error) {
	if obj, ok := v.(*goja.Object); ok {
		if data, ok := b[obj]; ok {
			out := make([]byte, len(data))
			copy(out, data)
			return out, nil
		}
		if obj.ClassName() == "Array" {
			keys := obj.Keys()
			out := make([]byte, 0, len(keys))
			for _, key := range keys {
				out = append(out, byte(obj.Get(key).ToInteger()&0xff))
			}
			return out, nil
		}
		return nil, fmt.Errorf("Buffer: unsupported source of type %s", obj.ClassName())
	}

	if isMissing(v) {
		return nil, fmt.Errorf("Buffer: source must be a string, Buffer or array")
	}

	return decodeString(v.String(), encoding)
}

func decodeString(s, encoding string) ([]byte, error) {
	switch encoding {
	case "utf8", "utf-8":
		return []byte(s), nil
	case "base64", "base64url":
		return decodeBase64(s)
	case "hex":
		return decodeHex(s), nil
	case "latin1", "binary", "ascii":
		out := make([]byte, 0, len(s))
		for _, r := range s {
			out = append(out, byte(r))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("Buffer: unknown encoding: %s", encoding)
	}
}

func encodeBytes(data []byte, encoding string) (string, error) {
	switch encoding {
	case "utf8", "utf-8":
		if utf8.Valid(data) {
			return string(data), nil
		}
		return strings.ToValidUTF8(string(data), "\uFFFD"), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(data), nil
	case "base64url":
		return base64.RawURLEncoding.EncodeToString(data), nil
	case "hex":
		return hex.EncodeToString(data), nil
	case "latin1", "binary", "ascii":
		runes := make([]rune, len(data))
		for i, c := range data {
			runes[i] = rune(c)
		}
		return string(runes), nil
	default:
		return "", fmt.Errorf("Buffer: unknown encoding: %s", encoding)
	}
}

// decodeBase64 accepts both alphabets, skips characters outside them and
// stops at the first '=', the way Node does
func decodeBase64(s string) ([]byte, error) {
	clean := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '=':
			i = len(s)
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
			clean = append(clean, c)
		case c == '-':
			clean = append(clean, '+')
		case c == '_':
			clean = append(clean, '/')
		}
	}

	// a lone trailing character carries fewer than 8 bits
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}

	data, err := base64.RawStdEncoding.DecodeString(string(clean))
	if err != nil {
		return nil, fmt.Errorf("Buffer: invalid base64 input: %v", err)
	}
	return data, nil
}

// decodeHex decodes byte pairs up to the first invalid one
func decodeHex(s string) []byte {
	out := make([]byte, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		var b [1]byte
		if _, err := hex.Decode(b[:], []byte(s[i:i+2])); err != nil {
			break
		}
		out = append(out, b[0])
	}
	return out
}
