package rtcbridge

import (
	"github.com/dop251/goja"
)

const (
	opToNative = "to native"
	opToScript = "to script"
)

// ToNativeBytes copies the bytes viewed by v, which must be an ArrayBuffer or
// an ArrayBufferView. The result is always a fresh, exactly sized slice,
// non-nil even when empty.
func ToNativeBytes(runtime *goja.Runtime, v goja.Value) ([]byte, error) {
	return toNativeBytes(runtime, v, 0)
}

// toNativeBytes implements ToNativeBytes, failing before the copy if the
// payload exceeds limit (if positive).
func toNativeBytes(runtime *goja.Runtime, v goja.Value, limit int) ([]byte, error) {
	src, err := viewBytes(runtime, v)
	if err != nil {
		return nil, &MarshalingError{Op: opToNative, Cause: err}
	}
	if limit > 0 && len(src) > limit {
		return nil, &MarshalingError{Op: opToNative, Cause: ErrPayloadTooLarge}
	}
	b := make([]byte, len(src))
	copy(b, src)
	return b, nil
}

// viewBytes returns the bytes viewed by v, aliasing the runtime's memory.
func viewBytes(runtime *goja.Runtime, v goja.Value) ([]byte, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, ErrNotBinary
	}

	switch exported := v.Export().(type) {
	// goja exports ArrayBuffer as goja.ArrayBuffer.
	case goja.ArrayBuffer:
		return exported.Bytes(), nil
	// goja exports Uint8Array (and Buffer) as []byte.
	case []byte:
		return exported, nil
	}

	// any other view, e.g. DataView or Int32Array
	obj, ok := v.(*goja.Object)
	if !ok || !isView(runtime, obj) {
		return nil, ErrNotBinary
	}
	ab, ok := obj.Get("buffer").Export().(goja.ArrayBuffer)
	if !ok {
		return nil, ErrNotBinary
	}
	data := ab.Bytes()
	offset := obj.Get("byteOffset").ToInteger()
	length := obj.Get("byteLength").ToInteger()
	if offset < 0 || length < 0 || offset+length > int64(len(data)) {
		return nil, ErrNotBinary
	}
	return data[offset : offset+length], nil
}

func isView(runtime *goja.Runtime, obj *goja.Object) bool {
	ctor := runtime.Get("ArrayBuffer")
	if ctor == nil || goja.IsUndefined(ctor) {
		return false
	}
	fn, ok := goja.AssertFunction(ctor.ToObject(runtime).Get("isView"))
	if !ok {
		return false
	}
	result, err := fn(ctor, obj)
	return err == nil && result.ToBoolean()
}

// ToScriptBuffer copies b into a new ArrayBuffer of exactly len(b) bytes,
// returning a Uint8Array over it. A nil b yields an empty Uint8Array.
func ToScriptBuffer(runtime *goja.Runtime, b []byte) (*goja.Object, error) {
	ctor := runtime.Get("Uint8Array")
	if ctor == nil || goja.IsUndefined(ctor) {
		return nil, &MarshalingError{Op: opToScript, Cause: ErrNoUint8Array}
	}
	data := make([]byte, len(b))
	copy(data, b)
	result, err := runtime.New(ctor, runtime.ToValue(runtime.NewArrayBuffer(data)))
	if err != nil {
		return nil, &MarshalingError{Op: opToScript, Cause: err}
	}
	return result, nil
}
