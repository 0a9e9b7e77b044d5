package managed

import (
	"reflect"
)

// Method is a resolved method of a native object, F being its func type.
type Method[F any] struct {
	fn   F
	name string
}

// Resolve looks up the method name on obj, which must have exactly the
// signature F. Failure is always a [*MethodError].
func Resolve[F any](obj any, name string) (*Method[F], error) {
	want := reflect.TypeFor[F]()
	if want.Kind() != reflect.Func {
		panic("managed: method type must be a func: " + want.String())
	}
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return nil, &MethodError{Name: name, Want: want}
	}
	m := v.MethodByName(name)
	if !m.IsValid() {
		return nil, &MethodError{Name: name, Want: want}
	}
	if m.Type() != want {
		return nil, &MethodError{Name: name, Want: want, Got: m.Type()}
	}
	return &Method[F]{name: name, fn: m.Interface().(F)}, nil
}

// Map adapts a resolved method to another signature.
func Map[F, G any](m *Method[F], adapt func(F) G) *Method[G] {
	return &Method[G]{name: m.name, fn: adapt(m.fn)}
}

// Name returns the method name.
func (x *Method[F]) Name() string {
	return x.name
}

// Bind returns the callable method, if env is valid for the calling
// goroutine, see [Env.Check].
func (x *Method[F]) Bind(env *Env) (F, error) {
	if err := env.Check(); err != nil {
		var zero F
		return zero, err
	}
	env.calls.Add(1)
	return x.fn, nil
}
