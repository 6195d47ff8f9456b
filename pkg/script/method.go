package script

// Method is a reflected single-parameter callable.
type Method struct {
	kind   Kind
	action bool
	call   func(Value) bool
}

// NewMethod binds a callable taking one parameter of type T.
// A nil fn returns nil.
func NewMethod[T Scalar](fn func(T) bool) *Method {
	if fn == nil {
		return nil
	}
	return &Method{
		kind: KindOf[T](),
		call: func(v Value) bool {
			typed, ok := As[T](v)
			if !ok {
				return false
			}
			return fn(typed)
		},
	}
}

// NewAction binds a parameterless callable. The parameter passed to Invoke is
// ignored, so actions can be targeted by events of any kind.
func NewAction(fn func() bool) *Method {
	if fn == nil {
		return nil
	}
	return &Method{
		kind:   KindUnknown,
		action: true,
		call:   func(Value) bool { return fn() },
	}
}

// Kind returns the expected parameter kind (KindUnknown for actions).
func (m *Method) Kind() Kind { return m.kind }

// Invoke validates the parameter kind and calls through.
// Kind mismatches and panics report false.
func (m *Method) Invoke(param Value) (ok bool) {
	if !m.action && param.Kind() != m.kind {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return m.call(param)
}
