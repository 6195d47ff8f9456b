package script

// Property is a typed binding to a piece of script state.
//
// A property is bound to exactly one kind and, through the closures it was
// built from, to exactly one owner. It is backed either by a getter/setter
// pair or by a direct field reference.
//
// Property does not lock: the owning Script serialises access.
type Property struct {
	kind  Kind
	flags Flags
	get   func() Value
	set   func(Value) bool // nil when read-only
}

// AccessorProperty binds a property to a getter and an optional setter.
// A nil setter makes the property read-only. A nil getter returns nil.
//
// Example:
//
//	ctx.AddProperty("power", script.AccessorProperty(l.Power, l.SetPower, script.Visible|script.Store))
func AccessorProperty[T Scalar](get func() T, set func(T), flags Flags) *Property {
	if get == nil {
		return nil
	}
	p := &Property{
		kind:  KindOf[T](),
		flags: flags,
		get:   func() Value { return ValueOf(get()) },
	}
	if set != nil {
		p.set = func(v Value) bool {
			typed, ok := As[T](v)
			if !ok {
				return false
			}
			set(typed)
			return true
		}
	}
	return p
}

// FieldProperty binds a property directly to a field. A nil field returns nil.
//
// Example:
//
//	ctx.AddProperty("text", script.FieldProperty(&l.text, script.Visible))
func FieldProperty[T Scalar](field *T, flags Flags) *Property {
	if field == nil {
		return nil
	}
	return &Property{
		kind:  KindOf[T](),
		flags: flags,
		get:   func() Value { return ValueOf(*field) },
		set: func(v Value) bool {
			typed, ok := As[T](v)
			if !ok {
				return false
			}
			*field = typed
			return true
		},
	}
}

// Kind returns the bound value kind.
func (p *Property) Kind() Kind { return p.kind }

// Flags returns the property's flag set.
func (p *Property) Flags() Flags { return p.flags }

// HasFlag reports whether the property carries any of the given flags.
func (p *Property) HasFlag(f Flags) bool { return p.flags.Has(f) }

// ReadOnly reports whether the property has no setter.
func (p *Property) ReadOnly() bool { return p.set == nil }

// Get returns the current value. A panicking getter yields the unknown Value.
func (p *Property) Get() (v Value) {
	defer func() {
		if r := recover(); r != nil {
			v = Value{}
		}
	}()
	return p.get()
}

// Set stores v when its kind matches the property kind and a setter exists.
// It reports whether the value was applied; a panicking setter reports false.
func (p *Property) Set(v Value) (ok bool) {
	if p.set == nil || v.Kind() != p.kind {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return p.set(v)
}
