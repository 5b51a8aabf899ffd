package shape

import "reflect"

const structural = CapDebug | CapClone | CapEqual | CapCompare | CapHash

func capabilities(t reflect.Type) Capability {
	return capsOf(t, make(map[reflect.Type]struct{}))
}

// capsOf computes the capability set of t. Types already being visited are
// assumed to support everything, so recursive types get the greatest set
// consistent with their non-recursive parts.
func capsOf(t reflect.Type, visiting map[reflect.Type]struct{}) Capability {
	if s, ok := registered.Load(t); ok {
		return s.(*Shape).Ops.Capabilities()
	}
	if _, ok := visiting[t]; ok {
		return allCapabilities
	}
	visiting[t] = struct{}{}
	defer delete(visiting, t)

	c := CapDefault | CapDrop
	f := classify(t)
	switch f {
	case formScalar:
		c |= CapDisplay | CapDebug | CapClone | CapEqual | CapHash | CapParse
		if k := t.Kind(); k != reflect.Complex64 && k != reflect.Complex128 {
			c |= CapCompare
		}
	case formText:
		c |= CapDisplay | CapDebug | CapClone | CapHash | CapParse
		if t.Comparable() {
			c |= CapEqual
		}
	case formOpaque:
		c |= CapDebug
		if !hasUsableZero(t) {
			c &^= CapDefault
		}
	case formWeak:
		c |= CapDebug | CapClone | CapEqual
	case formStruct:
		c |= structural & fieldCaps(t, visiting)
	case formEnum:
		c &^= CapDefault
		c |= enumCaps(t, visiting)
	case formList, formArray, formOption:
		c |= structural & capsOf(t.Elem(), visiting)
	case formMap:
		kc, vc := capsOf(t.Key(), visiting), capsOf(t.Elem(), visiting)
		c |= (CapDebug | CapClone) & kc & vc
		c |= CapEqual & vc
	case formSmartPointer:
		c |= CapDebug
		def := providerDef(t)
		if def != nil && def.PointeeType != nil && def.Flags&(FlagWeak|FlagLock) == 0 {
			c |= (CapDisplay | structural&^CapClone) & capsOf(def.PointeeType, visiting)
		}
	}

	if f != formOption && f != formOpaque {
		c |= hookCaps(t)
	}
	return c
}

// hasUsableZero reports whether the zero value of an opaque type can stand
// in as its default. Nil funcs, channels and raw pointers cannot.
func hasUsableZero(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	}
	return true
}

func fieldCaps(t reflect.Type, visiting map[reflect.Type]struct{}) Capability {
	c := allCapabilities
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, err := parseTag(sf); err != nil || tag.skip {
			continue
		}
		c &= capsOf(sf.Type, visiting)
	}
	return c
}

func enumCaps(t reflect.Type, visiting map[reflect.Type]struct{}) Capability {
	def, err := enumDef(t, nil)
	if err != nil {
		return 0
	}

	c := structural
	for i := discriminantField(t) + 1; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, err := parseTag(sf); err != nil || tag.skip {
			continue
		}
		c &= capsOf(sf.Type, visiting)
	}
	return c | unitEnumCaps(def)&^structural
}

// unitEnumCaps returns the capabilities that depend only on the variant
// table.
func unitEnumCaps(def *EnumDef) Capability {
	c := CapDrop | CapDebug | CapClone | CapEqual | CapCompare | CapHash
	if def.Variants[0].Kind == VariantUnit {
		c |= CapDefault
	}
	if allUnit(def) {
		c |= CapDisplay | CapParse
	}
	return c
}

func allUnit(def *EnumDef) bool {
	for i := range def.Variants {
		if def.Variants[i].Kind != VariantUnit {
			return false
		}
	}
	return true
}

func hookCaps(t reflect.Type) Capability {
	pt := reflect.PointerTo(t)
	var c Capability
	if pt.Implements(stringerType) || pt.Implements(textMarshalerType) {
		c |= CapDisplay
	}
	if pt.Implements(textUnmarshalerType) {
		c |= CapParse
	}
	if pt.Implements(defaulterType) {
		c |= CapDefault
	}
	if pt.Implements(clonerType) {
		c |= CapClone
	}
	if pt.Implements(invariantType) {
		c |= CapInvariants
	}
	if _, ok := methodOf(t, "Equal", reflect.Bool); ok {
		c |= CapEqual
	}
	if _, ok := methodOf(t, "Compare", reflect.Int); ok {
		c |= CapCompare
	}
	return c
}

// methodOf finds func (T) name(T) out on t or *t.
func methodOf(t reflect.Type, name string, out reflect.Kind) (reflect.Method, bool) {
	m, ok := reflect.PointerTo(t).MethodByName(name)
	if !ok {
		return m, false
	}
	mt := m.Type
	if mt.NumIn() != 2 || mt.In(1) != t || mt.NumOut() != 1 || mt.Out(0).Kind() != out {
		return m, false
	}
	return m, true
}

// needsDrop reports whether dropping a value of t has to visit its parts.
func needsDrop(t reflect.Type, visiting map[reflect.Type]struct{}) bool {
	if isRegistered(t) {
		return true
	}
	if _, ok := visiting[t]; ok {
		return false
	}
	visiting[t] = struct{}{}
	defer delete(visiting, t)

	f := classify(t)
	if f != formOption && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(dropperType) {
		return true
	}

	switch f {
	case formStruct, formEnum:
		for i := range t.NumField() {
			sf := t.Field(i)
			if sf.IsExported() && needsDrop(sf.Type, visiting) {
				return true
			}
		}
	case formList, formArray, formOption:
		return needsDrop(t.Elem(), visiting)
	case formMap:
		return needsDrop(t.Key(), visiting) || needsDrop(t.Elem(), visiting)
	}
	return false
}
