package shape

type shapePair struct{ a, b *Shape }

// Equal compares two shapes by value: same Go type, same layout and
// structurally equal definitions. Shapes obtained independently for one
// type compare equal; shapes for distinct types never do, even when their
// layouts coincide.
func Equal(a, b *Shape) bool {
	return equalShapes(a, b, make(map[shapePair]struct{}))
}

func equalShapes(a, b *Shape, seen map[shapePair]struct{}) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Type != b.Type || a.Layout != b.Layout {
		return false
	}
	if a.Def == nil || b.Def == nil {
		return a.Def == nil && b.Def == nil
	}

	key := shapePair{a, b}
	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}

	return equalDefs(a.Def, b.Def, seen)
}

func equalDefs(a, b Definition, seen map[shapePair]struct{}) bool {
	if a.Kind() != b.Kind() {
		return false
	}

	switch da := a.(type) {
	case *ScalarDef:
		return da.Affinity == b.(*ScalarDef).Affinity
	case *StructDef:
		return equalFields(da.Fields, b.(*StructDef).Fields, seen)
	case *EnumDef:
		db := b.(*EnumDef)
		if da.Repr != db.Repr || da.DiscOffset != db.DiscOffset || len(da.Variants) != len(db.Variants) {
			return false
		}
		for i := range da.Variants {
			va, vb := &da.Variants[i], &db.Variants[i]
			if va.Name != vb.Name || va.Discriminant != vb.Discriminant || va.Kind != vb.Kind || va.Offset != vb.Offset {
				return false
			}
			if !equalFields(va.Fields, vb.Fields, seen) {
				return false
			}
		}
		return true
	case *ListDef:
		return equalFuncs(da.Elem, b.(*ListDef).Elem, seen)
	case *ArrayDef:
		db := b.(*ArrayDef)
		return da.Len == db.Len && da.Stride == db.Stride && equalFuncs(da.Elem, db.Elem, seen)
	case *MapDef:
		db := b.(*MapDef)
		return equalFuncs(da.Key, db.Key, seen) && equalFuncs(da.Value, db.Value, seen)
	case *OptionDef:
		return equalFuncs(da.Inner, b.(*OptionDef).Inner, seen)
	case *SmartPointerDef:
		db := b.(*SmartPointerDef)
		return da.Flags == db.Flags && da.Known == db.Known && equalFuncs(da.Pointee, db.Pointee, seen)
	default:
		return false
	}
}

func equalFields(a, b []Field, seen map[shapePair]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		fa, fb := &a[i], &b[i]
		if fa.Name != fb.Name || fa.Offset != fb.Offset || fa.Flags != fb.Flags {
			return false
		}
		if !equalFuncs(fa.Shape, fb.Shape, seen) {
			return false
		}
	}
	return true
}

func equalFuncs(a, b Func, seen map[shapePair]struct{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return equalShapes(a(), b(), seen)
}
