package shape

import (
	"reflect"
	"strconv"
	"strings"
)

type tagInfo struct {
	name         string
	attrs        []Attribute
	disc         int64
	flags        FieldFlags
	skip         bool
	discriminant bool
	tuple        bool
	hasDisc      bool
}

// parseTag reads `shape:"name,opt,key=value"` and the `doc` tag.
func parseTag(sf reflect.StructField) (tagInfo, error) {
	info := tagInfo{name: sf.Name}

	tag, ok := sf.Tag.Lookup("shape")
	if !ok {
		return info, nil
	}
	if tag == "-" {
		info.skip = true
		return info, nil
	}

	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		info.name = parts[0]
	}

	for _, opt := range parts[1:] {
		key, value, hasValue := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "":
		case "sensitive":
			info.flags |= FlagSensitive
		case "default":
			info.flags |= FlagDefault
		case "discriminant":
			info.discriminant = true
		case "tuple":
			info.tuple = true
		case "disc":
			if !hasValue {
				return info, strconv.ErrSyntax
			}
			d, err := strconv.ParseInt(value, 0, 64)
			if err != nil {
				return info, err
			}
			info.disc = d
			info.hasDisc = true
		default:
			info.attrs = append(info.attrs, Attribute{Key: key, Value: value})
		}
	}

	return info, nil
}
