package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
	"github.com/wippyai/typeshape/smartptr"
)

type logLevel uint8

var _ = shape.UnitEnum[logLevel](
	shape.UnitVariant("debug", 0),
	shape.UnitVariant("info", 1),
	shape.UnitVariant("warn", 2),
	shape.UnitVariant("error", 3),
)

type listener struct {
	Addr string `shape:"addr"`
	TLS  bool   `shape:"tls"`
}

type credentials struct {
	User     string `shape:"user"`
	Password string `shape:"password,sensitive"`
}

type service struct {
	Name      string            `shape:"name"`
	Timeout   time.Duration     `shape:"timeout,default"`
	Level     logLevel          `shape:"level,default"`
	Listeners []listener        `shape:"listeners"`
	Labels    map[string]string `shape:"labels"`
	Auth      *credentials      `shape:"auth"`
}

type event struct {
	Kind   uint8 `shape:",discriminant"`
	Click  struct{ X, Y int }
	Key    struct{ Code string } `shape:",tuple"`
	Resize struct{ W, H uint16 } `shape:",tuple"`
	Quit   struct{}
}

type treeNode struct {
	Label string     `shape:"label"`
	Kids  []treeNode `shape:"kids"`
}

type counter struct {
	Name  string                      `shape:"name"`
	Hits  *smartptr.Mutex[uint64]     `shape:"hits"`
	Owner smartptr.Box[string]        `shape:"owner"`
	Peers smartptr.Shared[[]listener] `shape:"peers"`
}

// entry is one type the CLI can transcode and browse.
type entry struct {
	name   string
	doc    string
	shape  *shape.Shape
	sample func() reader.Value
}

var catalog = map[string]entry{}

func add[T any](name, doc string, sample func() T) {
	catalog[name] = entry{
		name:   name,
		doc:    doc,
		shape:  shape.Of[T](),
		sample: func() reader.Value { v := sample(); return reader.Of(&v) },
	}
}

func init() {
	add("service", "service configuration with listeners, labels and credentials", func() service {
		return service{
			Name:    "edge",
			Timeout: 3 * time.Second,
			Level:   1,
			Listeners: []listener{
				{Addr: ":80"},
				{Addr: ":443", TLS: true},
			},
			Labels: map[string]string{"zone": "eu-1", "tier": "front"},
			Auth:   &credentials{User: "ops", Password: "s3cret"},
		}
	})
	add("event", "input event enum with unit, tuple and struct variants", func() event {
		return event{Kind: 0, Click: struct{ X, Y int }{X: 10, Y: 20}}
	})
	add("tree", "recursive labelled tree", func() treeNode {
		return treeNode{Label: "root", Kids: []treeNode{
			{Label: "a"},
			{Label: "b", Kids: []treeNode{{Label: "b.1"}}},
		}}
	})
	add("counter", "smart pointers: mutex, box and shared", func() counter {
		return counter{
			Name:  "requests",
			Hits:  smartptr.NewMutex(uint64(42)),
			Owner: smartptr.NewBox("ops"),
			Peers: smartptr.NewShared([]listener{{Addr: "10.0.0.2:7000"}}),
		}
	})
}

func lookup(name string) (entry, error) {
	e, ok := catalog[name]
	if !ok {
		return entry{}, fmt.Errorf("unknown type %q (known: %s)", name, strings.Join(catalogNames(), ", "))
	}
	return e, nil
}

func catalogNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
