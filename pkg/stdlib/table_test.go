package stdlib

import (
	"sort"
	"strings"
	"testing"
)

func TestFileSpecifier(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"util", "./util.js"},
		{"a.b", "./a/b.js"},
		{".sibling", "./sibling.js"},
		{"..parent", "../parent.js"},
		{"...up.two", "../../up/two.js"},
		{".", "./index.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileSpecifier(tt.name); got != tt.want {
				t.Errorf("FileSpecifier(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	table := DefaultTable()

	if m := table.Resolve("math"); m.Object != "Math" || m.Member("pi") != "Math.PI" {
		t.Errorf("math resolved to %+v", m)
	}
	if m := table.Resolve("math"); m.Member("floor") != "Math.floor" {
		t.Errorf("unlisted member should go through the object, got %q", m.Member("floor"))
	}
	if m := table.Resolve("os.path"); m.Specifier != "node:path" {
		t.Errorf("os.path resolved to %+v", m)
	}
	if m := table.Resolve("helpers.io"); m.Specifier != "./helpers/io.js" {
		t.Errorf("unknown module should be a file, got %+v", m)
	}
}

func TestWithOverrides(t *testing.T) {
	base := DefaultTable()
	custom := base.With(map[string]Module{
		"math": {Specifier: "mathjs"},
		"dom":  {Object: "document"},
	})

	if m, _ := custom.Lookup("math"); m.Specifier != "mathjs" {
		t.Errorf("override lost: %+v", m)
	}
	if m, _ := base.Lookup("math"); m.Object != "Math" {
		t.Errorf("With must not modify the receiver: %+v", m)
	}
	if m := custom.Resolve("dom"); m.Member("title") != "document.title" {
		t.Errorf("dom.title = %q", m.Member("title"))
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if _, ok := table.Lookup("math"); ok {
		t.Error("nil table should have no entries")
	}
}

func TestBuiltins(t *testing.T) {
	names := BuiltinNames()
	if !sort.StringsAreSorted(names) {
		t.Error("builtin names should be sorted")
	}
	for _, name := range names {
		b, _ := LookupBuiltin(name)
		if (b.JS == "") == (b.Helper == "") {
			t.Errorf("%s: exactly one of JS and Helper must be set: %+v", name, b)
		}
	}

	if b, _ := LookupBuiltin("ValueError"); !b.IsConstructor() {
		t.Error("exceptions are constructed with new")
	}
	if b, _ := LookupBuiltin("len"); b.IsConstructor() {
		t.Error("len is a plain function")
	}
}

func TestMethodTables(t *testing.T) {
	for _, recv := range Receivers() {
		names, impls := Methods(recv)
		if !sort.StringsAreSorted(names) {
			t.Errorf("%s methods should be sorted", recv)
		}
		for _, name := range names {
			if !IsPythonMethod(name) {
				t.Errorf("%s.%s missing from the dispatcher index", recv, name)
			}
			if !strings.Contains(impls[name], "=>") {
				t.Errorf("%s.%s should be an arrow function: %s", recv, name, impls[name])
			}
		}
	}
	if IsPythonMethod("toUpperCase") {
		t.Error("JS-native methods are not dispatched")
	}
}
