package pvm

import (
	"fmt"
	"sort"
	"sync"
)

// registry keeps every native program that artifacts can name. Programs
// register themselves from init, the same way database/sql drivers do.
var registry sync.Map // map[string]Program

// Register makes prog available under name. It panics if name is empty or
// already taken.
func Register(name string, prog Program) {
	if name == "" {
		panic("pvm: Register with empty name")
	}
	if prog == nil {
		panic("pvm: Register program is nil")
	}
	if _, loaded := registry.LoadOrStore(name, prog); loaded {
		panic(fmt.Sprintf("pvm: Register called twice for program %q", name))
	}
}

// Unregister removes the program registered under name. Code that names it
// can no longer be executed afterwards.
func Unregister(name string) {
	registry.Delete(name)
}

// Lookup returns the program registered under name.
func Lookup(name string) (Program, bool) {
	if v, ok := registry.Load(name); ok {
		return v.(Program), true
	}
	return nil, false
}

// Programs returns the sorted names of all registered programs.
func Programs() []string {
	var names []string
	registry.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}
