package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/epilys/pyo3"
	"github.com/epilys/pyo3/convert"
	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/luavm"
	"github.com/epilys/pyo3/object"
	"github.com/epilys/pyo3/pyvm"
)

// backend is a runtime that can also enumerate its live objects for
// display. Both bundled backends satisfy it.
type backend interface {
	pyo3.Runtime
	Each(fn func(addr pyo3.Addr, kind string, refcnt int64) bool)
	Len() int
}

func main() {
	var (
		backendName = flag.String("backend", "memory", "Runtime backend: memory or lua")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		luavm.SetLogger(logger)
	}

	vm, err := newBackend(*backendName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(vm, *backendName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(vm, *backendName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newBackend(name string) (backend, error) {
	switch name {
	case "memory":
		return pyvm.New(), nil
	case "lua":
		return luavm.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want memory or lua)", name)
	}
}

// run walks one value through the whole bridge: conversion in, typed
// mutation, enumeration, extraction back out.
func run(vm backend, name string) error {
	fmt.Printf("Backend: %s (%d live objects)\n", name, vm.Len())

	return gil.With(vm, func(py *gil.Token) error {
		source := map[int]int{7: 32, 8: 42}
		fmt.Printf("\nConverting %v\n", source)

		obj, err := convert.ToObject(py, source)
		if err != nil {
			return err
		}
		defer obj.Drop()
		dict, err := object.AsDict(py, obj)
		if err != nil {
			return err
		}
		fmt.Printf("Mapping created: len=%d refcount=%d\n", dict.Len(py), obj.RefCount())

		key, err := convert.ToObject(py, 9)
		if err != nil {
			return err
		}
		defer key.Drop()
		value, err := convert.ToObject(py, 123)
		if err != nil {
			return err
		}
		defer value.Drop()
		if err := dict.SetItem(py, key, value); err != nil {
			return err
		}
		fmt.Printf("After SetItem(9, 123): len=%d\n", dict.Len(py))

		fmt.Println("\nItems:")
		for _, item := range dict.Items(py) {
			k, err := convert.Extract[int](py, item.Key)
			if err != nil {
				return err
			}
			v, err := convert.Extract[int](py, item.Value)
			if err != nil {
				return err
			}
			fmt.Printf("  %d: %d\n", k, v)
			item.Key.Drop()
			item.Value.Drop()
		}

		if err := dict.DelItem(py, key); err != nil {
			return err
		}
		fmt.Printf("\nAfter DelItem(9): len=%d\n", dict.Len(py))

		if err := dict.DelItem(py, key); err != nil {
			fmt.Printf("DelItem(9) again: %v\n", err)
		}

		fmt.Printf("\nLive objects: %d\n", vm.Len())
		return nil
	})
}
