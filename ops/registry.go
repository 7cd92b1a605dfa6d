// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

// Package ops is the operator registry: it maps a stable operator name plus a backend name
// to a concrete callable, so a dispatcher can route calls without knowing which device
// implementation executes.
//
// The table is populated at init time (see bindings.go) and read-only afterwards, so
// lookups need no locking. A lookup miss is a configuration error returned to the caller,
// clearly distinguishable from a computation failure; registering the same (name, backend)
// pair twice is a programming error and panics.
package ops

import (
	"fmt"
	"sort"

	"github.com/Svetlitski-FB/FBGEMM/types/xslices"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"k8s.io/klog/v2"
)

// Callable is one registered operator entry point.
//
// Differentiable operators return an Applied (output plus saved context); stateless kernel
// bindings return a *tensors.Tensor directly.
type Callable func(args ...any) (any, error)

type registryKey struct {
	name, backendName string
}

var registry = make(map[registryKey]Callable)

// Register an operator callable for a backend. Call it from a package init; registering a
// (name, backend) pair twice panics.
func Register(name, backendName string, callable Callable) {
	key := registryKey{name: name, backendName: backendName}
	if _, found := registry[key]; found {
		exceptions.Panicf("ops.Register: operator %q already registered for backend %q", name, backendName)
	}
	registry[key] = callable
	klog.V(2).Infof("registered operator %q for backend %q", name, backendName)
}

// Lookup returns the callable registered for (name, backendName). A miss is a
// configuration error, not a computation failure.
func Lookup(name, backendName string) (Callable, error) {
	callable, found := registry[registryKey{name: name, backendName: backendName}]
	if !found {
		return nil, errors.Errorf("operator %q is not available for backend %q (registered: %v)",
			name, backendName, List())
	}
	return callable, nil
}

// Invoke resolves (name, backendName) and calls the operator with args.
func Invoke(name, backendName string, args ...any) (any, error) {
	callable, err := Lookup(name, backendName)
	if err != nil {
		return nil, err
	}
	return callable(args...)
}

// List returns the registered entries as "name@backend", sorted.
func List() []string {
	entries := xslices.Map(maps.Keys(registry), func(key registryKey) string {
		return fmt.Sprintf("%s@%s", key.name, key.backendName)
	})
	sort.Strings(entries)
	return entries
}
