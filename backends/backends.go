// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface a device kernel-set needs to implement to be used
// by the sparse-operator layer.
//
// A backend is a family of pure kernels for one compute device: each kernel takes plain
// buffers and scalars and produces a plain buffer. Backends carry no gradient awareness;
// the forward/backward pairing lives in the fbgemm package, which calls into these kernels.
//
// To simplify error handling, registry and configuration errors panic with a stack trace in
// case of programming errors (see package github.com/gomlx/exceptions); kernel calls return
// regular errors that the caller decides how to propagate.
package backends

import (
	"os"
	"sort"
	"strings"

	"github.com/gomlx/exceptions"
	"golang.org/x/exp/maps"
)

// DeviceNum represents which device holds a buffer, or should execute a kernel.
// It's up to the backend to interpret it, but it should be between 0 and Backend.NumDevices.
type DeviceNum int

// Backend is the API that needs to be implemented by a device kernel-set.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "go" for the portable Go kernels.
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// NumDevices return the number of devices available for this Backend.
	NumDevices() DeviceNum

	// DataInterface is the sub-interface that defines the API to transfer Buffer to/from devices.
	DataInterface

	// SparseOps is the sub-interface with one pure function per sparse kernel.
	SparseOps

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a
// configuration string that is passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List the names of the registered backends.
func List() []string {
	names := maps.Keys(registeredConstructors)
	sort.Strings(names)
	return names
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "go") and
// "<backend_configuration>" is backend specific.
const ConfigEnvVar = "FBGEMM_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment FBGEMM_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It panics if no backend was registered.
func New() Backend {
	config, found := os.LookupEnv(ConfigEnvVar)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig takes a configuration string formatted as "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "go") and
// "<backend_configuration>" is backend specific.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends -- maybe import the default Go one with import _ "github.com/Svetlitski-FB/FBGEMM/backends/simplego"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given", backendName, config)
	}
	return constructor(backendConfig)
}
