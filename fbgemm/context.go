// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package fbgemm

import (
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/gomlx/exceptions"
)

// Context is the saved state bridging one forward invocation to its paired backward.
//
// It is write-once-then-read-once: the forward pass populates it (retained tensors plus
// scalar/shape metadata), the single matching backward consumes it, and then it is
// discarded. The set and order of retained tensors and metadata keys is fixed per operator;
// reading a key that was never written, reading with the wrong type, or consuming the
// context twice is a programming error and panics with a stack trace
// (github.com/gomlx/exceptions).
//
// Contexts are never shared between concurrent invocations, so they need no locking.
type Context struct {
	saved    []*tensors.Tensor
	metadata map[string]any
	consumed bool
}

// NewContext returns an empty Context ready to be populated by a forward pass.
func NewContext() *Context {
	return &Context{metadata: make(map[string]any)}
}

// SaveForBackward retains tensors for the backward pass, in the order given.
// The tensors are shared with the caller and stay alive at least until the context is
// discarded.
func (ctx *Context) SaveForBackward(saved ...*tensors.Tensor) {
	if ctx.consumed {
		exceptions.Panicf("Context.SaveForBackward: context was already consumed by a backward pass")
	}
	ctx.saved = append(ctx.saved, saved...)
}

// SavedTensors returns the tensors retained by SaveForBackward, checking that the count
// matches what the backward pass expects.
func (ctx *Context) SavedTensors(want int) []*tensors.Tensor {
	if len(ctx.saved) != want {
		exceptions.Panicf("Context.SavedTensors: %d tensors saved, backward expected %d", len(ctx.saved), want)
	}
	return ctx.saved
}

// Consume marks the context as consumed. Every backward implementation calls it first;
// a second call panics, so a context can never feed two backward passes.
func (ctx *Context) Consume() {
	if ctx.consumed {
		exceptions.Panicf("Context.Consume: context was already consumed, a backward pass runs at most once per forward")
	}
	ctx.consumed = true
}

func (ctx *Context) set(key string, value any) {
	if ctx.consumed {
		exceptions.Panicf("Context.set(%q): context was already consumed by a backward pass", key)
	}
	if _, found := ctx.metadata[key]; found {
		exceptions.Panicf("Context.set(%q): key already written, metadata is write-once", key)
	}
	ctx.metadata[key] = value
}

func get[T any](ctx *Context, key string) T {
	value, found := ctx.metadata[key]
	if !found {
		exceptions.Panicf("Context.get(%q): key never written by the forward pass", key)
	}
	typed, ok := value.(T)
	if !ok {
		exceptions.Panicf("Context.get(%q): stored %T, read as %T", key, value, typed)
	}
	return typed
}

// SetInt stores an integer metadata value under key. Keys are write-once.
func (ctx *Context) SetInt(key string, value int) { ctx.set(key, value) }

// GetInt reads back an integer stored with SetInt. Missing key or wrong type panics.
func (ctx *Context) GetInt(key string) int { return get[int](ctx, key) }

// SetBool stores a boolean metadata value under key. Keys are write-once.
func (ctx *Context) SetBool(key string, value bool) { ctx.set(key, value) }

// GetBool reads back a boolean stored with SetBool. Missing key or wrong type panics.
func (ctx *Context) GetBool(key string) bool { return get[bool](ctx, key) }

// SetDims stores a shape vector (a copy) under key. Keys are write-once.
func (ctx *Context) SetDims(key string, dims []int) {
	ctx.set(key, append([]int(nil), dims...))
}

// GetDims reads back a shape vector stored with SetDims. Missing key or wrong type panics.
func (ctx *Context) GetDims(key string) []int { return get[[]int](ctx, key) }
