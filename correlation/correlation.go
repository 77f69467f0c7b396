// Package correlation propagates request correlation ids through
// context.Context values, so every log record emitted during an operation
// can be tied back to it. Ids travel with the context across goroutines and
// API boundaries; nested bindings shadow outer ones for their own extent
// only.
package correlation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

type ctxKey struct{}

// NewID returns a fresh correlation id: the current Unix time in
// milliseconds rendered base 36, a dash, and eight random hex characters.
// Ids sort roughly by creation time and are cheap enough to mint per
// request.
func NewID() string {
	var b [4]byte
	rand.Read(b[:])
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + hex.EncodeToString(b[:])
}

// With returns a child of ctx carrying the correlation id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext reports the correlation id bound to ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Run invokes fn with id bound to a child of ctx for the duration of the
// call, returning fn's error unchanged. Nested Run calls shadow the binding
// for their own extent; ctx itself is never modified, so concurrent
// operations with distinct contexts never observe each other's ids.
func Run(ctx context.Context, id string, fn func(context.Context) error) error {
	return fn(With(ctx, id))
}
