// Package types defines the value model, storage interfaces, binding options,
// and standard errors shared by every shelf package.
//
// A Value is the caller-visible typed value; a Raw is the text a backend
// actually holds. The two are related through the codec in internal/codec.
package types
