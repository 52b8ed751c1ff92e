// Package mocks provides hand-written test doubles for the store and service
// interfaces. Each mock exposes Fn fields for per-test behavior and falls back
// to a simple in-memory implementation or fixed default values.
package mocks
