// Package shared holds utilities used across packages that don't belong to
// any one architectural layer. Currently that is the testutil subpackage,
// which provides slog capture helpers for asserting on structured log output.
package shared
