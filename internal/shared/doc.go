// Package shared holds helpers used across packages that belong to no single
// layer. Its testutil subpackage provides a capturing slog handler and a
// small measurement fixture used by the package tests.
package shared
