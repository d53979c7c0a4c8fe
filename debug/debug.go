// Package debug carries the build-time debug flag and assertion helpers used by the
// solver hot paths.
package debug

import "fmt"

// Assert panics with message if condition is false. It is meant to guard internal
// invariants that indicate a programming error, not user input.
func Assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf(format, args...))
	}
}
