// Package errutil has small helpers shared by the audit-writing services.
package errutil

import "errors"

// Chain flattens a wrapped error into one line per unwrap level, outermost
// first. Audit entries record it in their stack field.
func Chain(err error) []string {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	return chain
}
