// Package util cleans up strings handed over by the game host.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg strips the host's quoting from one argument.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(s))
}

// CleanArgs returns a cleaned copy of args; the input is left untouched.
func CleanArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = CleanArg(a)
	}
	return out
}
