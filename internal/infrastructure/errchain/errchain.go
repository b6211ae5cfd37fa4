// Package errchain renders wrapped errors as an "Error: / Caused by:" chain.
//
// Every level of an error built with fmt.Errorf("...: %w") or
// github.com/pkg/errors carries the messages of all its causes. The chain
// printed here shows each level once, with only the text that level added.
package errchain

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Messages returns the message of each distinct level of err, outermost
// first. Levels that add no text of their own (stack wrappers) are skipped.
func Messages(err error) []string {
	var levels []error
	for e := err; e != nil; e = cause(e) {
		levels = append(levels, e)
	}

	msgs := make([]string, 0, len(levels))
	for i, e := range levels {
		msg := e.Error()
		if i+1 < len(levels) {
			next := levels[i+1].Error()
			if msg == next {
				continue
			}
			msg = strings.TrimSuffix(msg, ": "+next)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// cause returns the next level below e. For errors joining several
// causes (fmt.Errorf with more than one %w) it follows the last cause whose
// message e repeats at its end; sentinels used as prefixes are not followed.
func cause(e error) error {
	if next := errors.Unwrap(e); next != nil {
		return next
	}
	multi, ok := e.(interface{ Unwrap() []error })
	if !ok {
		return nil
	}
	msg, causes := e.Error(), multi.Unwrap()
	for i := len(causes) - 1; i >= 0; i-- {
		if c := causes[i]; c != nil && strings.HasSuffix(msg, ": "+c.Error()) {
			return c
		}
	}
	return nil
}

// Format returns the multi-line chain for err, or "" for a nil error.
//
//	Error: failed to authenticate
//	Caused by: aha: authentication failed (wrong username/password), further logins blocked for 8s
func Format(err error) string {
	var b strings.Builder
	Fprint(&b, err)
	return b.String()
}

// Fprint writes the chain for err to w.
func Fprint(w io.Writer, err error) {
	for i, msg := range Messages(err) {
		if i == 0 {
			fmt.Fprintf(w, "Error: %s\n", msg)
			continue
		}
		fmt.Fprintf(w, "Caused by: %s\n", msg)
	}
}
