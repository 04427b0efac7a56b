// Package rag derives RED/AMBER/GREEN status signals for tasks and rolls them
// up into workstream gates and program gates.
package rag

import (
	"fmt"
	"strings"
)

// RAG is a status signal. The zero value is Absent. Values are ordered by
// severity so the worst of two signals is the larger one.
type RAG int

const (
	Absent RAG = iota
	Green
	Amber
	Red
)

func (r RAG) String() string {
	switch r {
	case Green:
		return "GREEN"
	case Amber:
		return "AMBER"
	case Red:
		return "RED"
	}
	return ""
}

// MarshalText encodes the signal as GREEN, AMBER or RED. Absent has no wire
// form; callers omit it instead.
func (r RAG) MarshalText() ([]byte, error) {
	if r < Green || r > Red {
		return nil, fmt.Errorf("rag: cannot encode %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts GREEN, AMBER or RED in any case.
func (r *RAG) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Parse reads a wire value.
func Parse(s string) (RAG, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GREEN":
		return Green, nil
	case "AMBER":
		return Amber, nil
	case "RED":
		return Red, nil
	}
	return Absent, fmt.Errorf("rag: unknown value %q", s)
}

// Worst returns the most severe of the given signals, or Absent for none.
func Worst(rs ...RAG) RAG {
	w := Absent
	for _, r := range rs {
		if r > w {
			w = r
		}
	}
	return w
}
