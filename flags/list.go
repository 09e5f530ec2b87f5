package flags

import (
	"github.com/bradenaw/juniper/xslices"
)

// List is an insertion-ordered set of flags. Duplicates (by Key) are not allowed.
// Modifying methods return a new list and leave the receiver untouched.
type List struct {
	flags []Flag
}

// NewList creates a list containing the given flags, dropping duplicates.
func NewList(flags ...Flag) List {
	return List{}.Add(flags...)
}

// Len returns the number of flags in the list.
func (l List) Len() int {
	return len(l.flags)
}

// Slice returns a copy of the flags in insertion order.
func (l List) Slice() []Flag {
	return append([]Flag(nil), l.flags...)
}

// Contains returns true if and only if the flag is in the list.
func (l List) Contains(flag Flag) bool {
	return l.index(flag) >= 0
}

// ContainsAny returns true if and only if any of the flags are in the list.
func (l List) ContainsAny(flags ...Flag) bool {
	return xslices.IndexFunc(flags, func(f Flag) bool {
		return l.Contains(f)
	}) >= 0
}

// Equals returns true if and only if both lists contain the same flags, regardless of order.
func (l List) Equals(other List) bool {
	if l.Len() != other.Len() {
		return false
	}

	for _, f := range l.flags {
		if !other.Contains(f) {
			return false
		}
	}

	return true
}

// Add returns a list with the given flags appended. Flags already present keep their position.
func (l List) Add(flags ...Flag) List {
	res := List{flags: l.Slice()}

	for _, f := range flags {
		if f == nil || res.Contains(f) {
			continue
		}

		res.flags = append(res.flags, f)
	}

	return res
}

// Remove returns a list without the given flags.
func (l List) Remove(flags ...Flag) List {
	return List{flags: xslices.Filter(l.Slice(), func(f Flag) bool {
		return xslices.IndexFunc(flags, func(other Flag) bool { return Equal(f, other) }) < 0
	})}
}

// Set ensures the list either contains or does not contain the given flag.
func (l List) Set(flag Flag, on bool) List {
	if on {
		return l.Add(flag)
	}

	return l.Remove(flag)
}

// Codes returns the storage codes of the flags, in order.
func (l List) Codes() []string {
	return xslices.Map(l.flags, func(f Flag) string {
		return f.Code()
	})
}

// Serialize returns the comma separated storage form of the list.
func (l List) Serialize() string {
	return SerializeCodes(l.flags...)
}

func (l List) index(flag Flag) int {
	return xslices.IndexFunc(l.flags, func(f Flag) bool {
		return Equal(f, flag)
	})
}
