package flags

import (
	"sync"
)

// Color is an ARGB display color assigned to a keyword.
type Color uint32

// DefaultPalette is the set of colors handed out to new keywords.
var DefaultPalette = []Color{
	0xFFE53935, // red
	0xFF8E24AA, // purple
	0xFF3949AB, // indigo
	0xFF039BE5, // light blue
	0xFF00897B, // teal
	0xFF7CB342, // light green
	0xFFFDD835, // yellow
	0xFFFB8C00, // orange
	0xFF6D4C41, // brown
	0xFF546E7A, // blue grey
}

// Keyword is a user-defined IMAP keyword. Its code is its external code.
type Keyword struct {
	externalCode string

	lock    sync.RWMutex
	name    string
	visible bool
	color   Color
}

func newKeyword(externalCode string, color Color) *Keyword {
	return &Keyword{
		externalCode: externalCode,
		name:         externalCode,
		visible:      true,
		color:        color,
	}
}

func (k *Keyword) Code() string {
	return k.externalCode
}

func (k *Keyword) ExternalCode() string {
	return k.externalCode
}

func (k *Keyword) Key() Key {
	return Key{Code: k.externalCode, ExternalCode: k.externalCode}
}

func (k *Keyword) String() string {
	return k.externalCode
}

// Name returns the display name. It defaults to the external code.
func (k *Keyword) Name() string {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return k.name
}

func (k *Keyword) Visible() bool {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return k.visible
}

func (k *Keyword) Color() Color {
	k.lock.RLock()
	defer k.lock.RUnlock()

	return k.color
}

func (k *Keyword) setName(name string) {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.name = name
}

func (k *Keyword) setVisible(visible bool) {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.visible = visible
}

// palette hands out colors without replacement and starts over once every color was used.
type palette struct {
	colors    []Color
	available []Color
}

func newPalette(colors []Color) *palette {
	if len(colors) == 0 {
		colors = DefaultPalette
	}

	return &palette{colors: append([]Color(nil), colors...)}
}

func (p *palette) next() Color {
	if len(p.available) == 0 {
		p.available = append(p.available, p.colors...)
	}

	c := p.available[0]
	p.available = p.available[1:]

	return c
}

// MatchesImapKeywordProduction reports whether s is usable as an IMAP flag-keyword: one or more printable
// ASCII characters excluding `(){}%*]`, whitespace and the comma used as list separator in storage.
func MatchesImapKeywordProduction(s string) bool {
	if len(s) == 0 {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		if c <= ' ' || c >= 0x7f {
			return false
		}

		switch c {
		case '(', ')', '{', '}', '%', '*', ']', ',':
			return false
		}
	}

	return true
}
