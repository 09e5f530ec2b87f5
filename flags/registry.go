package flags

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

var (
	ErrInvalidKeyword   = errors.New("invalid keyword")
	ErrReservedKeyword  = errors.New("keyword collides with a system flag")
	ErrUnknownKeyword   = errors.New("unknown keyword")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// Registry resolves flag codes to flags. System flags are fixed; keywords are created the first time an
// unknown code is seen and live as long as the registry.
type Registry struct {
	lock     sync.RWMutex
	keywords map[string]*Keyword
	catalog  []*Keyword
	palette  *palette
}

// NewRegistry returns an empty keyword registry. When no colors are given DefaultPalette is used.
func NewRegistry(colors ...Color) *Registry {
	return &Registry{
		keywords: make(map[string]*Keyword),
		palette:  newPalette(colors),
	}
}

// ValueOf returns the system flag with the given code or, for any other code, the keyword with that
// external code, creating it if needed.
func (r *Registry) ValueOf(code string) (Flag, error) {
	if f, ok := systemFlagByCode(code); ok {
		return f, nil
	}

	return r.getOrCreateKeyword(code)
}

// GetByCode is the same as ValueOf.
func (r *Registry) GetByCode(code string) (Flag, error) {
	return r.ValueOf(code)
}

// GetByExternalCode looks a flag up by its wire representation. System flags match case-insensitively.
func (r *Registry) GetByExternalCode(externalCode string) (Flag, error) {
	if f, ok := systemFlagByExternalCode(externalCode); ok {
		return f, nil
	}

	return r.getOrCreateKeyword(externalCode)
}

// CreateKeyword registers a new keyword. It fails if the keyword already exists.
func (r *Registry) CreateKeyword(externalCode string) (*Keyword, error) {
	if err := validateKeyword(externalCode); err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.keywords[externalCode]; ok {
		return nil, fmt.Errorf("keyword %q already exists: %w", externalCode, ErrInvalidKeyword)
	}

	return r.addKeyword(externalCode), nil
}

// Keyword returns the registered keyword with the given external code.
func (r *Registry) Keyword(externalCode string) (*Keyword, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	k, ok := r.keywords[externalCode]

	return k, ok
}

// Keywords returns the keyword catalog in display order.
func (r *Registry) Keywords() []*Keyword {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return append([]*Keyword(nil), r.catalog...)
}

// VisibleKeywords returns the visible keywords in display order.
func (r *Registry) VisibleKeywords() []*Keyword {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var visible []*Keyword

	for _, k := range r.catalog {
		if k.Visible() {
			visible = append(visible, k)
		}
	}

	return visible
}

func (r *Registry) SetKeywordVisible(k *Keyword, visible bool) error {
	if _, err := r.indexOf(k); err != nil {
		return err
	}

	k.setVisible(visible)

	return nil
}

func (r *Registry) SetKeywordName(k *Keyword, name string) error {
	if _, err := r.indexOf(k); err != nil {
		return err
	}

	k.setName(name)

	return nil
}

// DeleteKeyword removes the keyword from the lookup map and the catalog.
func (r *Registry) DeleteKeyword(k *Keyword) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	idx := slices.Index(r.catalog, k)
	if idx < 0 {
		return fmt.Errorf("%v: %w", k, ErrUnknownKeyword)
	}

	r.catalog = slices.Delete(r.catalog, idx, idx+1)
	delete(r.keywords, k.ExternalCode())

	return nil
}

// MoveKeyword moves the keyword to the given position of the catalog.
func (r *Registry) MoveKeyword(k *Keyword, newPosition int) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	idx := slices.Index(r.catalog, k)
	if idx < 0 {
		return fmt.Errorf("%v: %w", k, ErrUnknownKeyword)
	}

	if newPosition < 0 || newPosition >= len(r.catalog) {
		return fmt.Errorf("position %v of %v: %w", newPosition, len(r.catalog), ErrIndexOutOfBounds)
	}

	r.catalog = slices.Delete(r.catalog, idx, idx+1)
	r.catalog = slices.Insert(r.catalog, newPosition, k)

	return nil
}

// ParseCodeList splits a comma separated list of flag codes. Unparsable tokens are dropped; order of first
// occurrence is kept and duplicates collapse.
func (r *Registry) ParseCodeList(codeList string) List {
	var list List

	for _, code := range strings.Split(codeList, ",") {
		code = strings.TrimSpace(code)
		if len(code) == 0 || code == BadFlagCode {
			continue
		}

		f, err := r.ValueOf(code)
		if err != nil {
			logrus.WithError(err).WithField("flag", code).Warn("Unable to parse flag")
			continue
		}

		list = list.Add(f)
	}

	return list
}

// SerializeCodes joins the codes of the given flags with commas.
func SerializeCodes(flags ...Flag) string {
	codes := make([]string, 0, len(flags))

	for _, f := range flags {
		codes = append(codes, f.Code())
	}

	return strings.Join(codes, ",")
}

func (r *Registry) getOrCreateKeyword(externalCode string) (*Keyword, error) {
	if k, ok := r.Keyword(externalCode); ok {
		return k, nil
	}

	if err := validateKeyword(externalCode); err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	// Someone else may have created it in the meantime.
	if k, ok := r.keywords[externalCode]; ok {
		return k, nil
	}

	return r.addKeyword(externalCode), nil
}

func (r *Registry) addKeyword(externalCode string) *Keyword {
	k := newKeyword(externalCode, r.palette.next())

	r.keywords[externalCode] = k
	r.catalog = append(r.catalog, k)

	return k
}

func (r *Registry) indexOf(k *Keyword) (int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	idx := slices.Index(r.catalog, k)
	if idx < 0 {
		return 0, fmt.Errorf("%v: %w", k, ErrUnknownKeyword)
	}

	return idx, nil
}

func validateKeyword(externalCode string) error {
	if !MatchesImapKeywordProduction(externalCode) {
		return fmt.Errorf("%q: %w", externalCode, ErrInvalidKeyword)
	}

	if _, ok := systemFlagByExternalCode(externalCode); ok {
		return fmt.Errorf("%q: %w", externalCode, ErrReservedKeyword)
	}

	// The keyword code is stored next to system codes in the same column.
	if _, ok := systemFlagByCode(externalCode); ok || externalCode == BadFlagCode {
		return fmt.Errorf("%q: %w", externalCode, ErrReservedKeyword)
	}

	return nil
}
