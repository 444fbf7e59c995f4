// Package catalog resolves entity identifiers (exchange codes or display
// names) to tracked companies. A static reference list is merged with
// user-added custom entries; the custom overlay may shadow or extend the
// static set and is the only part that can be modified at runtime.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entity is one tracked company.
type Entity struct {
	Name      string  `json:"name"`
	NSECode   string  `json:"nse_code"`
	BSECode   string  `json:"bse_code"`
	Sector    string  `json:"sector"`
	MarketCap float64 `json:"market_cap"`
	Custom    bool    `json:"-"`
}

// Validator checks that an exchange code refers to a real listed company,
// typically by probing the document source for its company page.
type Validator interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// Stats summarizes catalog composition.
type Stats struct {
	Total   int `json:"total"`
	Static  int `json:"static"`
	Custom  int `json:"custom"`
	Sectors int `json:"sectors"`
}

var (
	ErrNameRequired = errors.New("entity name is required")
	ErrCodeRequired = errors.New("at least one exchange code is required")
	ErrCodeExists   = errors.New("exchange code already exists")
	ErrNotValidated = errors.New("entity not found at document source")
	ErrNotCustom    = errors.New("not a custom entity")
)

var titleCaser = cases.Title(language.English)

// Catalog indexes entities under every exchange code and the display name.
// Lookups are case-insensitive. The index is rebuilt in full on any custom
// add/remove, which is acceptable at catalog scale (hundreds of entities).
type Catalog struct {
	static    []Entity
	custom    []Entity
	store     *CustomStore
	validator Validator

	index map[string]*Entity
}

// New builds a catalog from the static reference list and the custom overlay
// persisted in store. validator may be nil, which disables remote validation.
func New(static []Entity, store *CustomStore, validator Validator) (*Catalog, error) {
	c := &Catalog{static: static, store: store, validator: validator}
	if store != nil {
		custom, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("load custom entities: %w", err)
		}
		c.custom = custom
	}
	c.rebuild()
	return c, nil
}

func (c *Catalog) rebuild() {
	index := make(map[string]*Entity, (len(c.static)+len(c.custom))*3)
	insert := func(e Entity) {
		entity := e
		for _, key := range []string{entity.NSECode, entity.BSECode, entity.Name} {
			key = strings.ToUpper(strings.TrimSpace(key))
			if key != "" {
				index[key] = &entity
			}
		}
	}
	for _, e := range c.static {
		insert(e)
	}
	// Custom entries go last so they shadow static ones under the same key.
	for _, e := range c.custom {
		e.Custom = true
		insert(e)
	}
	c.index = index
}

// Resolve returns the entity registered under any of its identifiers.
func (c *Catalog) Resolve(id string) (Entity, bool) {
	e, ok := c.index[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Sector returns the sector label for an identifier, or "Unknown".
func (c *Catalog) Sector(id string) string {
	if e, ok := c.Resolve(id); ok && strings.TrimSpace(e.Sector) != "" {
		return e.Sector
	}
	return "Unknown"
}

// Identifiers returns the primary (NSE) codes of every entity, sorted.
func (c *Catalog) Identifiers() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, e := range c.All() {
		code := strings.ToUpper(strings.TrimSpace(e.NSECode))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// All returns static entities followed by custom ones.
func (c *Catalog) All() []Entity {
	all := make([]Entity, 0, len(c.static)+len(c.custom))
	all = append(all, c.static...)
	for _, e := range c.custom {
		e.Custom = true
		all = append(all, e)
	}
	return all
}

// AddParams carries the user-supplied fields for a custom entity.
type AddParams struct {
	Name      string
	NSECode   string
	BSECode   string
	Sector    string
	MarketCap float64
}

// Add appends a custom entity and rebuilds the index. When validate is true
// and a validator is configured, the NSE code must pass a remote existence
// check first.
func (c *Catalog) Add(ctx context.Context, params AddParams, validate bool) (Entity, error) {
	name := strings.TrimSpace(params.Name)
	nse := strings.ToUpper(strings.TrimSpace(params.NSECode))
	bse := strings.TrimSpace(params.BSECode)

	if name == "" {
		return Entity{}, ErrNameRequired
	}
	if nse == "" && bse == "" {
		return Entity{}, ErrCodeRequired
	}
	for _, code := range []string{nse, strings.ToUpper(bse)} {
		if code == "" {
			continue
		}
		if _, exists := c.index[code]; exists {
			return Entity{}, fmt.Errorf("%w: %s", ErrCodeExists, code)
		}
	}
	if validate && nse != "" && c.validator != nil {
		ok, err := c.validator.Exists(ctx, nse)
		if err != nil {
			return Entity{}, fmt.Errorf("validate %s: %w", nse, err)
		}
		if !ok {
			return Entity{}, fmt.Errorf("%w: %s", ErrNotValidated, nse)
		}
	}

	sector := strings.TrimSpace(params.Sector)
	if sector == "" {
		sector = "Unknown"
	}
	entity := Entity{
		Name:      titleCaser.String(strings.ToLower(name)),
		NSECode:   nse,
		BSECode:   bse,
		Sector:    sector,
		MarketCap: params.MarketCap,
		Custom:    true,
	}

	c.custom = append(c.custom, entity)
	if c.store != nil {
		if err := c.store.Save(c.custom); err != nil {
			c.custom = c.custom[:len(c.custom)-1]
			return Entity{}, fmt.Errorf("save custom entities: %w", err)
		}
	}
	c.rebuild()
	return entity, nil
}

// Remove deletes a custom entity by NSE code. Static entries are not
// removable.
func (c *Catalog) Remove(code string) error {
	target := strings.ToUpper(strings.TrimSpace(code))
	kept := c.custom[:0:0]
	for _, e := range c.custom {
		if strings.ToUpper(e.NSECode) != target {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(c.custom) {
		return fmt.Errorf("%w: %s", ErrNotCustom, code)
	}
	previous := c.custom
	c.custom = kept
	if c.store != nil {
		if err := c.store.Save(c.custom); err != nil {
			c.custom = previous
			return fmt.Errorf("save custom entities: %w", err)
		}
	}
	c.rebuild()
	return nil
}

// BySector returns entities whose sector contains the given label,
// case-insensitively.
func (c *Catalog) BySector(sector string) []Entity {
	needle := strings.ToLower(strings.TrimSpace(sector))
	var matches []Entity
	for _, e := range c.All() {
		if strings.Contains(strings.ToLower(e.Sector), needle) {
			matches = append(matches, e)
		}
	}
	return matches
}

// Statistics summarizes catalog composition.
func (c *Catalog) Statistics() Stats {
	sectors := make(map[string]struct{})
	for _, e := range c.All() {
		sectors[e.Sector] = struct{}{}
	}
	return Stats{
		Total:   len(c.static) + len(c.custom),
		Static:  len(c.static),
		Custom:  len(c.custom),
		Sectors: len(sectors),
	}
}
