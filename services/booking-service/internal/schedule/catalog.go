// Package schedule holds the pure scheduling rules: the slot catalog for a
// business day and the Past/Full/Open classification of calendar dates.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

const (
	TimeLayout = "15:04"
	DateLayout = "2006-01-02"
)

// DefaultSlots is the pharmacy's standard day: half-hour slots over the
// morning and afternoon blocks, closed over the midday break.
const DefaultSlots = "09:00,09:30,10:00,10:30,11:00,11:30,12:00,12:30,13:00,13:30," +
	"16:00,16:30,17:00,17:30,18:00,18:30,19:00,19:30"

// Catalog is the fixed, ordered list of bookable time-of-day values.
// It comes from deployment configuration, not from code.
type Catalog struct {
	slots   []string
	members map[string]struct{}
}

// ParseCatalog builds a catalog from a comma-separated list of "15:04"
// values. Order is preserved; malformed or duplicate entries are
// configuration errors.
func ParseCatalog(raw string) (*Catalog, error) {
	c := &Catalog{members: map[string]struct{}{}}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := time.Parse(TimeLayout, part)
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q: %w", part, err)
		}
		normalized := parsed.Format(TimeLayout)
		if _, ok := c.members[normalized]; ok {
			return nil, fmt.Errorf("duplicate slot %q", normalized)
		}
		c.slots = append(c.slots, normalized)
		c.members[normalized] = struct{}{}
	}
	if len(c.slots) == 0 {
		return nil, fmt.Errorf("slot catalog is empty")
	}
	return c, nil
}

// MustDefault returns the built-in catalog. The constant is known valid,
// so a parse failure is a programmer error.
func MustDefault() *Catalog {
	c, err := ParseCatalog(DefaultSlots)
	if err != nil {
		panic(err)
	}
	return c
}

// Slots returns the ordered time-of-day values. The caller owns the copy.
func (c *Catalog) Slots() []string {
	out := make([]string, len(c.slots))
	copy(out, c.slots)
	return out
}

func (c *Catalog) Len() int {
	return len(c.slots)
}

func (c *Catalog) Contains(t string) bool {
	_, ok := c.members[t]
	return ok
}

// Open returns the catalog slots not present in busy, preserving catalog
// order. Busy values outside the catalog are ignored.
func (c *Catalog) Open(busy map[string]struct{}) []string {
	open := make([]string, 0, len(c.slots))
	for _, s := range c.slots {
		if _, taken := busy[s]; !taken {
			open = append(open, s)
		}
	}
	return open
}
