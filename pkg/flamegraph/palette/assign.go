package palette

import (
	"image/color"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

// Assignment colors the rows of one table. For dictionary columns colors are
// computed once per dictionary entry; plain columns are colored per distinct
// value.
type Assignment struct {
	col     *table.StringColumn
	byIndex []color.RGBA
	byValue map[string]color.RGBA
}

// Assign scans the distinct values of col. A nil column colors every row
// Neutral. When dark is set every color is darkened.
func Assign(col *table.StringColumn, scheme Scheme, dark bool) *Assignment {
	a := &Assignment{col: col}
	if col == nil {
		return a
	}

	pick := func(value string) color.RGBA {
		if value == "" {
			return Neutral
		}
		c := scheme.Color(value)
		if dark {
			c = Darken(c)
		}
		return c
	}

	if col.IsDictionary() {
		a.byIndex = make([]color.RGBA, col.DictionaryLen())
		for i := range a.byIndex {
			a.byIndex[i] = pick(col.DictionaryValue(i))
		}
		return a
	}

	a.byValue = make(map[string]color.RGBA)
	for i := 0; i < col.DictionaryLen(); i++ {
		value := col.DictionaryValue(i)
		if _, ok := a.byValue[value]; !ok {
			a.byValue[value] = pick(value)
		}
	}
	return a
}

func (a *Assignment) RowColor(row int) color.RGBA {
	if a == nil || a.col == nil {
		return Neutral
	}
	idx, ok := a.col.Index(row)
	if !ok {
		return Neutral
	}
	if a.byIndex != nil {
		return a.byIndex[idx]
	}
	if c, ok := a.byValue[a.col.DictionaryValue(idx)]; ok {
		return c
	}
	return Neutral
}

// Values returns the color of each distinct value.
func (a *Assignment) Values() map[string]color.RGBA {
	res := make(map[string]color.RGBA)
	if a == nil || a.col == nil {
		return res
	}
	if a.byIndex != nil {
		for i, c := range a.byIndex {
			res[a.col.DictionaryValue(i)] = c
		}
		return res
	}
	for value, c := range a.byValue {
		res[value] = c
	}
	return res
}

////////////////////////////////////////////////////////////////////////////////

const DefaultCacheSize = 16

type cacheKey struct {
	table   table.ID
	colorBy ColorBy
	dark    bool
}

// Cache keeps assignments per table, mode and theme, so switching the color
// mode back and forth does not rescan dictionaries.
type Cache struct {
	schemes map[ColorBy]Scheme
	entries *lru.Cache[cacheKey, *Assignment]
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[cacheKey, *Assignment](size)
	if err != nil {
		panic(err)
	}
	return &Cache{
		schemes: make(map[ColorBy]Scheme),
		entries: entries,
	}
}

// SetScheme overrides the scheme of a mode and drops its cached assignments.
func (c *Cache) SetScheme(by ColorBy, scheme Scheme) {
	c.schemes[by] = scheme
	for _, key := range c.entries.Keys() {
		if key.colorBy == by {
			c.entries.Remove(key)
		}
	}
}

func (c *Cache) scheme(by ColorBy) Scheme {
	if s, ok := c.schemes[by]; ok {
		return s
	}
	return SchemeFor(by)
}

func (c *Cache) Get(t *table.Table, by ColorBy, dark bool) *Assignment {
	key := cacheKey{table: t.ID(), colorBy: by, dark: dark}
	if a, ok := c.entries.Get(key); ok {
		return a
	}
	a := Assign(t.Strings(by.Field()), c.scheme(by), dark)
	c.entries.Add(key, a)
	return a
}

// Forget drops every assignment of t.
func (c *Cache) Forget(id table.ID) {
	for _, key := range c.entries.Keys() {
		if key.table == id {
			c.entries.Remove(key)
		}
	}
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
