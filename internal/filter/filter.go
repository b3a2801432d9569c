// Package filter holds the process-wide view filter.
package filter

import (
	"encoding/json"
	"log"
	"net/url"
	"sync"
)

// Filter scopes the current view to a project, database, schema or table.
type Filter struct {
	Project  string `json:"project,omitempty"`
	Database string `json:"database,omitempty"`
	Schema   string `json:"schema,omitempty"`
	Table    string `json:"table,omitempty"`
}

// Context is the mutable current filter. It is seeded once from the startup query
// and never re-read from it.
type Context struct {
	mu     sync.RWMutex
	filter Filter
}

// New builds a Context from query. A "filter" parameter holding a JSON object wins;
// otherwise the discrete "project", "database", "schema" and "table" parameters are
// used. A malformed blob is logged and yields an empty filter. A nil logger uses the
// standard logger.
func New(query url.Values, logger *log.Logger) *Context {
	if logger == nil {
		logger = log.Default()
	}
	c := &Context{}

	if raw := query.Get("filter"); raw != "" {
		var f Filter
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			logger.Printf("[Filter] Ignoring malformed filter %q: %v", raw, err)
			return c
		}
		c.filter = f
		return c
	}

	c.filter = Filter{
		Project:  query.Get("project"),
		Database: query.Get("database"),
		Schema:   query.Get("schema"),
		Table:    query.Get("table"),
	}
	return c
}

// ParseQuery parses a raw query string for New. Unparseable input yields no values.
func ParseQuery(raw string, logger *log.Logger) url.Values {
	values, err := url.ParseQuery(raw)
	if err != nil {
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("[Filter] Ignoring malformed startup query: %v", err)
		return url.Values{}
	}
	return values
}

// Get returns a copy of the current filter.
func (c *Context) Get() Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// Set replaces the current filter.
func (c *Context) Set(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f
}

// Update applies fn to the current filter and returns the result.
func (c *Context) Update(fn func(*Filter)) Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.filter)
	return c.filter
}
