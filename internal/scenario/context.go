package scenario

import (
	"sync"

	"craftcheck/pkg/logging"
)

// Context holds the variable store for one scenario execution: results
// recorded by store_as, resolved by later actions' placeholders. Append-only
// during a run, discarded at run end.
type Context struct {
	mu   sync.RWMutex
	vars map[string]interface{}
}

// NewContext creates an empty execution context.
func NewContext() *Context {
	return &Context{
		vars: make(map[string]interface{}),
	}
}

// Store records a value under the given variable name.
func (c *Context) Store(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[name] = value
	logging.Debug("Executor", "Stored variable %q: %v", name, value)
}

// Get retrieves a stored value by name.
func (c *Context) Get(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, exists := c.vars[name]
	return value, exists
}

// All returns a copy of the variable store for template resolution.
func (c *Context) All() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	vars := make(map[string]interface{}, len(c.vars))
	for k, v := range c.vars {
		vars[k] = v
	}
	return vars
}
