package script

import (
	"encoding/json"
	"sort"
	"sync"
)

// Context is the registration surface a behaviour uses to populate its
// script's properties, methods, events and attributes.
//
// Names are unique per kind: adding under a taken name fails and leaves the
// existing entry untouched. Remove and Clear are unconditional.
//
// The maps are written during setup and treated as read-only afterwards;
// the map lock only protects against late Remove/Clear calls.
type Context struct {
	view   View
	source Source

	mu         sync.RWMutex
	attributes map[string]json.RawMessage
	properties map[string]*Property
	methods    map[string]*Method
	events     map[string]*Event

	// state serialises access to property backing storage.
	state sync.Mutex
}

func newContext(view View, source Source) *Context {
	return &Context{
		view:       view,
		source:     source,
		attributes: make(map[string]json.RawMessage),
		properties: make(map[string]*Property),
		methods:    make(map[string]*Method),
		events:     make(map[string]*Event),
	}
}

// View returns the script's view of its owner.
func (c *Context) View() View { return c.view }

// Source returns the source that created the script.
func (c *Context) Source() Source { return c.source }

// Locker returns the lock guarding property state. Methods that write fields
// exposed as properties should hold it while writing, and must release it
// before calling Publish or PublishState on the view.
func (c *Context) Locker() sync.Locker { return &c.state }

// AddAttribute registers static descriptive JSON under name.
// It fails when the name is taken or value is not valid JSON.
func (c *Context) AddAttribute(name string, value json.RawMessage) bool {
	if name == "" || !json.Valid(value) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.attributes[name]; exists {
		return false
	}
	c.attributes[name] = append(json.RawMessage(nil), value...)
	return true
}

// RemoveAttribute removes the attribute if present.
func (c *Context) RemoveAttribute(name string) {
	c.mu.Lock()
	delete(c.attributes, name)
	c.mu.Unlock()
}

// ClearAttributes removes every attribute.
func (c *Context) ClearAttributes() {
	c.mu.Lock()
	clear(c.attributes)
	c.mu.Unlock()
}

// AddProperty registers p under name. It fails when p is nil or the name is taken.
func (c *Context) AddProperty(name string, p *Property) bool {
	if name == "" || p == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.properties[name]; exists {
		return false
	}
	c.properties[name] = p
	return true
}

// RemoveProperty removes the property if present.
func (c *Context) RemoveProperty(name string) {
	c.mu.Lock()
	delete(c.properties, name)
	c.mu.Unlock()
}

// ClearProperties removes every property.
func (c *Context) ClearProperties() {
	c.mu.Lock()
	clear(c.properties)
	c.mu.Unlock()
}

// AddMethod registers m under name. It fails when m is nil or the name is taken.
func (c *Context) AddMethod(name string, m *Method) bool {
	if name == "" || m == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.methods[name]; exists {
		return false
	}
	c.methods[name] = m
	return true
}

// RemoveMethod removes the method if present.
func (c *Context) RemoveMethod(name string) {
	c.mu.Lock()
	delete(c.methods, name)
	c.mu.Unlock()
}

// ClearMethods removes every method.
func (c *Context) ClearMethods() {
	c.mu.Lock()
	clear(c.methods)
	c.mu.Unlock()
}

// AddEvent creates and registers an event under name.
// It returns nil when the name is taken.
func (c *Context) AddEvent(name string) *Event {
	if name == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.events[name]; exists {
		return nil
	}
	e := NewEvent()
	c.events[name] = e
	return e
}

// RemoveEvent removes the event if present.
func (c *Context) RemoveEvent(name string) {
	c.mu.Lock()
	delete(c.events, name)
	c.mu.Unlock()
}

// ClearEvents removes every event.
func (c *Context) ClearEvents() {
	c.mu.Lock()
	clear(c.events)
	c.mu.Unlock()
}

func (c *Context) clearAll() {
	c.mu.Lock()
	clear(c.attributes)
	clear(c.properties)
	clear(c.methods)
	clear(c.events)
	c.mu.Unlock()
}

func (c *Context) property(name string) (*Property, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.properties[name]
	return p, ok
}

func (c *Context) method(name string) (*Method, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.methods[name]
	return m, ok
}

func (c *Context) event(name string) (*Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.events[name]
	return e, ok
}

// propertySnapshot returns the properties whose flags intersect filter.
func (c *Context) propertySnapshot(filter Flags) map[string]*Property {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*Property, len(c.properties))
	for name, p := range c.properties {
		if p.HasFlag(filter) {
			out[name] = p
		}
	}
	return out
}

func (c *Context) attributeSnapshot() map[string]json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(c.attributes))
	for name, raw := range c.attributes {
		out[name] = raw
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Context) names() (properties, methods, events []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.properties), sortedKeys(c.methods), sortedKeys(c.events)
}
