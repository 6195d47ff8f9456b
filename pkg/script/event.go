package script

import (
	"runtime"
	"sync"
	"weak"
)

// binding is one entry of an event's target list.
type binding struct {
	target WeakView
	method string
}

// bindingList is the shared target list of an Event. Connections refer to it
// weakly so an Event can be collected while connections are still held.
type bindingList struct {
	mu    sync.Mutex
	items []*binding
}

// Event is a multicast notification a script raises toward other views.
//
// Targets are held weakly. Invoke skips expired targets but never removes
// them; entries leave the list only when their EventConnection is unbound
// (explicitly or when the connection is garbage collected).
type Event struct {
	list *bindingList
}

// NewEvent creates an event with no bindings.
func NewEvent() *Event {
	return &Event{list: &bindingList{}}
}

// Bind appends {target, method} to the target list and returns the
// connection that owns the entry. A nil target or empty method returns nil.
func (e *Event) Bind(target WeakView, method string) *EventConnection {
	if target == nil || method == "" {
		return nil
	}
	entry := &binding{target: target, method: method}

	e.list.mu.Lock()
	e.list.items = append(e.list.items, entry)
	e.list.mu.Unlock()

	conn := &EventConnection{
		list:  weak.Make(e.list),
		entry: entry,
	}
	conn.cleanup = runtime.AddCleanup(conn, func(h connHandle) {
		h.unbind()
	}, connHandle{list: conn.list, entry: entry})
	return conn
}

// Invoke delivers param to every live target in list order by calling
// target.Invoke(method, param). It returns the number of targets reached.
// Delivery happens outside the list lock, so targets may bind or unbind.
func (e *Event) Invoke(param Value) int {
	e.list.mu.Lock()
	snapshot := make([]*binding, len(e.list.items))
	copy(snapshot, e.list.items)
	e.list.mu.Unlock()

	delivered := 0
	for _, b := range snapshot {
		view := b.target.Resolve()
		if view == nil {
			continue
		}
		view.Invoke(b.method, param)
		delivered++
	}
	return delivered
}

// Len returns the number of entries in the target list, expired or not.
func (e *Event) Len() int {
	e.list.mu.Lock()
	defer e.list.mu.Unlock()
	return len(e.list.items)
}

// EventConnection owns exactly one entry of an event's target list.
// Unbind it, or drop every reference to it, to remove the entry.
type EventConnection struct {
	list    weak.Pointer[bindingList]
	entry   *binding
	once    sync.Once
	cleanup runtime.Cleanup
}

// Method returns the target method name of the connection.
func (c *EventConnection) Method() string {
	return c.entry.method
}

// Target returns the bound view, or nil once it has been collected.
func (c *EventConnection) Target() View {
	return c.entry.target.Resolve()
}

// Unbind removes the connection's entry. Safe to call more than once.
func (c *EventConnection) Unbind() {
	c.once.Do(func() {
		c.cleanup.Stop()
		connHandle{list: c.list, entry: c.entry}.unbind()
	})
}

// connHandle carries what unbinding needs without referencing the
// connection itself, so it can run as the connection's cleanup.
type connHandle struct {
	list  weak.Pointer[bindingList]
	entry *binding
}

// unbind finds the entry by identity and removes it by swapping with the
// last element.
func (h connHandle) unbind() {
	list := h.list.Value()
	if list == nil {
		return
	}
	list.mu.Lock()
	defer list.mu.Unlock()

	for i, item := range list.items {
		if item != h.entry {
			continue
		}
		last := len(list.items) - 1
		list.items[i] = list.items[last]
		list.items[last] = nil
		list.items = list.items[:last]
		return
	}
}
