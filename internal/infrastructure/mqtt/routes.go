package mqtt

import "fmt"

// Subscribe routes messages matching filter to handler and remembers the
// route so it survives reconnects. Filters may use the + and # wildcards.
// Subscribing the same filter again replaces its handler.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := checkTopic(filter, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrSubscribeFailed, filter)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.routesMu.Lock()
	c.routes[filter] = route{qos: qos, handler: handler}
	c.routesMu.Unlock()

	if err := await(c.paho.Subscribe(filter, qos, c.dispatch(handler)), ErrSubscribeFailed); err != nil {
		c.forget(filter)
		return err
	}
	c.log().Debug("subscribed", "filter", filter, "qos", qos)
	return nil
}

// Unsubscribe drops the route for filter. Messages already in flight may
// still reach the old handler.
func (c *Client) Unsubscribe(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.forget(filter)
	if err := await(c.paho.Unsubscribe(filter), ErrUnsubscribeFailed); err != nil {
		return err
	}
	c.log().Debug("unsubscribed", "filter", filter)
	return nil
}

// SubscriptionCount returns the number of routes replayed on reconnect.
func (c *Client) SubscriptionCount() int {
	c.routesMu.RLock()
	defer c.routesMu.RUnlock()
	return len(c.routes)
}

func (c *Client) forget(filter string) {
	c.routesMu.Lock()
	delete(c.routes, filter)
	c.routesMu.Unlock()
}

// replay resubscribes every route. A clean session starts with none.
func (c *Client) replay() {
	c.routesMu.RLock()
	routes := make(map[string]route, len(c.routes))
	for filter, r := range c.routes {
		routes[filter] = r
	}
	c.routesMu.RUnlock()

	for filter, r := range routes {
		if err := await(c.paho.Subscribe(filter, r.qos, c.dispatch(r.handler)), ErrSubscribeFailed); err != nil {
			c.log().Warn("restoring subscription failed", "filter", filter, "error", err)
		}
	}
}
