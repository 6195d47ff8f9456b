// Package mqtt connects Gray Logic Home to its MQTT broker.
//
// The runtime uses the broker for three things:
//   - retained entity state and config on graylogic/core/{type}/{id}/state
//     and .../config, published by home.MQTTPublisher
//   - method invokes on graylogic/core/{type}/{id}/invoke/{method}, routed
//     to home.Home.HandleInvoke
//   - runtime presence on graylogic/system/status, kept current by the
//     client itself and by its will
//
// Subscriptions are tracked by the client and replayed after every
// reconnect, since sessions are clean.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if errors.Is(err, mqtt.ErrDisabled) {
//	    // run without a broker
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllEntityInvokes(), 1, h.HandleInvoke)
package mqtt
