// Package influxdb records script property telemetry for Gray Logic Home.
//
// home.InfluxRecorder feeds it every time an entity publishes state: each
// boolean, integer or number property becomes one point in the
// script_properties measurement, tagged with entity type, id, name and
// property. Strings, endpoints and colours are not recorded.
//
// Telemetry is optional. With influxdb.enabled false, Connect returns
// ErrDisabled and the runtime runs without it.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Error("telemetry", "error", err) })
package influxdb
