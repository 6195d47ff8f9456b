package influxdb

import "errors"

// Sentinel errors for the telemetry client. Compare with errors.Is.
var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: telemetry disabled in configuration")

	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: not connected")

	// ErrUnhealthy is returned when the server answers a ping but reports
	// itself not ready.
	ErrUnhealthy = errors.New("influxdb: server not healthy")

	// ErrWriteFailed wraps errors from the batching writer. They arrive
	// asynchronously through the SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: batch write failed")
)
