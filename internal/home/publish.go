package home

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// Publisher broadcasts entity configuration and state.
type Publisher interface {
	PublishState(t script.ViewType, id uint32, state json.RawMessage) error
	PublishConfig(t script.ViewType, id uint32, config json.RawMessage) error
}

// Recorder stores visible state samples as telemetry.
type Recorder interface {
	RecordState(t script.ViewType, id uint32, name string, state map[string]script.Value)
}

// Publishers fans out to every publisher in order. All are attempted; the
// errors are joined.
type Publishers []Publisher

// PublishState calls PublishState on every publisher.
func (ps Publishers) PublishState(t script.ViewType, id uint32, state json.RawMessage) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishState(t, id, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishConfig calls PublishConfig on every publisher.
func (ps Publishers) PublishConfig(t script.ViewType, id uint32, config json.RawMessage) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishConfig(t, id, config); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RetainedPublisher is the part of *mqtt.Client the MQTT publisher uses.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// MQTTPublisher publishes entity configuration and state as retained
// messages on the core entity topics.
type MQTTPublisher struct {
	client RetainedPublisher
}

// NewMQTTPublisher creates a publisher over client.
func NewMQTTPublisher(client RetainedPublisher) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// PublishState publishes to graylogic/core/{type}/{id}/state.
func (p *MQTTPublisher) PublishState(t script.ViewType, id uint32, state json.RawMessage) error {
	return p.client.PublishRetained(mqtt.Topics{}.EntityState(t.String(), id), state)
}

// PublishConfig publishes to graylogic/core/{type}/{id}/config.
func (p *MQTTPublisher) PublishConfig(t script.ViewType, id uint32, config json.RawMessage) error {
	return p.client.PublishRetained(mqtt.Topics{}.EntityConfig(t.String(), id), config)
}

// PropertyWriter is the part of *influxdb.Client the recorder uses.
type PropertyWriter interface {
	WritePropertyMetric(entityType string, entityID uint32, entityName, property string, value any)
}

// InfluxRecorder writes boolean and numeric visible properties as
// script_properties points. Other kinds are not recorded.
type InfluxRecorder struct {
	writer PropertyWriter
}

// NewInfluxRecorder creates a recorder over writer.
func NewInfluxRecorder(writer PropertyWriter) *InfluxRecorder {
	return &InfluxRecorder{writer: writer}
}

// RecordState writes one point per recordable property.
func (r *InfluxRecorder) RecordState(t script.ViewType, id uint32, name string, state map[string]script.Value) {
	for property, v := range state {
		var value any
		switch v.Kind() {
		case script.KindBoolean:
			value = v.AsBool()
		case script.KindInteger:
			value = v.AsInt()
		case script.KindNumber:
			value = v.AsNumber()
		default:
			continue
		}
		r.writer.WritePropertyMetric(t.String(), id, name, property, value)
	}
}

// HandleInvoke is an MQTT message handler for
// graylogic/core/{type}/{id}/invoke/{method}. The payload is the JSON
// parameter; an empty payload invokes with no parameter.
func (h *Home) HandleInvoke(topic string, payload []byte) error {
	t, id, method, err := parseInvokeTopic(topic)
	if err != nil {
		return err
	}
	e, ok := h.Entity(t, id)
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrEntityNotFound, t, id)
	}
	s := e.Script()
	if s == nil {
		return fmt.Errorf("%w: %s %d", ErrNoScript, t, id)
	}

	var param script.Value
	if len(payload) > 0 {
		param = script.ParseValue(payload, methodKind(s, method))
	}
	if !s.Invoke(method, param) {
		h.logger.Debug("invoke rejected", "type", t.String(), "id", id, "method", method)
	}
	return nil
}

// methodKind is the decode hint for a method parameter.
func methodKind(s *script.Script, method string) script.Kind {
	if m, ok := s.Method(method); ok {
		return m.Kind()
	}
	return script.KindUnknown
}

func parseInvokeTopic(topic string) (script.ViewType, uint32, string, error) {
	et, err := mqtt.ParseEntityTopic(topic)
	if err != nil || et.Channel != mqtt.ChannelInvoke {
		return 0, 0, "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	t, ok := ParseType(et.Type)
	if !ok {
		return 0, 0, "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	return t, et.ID, et.Method, nil
}
