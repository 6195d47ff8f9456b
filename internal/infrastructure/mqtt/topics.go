package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic roots. Entity topics follow graylogic/core/{type}/{id}/{channel},
// with a trailing /{method} on invoke topics.
const (
	TopicRoot = "graylogic"

	entityRoot    = TopicRoot + "/core"
	presenceTopic = TopicRoot + "/system/status"
)

// Entity topic channels.
const (
	ChannelState  = "state"
	ChannelConfig = "config"
	ChannelInvoke = "invoke"
)

// Topics builds entity topics.
//
//	mqtt.Topics{}.EntityState("device", 12) // graylogic/core/device/12/state
type Topics struct{}

// EntityState is the retained topic carrying an entity's visible properties.
func (Topics) EntityState(entityType string, id uint32) string {
	return entityTopic(entityType, id, ChannelState)
}

// EntityConfig is the retained topic carrying an entity's info document.
func (Topics) EntityConfig(entityType string, id uint32) string {
	return entityTopic(entityType, id, ChannelConfig)
}

// EntityInvoke is the topic that calls method on an entity's script. The
// payload is the JSON parameter.
func (Topics) EntityInvoke(entityType string, id uint32, method string) string {
	return entityTopic(entityType, id, ChannelInvoke) + "/" + method
}

// AllEntityInvokes matches every method invoke on every entity.
func (Topics) AllEntityInvokes() string {
	return entityRoot + "/+/+/" + ChannelInvoke + "/+"
}

func entityTopic(entityType string, id uint32, channel string) string {
	return entityRoot + "/" + entityType + "/" + strconv.FormatUint(uint64(id), 10) + "/" + channel
}

// EntityTopic is the decoded form of an entity topic. Method is only set on
// invoke topics.
type EntityTopic struct {
	Type    string
	ID      uint32
	Channel string
	Method  string
}

// ParseEntityTopic decodes an entity topic. Type is returned as written;
// mapping it to an entity kind is up to the caller.
func ParseEntityTopic(topic string) (EntityTopic, error) {
	invalid := fmt.Errorf("%w: %q", ErrInvalidTopic, topic)

	rest, ok := strings.CutPrefix(topic, entityRoot+"/")
	if !ok {
		return EntityTopic{}, invalid
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 3 || parts[0] == "" {
		return EntityTopic{}, invalid
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || id == 0 {
		return EntityTopic{}, invalid
	}

	et := EntityTopic{Type: parts[0], ID: uint32(id), Channel: parts[2]}
	switch et.Channel {
	case ChannelState, ChannelConfig:
		if len(parts) != 3 {
			return EntityTopic{}, invalid
		}
	case ChannelInvoke:
		if len(parts) != 4 || parts[3] == "" {
			return EntityTopic{}, invalid
		}
		et.Method = parts[3]
	default:
		return EntityTopic{}, invalid
	}
	return et, nil
}
