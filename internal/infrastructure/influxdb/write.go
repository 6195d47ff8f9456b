package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// PropertyMeasurement holds one point per recorded script property.
const PropertyMeasurement = "script_properties"

// WritePropertyMetric queues one sample of an entity's script property.
// value is a bool, int64 or float64. The entity name is kept as a tag so
// dashboards can label series without a join.
//
//	client.WritePropertyMetric("device", 12, "desk lamp", "power", true)
func (c *Client) WritePropertyMetric(entityType string, entityID uint32, entityName, property string, value any) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(propertyPoint(entityType, entityID, entityName, property, value, time.Now()))
}

func propertyPoint(entityType string, entityID uint32, entityName, property string, value any, at time.Time) *write.Point {
	tags := map[string]string{
		"entity_type": entityType,
		"entity_id":   strconv.FormatUint(uint64(entityID), 10),
		"entity_name": entityName,
		"property":    property,
	}
	return write.NewPoint(PropertyMeasurement, tags, map[string]any{"value": value}, at)
}
