package history

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/zigbridge/zigbridge-core/internal/fabric"
)

// WriteAttribute records one attribute change for an entity. Boolean and
// numeric values are stored; other value kinds are skipped since they
// carry no plottable history.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteAttribute(entity string, attr fabric.Attribute, value any) {
	if !c.IsConnected() {
		return
	}

	v, ok := attributeValue(value)
	if !ok {
		return
	}

	point := write.NewPoint(
		"attributes",
		map[string]string{
			"entity":    entity,
			"cluster":   string(attr.Cluster),
			"attribute": attr.Name,
		},
		map[string]interface{}{
			"value": v,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteEvent records an operation event (lock operations, switch presses).
func (c *Client) WriteEvent(entity string, eventType fabric.EventType) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"events",
		map[string]string{
			"entity": entity,
			"type":   string(eventType),
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// Observe installs the sink on an endpoint: every attribute change and
// event lands in the bucket. Chained after any existing observers is the
// caller's job; the registry attaches the sink before handing endpoints
// to the host.
func (c *Client) Observe(ep *fabric.Endpoint) {
	name := ep.Name()
	ep.SetOnAttribute(func(attr fabric.Attribute, value any) {
		c.WriteAttribute(name, attr, value)
	})
	ep.SetOnEvent(func(ev fabric.Event) {
		c.WriteEvent(name, ev.Type)
	})
	for _, child := range ep.Children() {
		c.Observe(child)
	}
}

// attributeValue flattens an attribute value to a storable float.
func attributeValue(value any) (float64, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
