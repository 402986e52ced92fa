package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementProjectorHours = "projector_hours"
	measurementLampHours      = "lamp_hours"
	measurementColour         = "projector_colour"
)

// WriteProjectorHours records a projector's cumulative operating hours.
// slot is 0 for a projector that is not installed.
func (c *Client) WriteProjectorHours(serial string, slot, hours int, at time.Time) {
	c.writePoint(projectorHoursPoint(c.site, serial, slot, hours, at))
}

// WriteLampHours records the cumulative hours of one bulb life.
func (c *Client) WriteLampHours(serial string, life int, projectorSerial string, hours int, at time.Time) {
	c.writePoint(lampHoursPoint(c.site, serial, life, projectorSerial, hours, at))
}

// WriteColour records the colour settings read from a projector, keyed by
// column name.
func (c *Client) WriteColour(serial string, fields map[string]int, at time.Time) {
	if len(fields) == 0 {
		return
	}
	c.writePoint(colourPoint(c.site, serial, fields, at))
}

func (c *Client) writePoint(point *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(point)
}

func projectorHoursPoint(site, serial string, slot, hours int, at time.Time) *write.Point {
	tags := map[string]string{
		"site":   site,
		"serial": serial,
	}
	if slot > 0 {
		tags["slot"] = strconv.Itoa(slot)
	}
	return write.NewPoint(measurementProjectorHours, tags,
		map[string]interface{}{"hours": int64(hours)}, at)
}

func lampHoursPoint(site, serial string, life int, projectorSerial string, hours int, at time.Time) *write.Point {
	return write.NewPoint(measurementLampHours,
		map[string]string{
			"site":      site,
			"serial":    serial,
			"life":      strconv.Itoa(life),
			"projector": projectorSerial,
		},
		map[string]interface{}{"hours": int64(hours)}, at)
}

func colourPoint(site, serial string, values map[string]int, at time.Time) *write.Point {
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = int64(v)
	}
	return write.NewPoint(measurementColour,
		map[string]string{
			"site":   site,
			"serial": serial,
		},
		fields, at)
}
