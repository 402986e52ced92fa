// Package influxdb writes inventory telemetry to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Readings collected
// from projectors are mirrored here when the inventory records them:
//
//	projector_hours   tags: site, serial, slot       field: hours
//	lamp_hours        tags: site, serial, life, projector   field: hours
//	projector_colour  tags: site, serial             fields: one per colour setting
//
// The inventory database stays the record of current hours; InfluxDB holds
// the series for graphing lamp wear over time.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	orchestrator.SetTelemetrySink(client)
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval); failures
// arrive through SetOnError. Connection and health check errors are returned
// directly.
package influxdb
