// Package influxdb provides InfluxDB v2 connectivity for aha-recorder.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes of device readings, and health
// checks.
//
// # Measurements
//
//	temperature  tags: device_id, name   fields: celsius (float, °C), offset (int, 1/10 °C)
//	energy       tags: device_id, name   fields: voltage (float, V), power (float, W), energy (int, Wh)
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { logger.Error("influx write failed", "error", err) })
//	client.WriteTemperature(d.Identifier, d.Name, *d.Temperature, tick)
//
// Writes are buffered and sent in batches of BatchSize points or every
// FlushInterval seconds, whichever comes first. Write failures are reported
// asynchronously through the SetOnError callback.
package influxdb
