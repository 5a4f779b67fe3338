// Package influxdb records node telemetry in InfluxDB v2.
//
// Status transitions of the supervised node, close-sequence outcomes and
// log cache volume are written as points through a non-blocking, batched
// write API. Telemetry is optional: Connect returns ErrDisabled when
// influxdb.enabled is false and callers carry on without it.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteNodeTransition(influxdb.NodeTransition{From: "starting", To: "running", Account: "alice"})
//
// Write methods are no-ops on a nil or closed client. Async write failures
// go to the SetOnError callback.
package influxdb
