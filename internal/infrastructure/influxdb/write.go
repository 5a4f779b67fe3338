package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementNodeLifecycle = "node_lifecycle"
	MeasurementShutdown      = "shutdown_session"
	MeasurementNodeLogs      = "node_logs"
)

// NodeTransition is one node status change as recorded in InfluxDB.
type NodeTransition struct {
	From    string
	To      string
	Account string
	PID     int
	Error   string
	At      time.Time
}

// ShutdownSession summarises one close sequence.
type ShutdownSession struct {
	SessionID   string
	Attempts    int
	ForceKilled bool
	Elapsed     time.Duration
	Failed      bool
}

// WriteNodeTransition records a node status change. Non-blocking.
func (c *Client) WriteNodeTransition(t NodeTransition) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(nodeTransitionPoint(t))
}

// WriteShutdownSession records the outcome of a close sequence. Non-blocking.
func (c *Client) WriteShutdownSession(s ShutdownSession) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(shutdownPoint(s, time.Now()))
}

// WriteLogVolume records how many lines the log cache holds.
func (c *Client) WriteLogVolume(account string, lines, capacity int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(MeasurementNodeLogs,
		map[string]string{"account": account},
		map[string]any{"lines": lines, "capacity": capacity},
		time.Now()))
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

// nodeTransitionPoint tags by status and account; the PID and error are
// fields so they do not grow series cardinality.
func nodeTransitionPoint(t NodeTransition) *write.Point {
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	fields := map[string]any{
		"pid":     t.PID,
		"crashed": t.To == "crashed",
	}
	if t.Error != "" {
		fields["error"] = t.Error
	}
	return write.NewPoint(MeasurementNodeLifecycle,
		map[string]string{
			"from":    t.From,
			"to":      t.To,
			"account": t.Account,
		},
		fields,
		at)
}

func shutdownPoint(s ShutdownSession, at time.Time) *write.Point {
	return write.NewPoint(MeasurementShutdown,
		map[string]string{
			"force_killed": boolTag(s.ForceKilled),
		},
		map[string]any{
			"session_id": s.SessionID,
			"attempts":   s.Attempts,
			"elapsed_ms": s.Elapsed.Milliseconds(),
			"failed":     s.Failed,
		},
		at)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
