// Package mqtt mirrors daemon events to an MQTT broker.
//
// The broker connection is optional. When enabled, the daemon publishes:
//   - <prefix>/system/status: retained online/offline, with a Last Will
//   - <prefix>/node/status: retained latest node status transition
//   - <prefix>/ui/<event>: every UI event (shutdown progress, node status)
//
// This lets a headless monitor or home dashboard follow the wallet node
// without holding a WebSocket to the daemon.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) for any non-loopback broker
//   - Credentials come from KALEIDO_MQTT_USERNAME / KALEIDO_MQTT_PASSWORD
//   - Payloads never include account secrets
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	mirror := mqtt.NewEventMirror(client, client.Topics(), byte(cfg.MQTT.QoS))
//	mirror.Emit("trigger-shutdown", "Preparing to shut down...")
package mqtt
