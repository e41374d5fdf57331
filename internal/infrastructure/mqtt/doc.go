// Package mqtt provides MQTT client connectivity for Telemetry Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Telemetry Core uses MQTT as the inbound message bus: sensor gateways
// publish flat JSON readings to a configured topic, and the ingest
// pipeline subscribes to it.
//
//	Sensor gateways → MQTT Broker → Telemetry Core ingest pipeline
//
// # Security Considerations
//
//   - TLS should be enabled for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(cfg.MQTT.Topic, byte(cfg.MQTT.QoS),
//	    func(topic string, payload []byte) error {
//	        return pipeline.Enqueue(payload)
//	    })
package mqtt
