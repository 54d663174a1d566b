// Package mqtt provides the MQTT transport between the adapter and the
// Zigbee2MQTT gateway's broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect on a fixed 5 s period
//   - Scheme-prefixed host resolution (mqtt://, mqtts://, ws://, wss://,
//     mqtt+unix://) including TLS and mutual-TLS material
//   - Immediate publishing with QoS 2 and a deferred FIFO publish queue
//     drained one message per 50 ms tick
//   - Topic subscriptions with wildcard support, restored on reconnect
//   - A keepalive heartbeat ("alive" to clients/<clientID>/heartbeat)
//
// # Architecture
//
// The adapter subscribes once per session to <topic>/# and publishes to
// <topic>/<friendly_name>/set, <topic>/<friendly_name>/get and
// <topic>/bridge/request/*. Transport failures are logged and surfaced
// through callbacks; they never crash the adapter since the paho
// client's reconnect loop handles recovery.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(cfg.MQTT.Topic+"/#", mqtt.DefaultQoS,
//	    func(topic string, payload []byte) error {
//	        return dispatcher.Dispatch(topic, payload)
//	    })
//
//	client.EnqueuePublish(cfg.MQTT.Topic+"/Lamp1/set", []byte(`{"state":"ON"}`))
package mqtt
