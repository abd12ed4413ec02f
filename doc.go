// Package mqttcore implements a resilient, non-blocking-friendly MQTT 3.1.1
// client built around three cooperating subsystems: a connection
// supervisor that dials, handshakes, and reconnects with backoff; a
// protocol serializer that gives each request/reply exchange exclusive use
// of the socket; and a QoS-1 delivery engine that retries and ultimately
// escalates to the supervisor when a publish cannot be acknowledged.
//
// # Quick start
//
//	client, err := mqttcore.Connect(ctx, mqttcore.Config{
//		Server:    "localhost:1883",
//		ClientID:  "sensor-1",
//		KeepAlive: 30 * time.Second,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Subscribe(ctx, "home/+/temperature", mqttcore.AtLeastOnce, handler)
//	client.Publish(ctx, "home/kitchen/temperature", []byte("21.5"), false, mqttcore.AtLeastOnce)
//
// Supported:
//   - MQTT 3.1.1 CONNECT/CONNACK, PUBLISH/PUBACK, SUBSCRIBE/SUBACK,
//     UNSUBSCRIBE/UNSUBACK, PINGREQ/PINGRESP, DISCONNECT
//   - QoS 0 and QoS 1 publish and subscribe
//   - TLS and plain TCP transports, plus an optional WebSocket transport
//     (see transport/ws)
//   - Automatic reconnection with exponential backoff and subscription
//     replay
//
// Not supported, by design:
//   - QoS 2 (exactly-once delivery)
//   - Concurrent publishers to the same Client (Publish calls from
//     multiple goroutines serialize correctly but are not the intended
//     usage pattern)
//   - On-disk session persistence across process restarts
package mqttcore
