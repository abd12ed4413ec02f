package mqttcore

// Message is an application-facing MQTT PUBLISH delivered to a subscription
// handler.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       QoS
	Retained  bool
	Duplicate bool
}

// Handler processes an incoming Message. It runs on a worker goroutine, not
// the dispatcher's read loop; a slow or blocking handler delays the other
// deliveries to its own subscription. Each subscription queues up to 64
// pending messages; once that queue is full, the read loop waits for room.
type Handler func(msg Message)
