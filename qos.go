package mqttcore

// QoS is the MQTT delivery quality of service level requested for a publish
// or subscription. QoS 2 is accepted as a constant for completeness of the
// wire vocabulary but is rejected by Publish and Subscribe: exactly-once
// delivery is out of scope for this client.
type QoS uint8

const (
	AtMostOnce  QoS = 0
	AtLeastOnce QoS = 1
	exactlyOnce QoS = 2
)

func (q QoS) String() string {
	switch q {
	case AtMostOnce:
		return "QoS0"
	case AtLeastOnce:
		return "QoS1"
	case exactlyOnce:
		return "QoS2"
	default:
		return "QoS?"
	}
}
