package mqtt

import "fmt"

// TopicPrefixSystem is the base for service status topics.
// Telemetry payload topics are deployment-specific and come from config
// (mqtt.topic); only the service's own status topic is fixed.
const TopicPrefixSystem = "telemetry/system"

// Topics provides builders for Telemetry Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// SystemStatus returns the topic carrying the service online/offline status.
//
// Example: telemetry/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
