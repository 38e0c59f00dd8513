package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic geogate publishes.
const TopicPrefix = "geogate"

// Topics builds geogate MQTT topic names.
//
//	mqtt.Topics{}.SecurityEvent("session_revoked")
//	// Returns: "geogate/security/session_revoked"
type Topics struct{}

// SecurityEvent returns the topic for one audit action.
// Topic wildcard characters in the action are replaced with underscores.
func (Topics) SecurityEvent(action string) string {
	return fmt.Sprintf("%s/security/%s", TopicPrefix, sanitizeLevel(action))
}

// AllSecurityEvents returns the subscription filter matching every security event.
func (Topics) AllSecurityEvents() string {
	return TopicPrefix + "/security/+"
}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

func sanitizeLevel(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#':
			return '_'
		default:
			return r
		}
	}, s)
}
