// Package config provides environment helpers for go-goalvision commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults for the vision coprocessor.
const (
	DefaultTeamNumber = 4607
	DefaultTablePort  = "5810"
	DefaultConfigFile = "high_goal_config.yaml"
)

// TableURL returns the table server URL from VISION_TABLE_URL.
// Falls back to the provided default if not set.
func TableURL(defaultURL string) string {
	if u := os.Getenv("VISION_TABLE_URL"); u != "" {
		return u
	}
	return defaultURL
}

// TeamNumber returns the team number from VISION_TEAM or the default.
func TeamNumber() int {
	if v := os.Getenv("VISION_TEAM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultTeamNumber
}

// TeamTableURL returns the websocket table URL served by the team's robot controller.
func TeamTableURL(team int) string {
	return fmt.Sprintf("ws://roborio-%d-frc.local:%s/ws/table", team, DefaultTablePort)
}

// ConfigPath returns the preset file path from VISION_CONFIG or the default.
func ConfigPath() string {
	if p := os.Getenv("VISION_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigFile
}

// MQTTBroker returns the broker address from VISION_MQTT_BROKER, or "" when unset.
func MQTTBroker() string {
	return os.Getenv("VISION_MQTT_BROKER")
}
