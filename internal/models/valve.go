package models

import "time"

// ValveMode selects who drives the outflow valve: the rig's own control
// loop (auto) or the operator (manual)
type ValveMode string

const (
	ValveModeAuto   ValveMode = "auto"
	ValveModeManual ValveMode = "manual"
)

// ValidValveMode reports whether m is a known mode
func ValidValveMode(m ValveMode) bool {
	return m == ValveModeAuto || m == ValveModeManual
}

// ValveState is the commanded actuator position
type ValveState string

const (
	ValveStateOn  ValveState = "on"
	ValveStateOff ValveState = "off"
)

// ValidValveState reports whether s is a known state
func ValidValveState(s ValveState) bool {
	return s == ValveStateOn || s == ValveStateOff
}

// ValveStatus is the last-known status of the physical actuator
type ValveStatus struct {
	Mode      ValveMode  `json:"mode"`
	State     ValveState `json:"state"`
	Reachable bool       `json:"reachable"`
	CheckedAt time.Time  `json:"checked_at"`
}
