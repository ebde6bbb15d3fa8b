package valve

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oceanworks/desal_backend/config"
	"github.com/oceanworks/desal_backend/internal/models"
)

// Relay errors surfaced to callers. Relay transport failures are returned
// verbatim without retry; the actuator's availability is outside our control.
var (
	ErrWrongMode = errors.New("valve is in automatic mode; switch to manual before controlling it")
)

// Relay forwards mode and on/off commands to the physical valve actuator
// and reports its last-known status.
type Relay struct {
	client *resty.Client

	mu     sync.RWMutex
	status models.ValveStatus
}

// deviceStatus is the actuator's own status payload
type deviceStatus struct {
	Mode  string `json:"mode"`
	State string `json:"state"`
}

// NewRelay creates a relay client for the configured actuator endpoint
func NewRelay(cfg config.ValveConfig) *Relay {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &Relay{
		client: client,
		status: models.ValveStatus{
			Mode:  models.ValveModeAuto,
			State: models.ValveStateOff,
		},
	}
}

// Status queries the actuator and returns its current status. On transport
// failure the cached status is returned with Reachable=false alongside the
// error.
func (r *Relay) Status() (models.ValveStatus, error) {
	var device deviceStatus

	resp, err := r.client.R().
		SetResult(&device).
		Get("/valve/status")
	if err != nil || resp.IsError() {
		r.mu.Lock()
		r.status.Reachable = false
		r.status.CheckedAt = time.Now()
		cached := r.status
		r.mu.Unlock()

		if err == nil {
			err = fmt.Errorf("valve relay returned status %d", resp.StatusCode())
		}
		return cached, fmt.Errorf("valve relay unreachable: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if models.ValidValveMode(models.ValveMode(device.Mode)) {
		r.status.Mode = models.ValveMode(device.Mode)
	}
	if models.ValidValveState(models.ValveState(device.State)) {
		r.status.State = models.ValveState(device.State)
	}
	r.status.Reachable = true
	r.status.CheckedAt = time.Now()
	return r.status, nil
}

// SetMode switches the actuator between automatic and manual control
func (r *Relay) SetMode(mode models.ValveMode) (models.ValveStatus, error) {
	if !models.ValidValveMode(mode) {
		return r.cachedStatus(), fmt.Errorf("invalid valve mode %q", mode)
	}

	resp, err := r.client.R().
		SetBody(map[string]string{"mode": string(mode)}).
		Post("/valve/mode")
	if err != nil || resp.IsError() {
		if err == nil {
			err = fmt.Errorf("valve relay returned status %d", resp.StatusCode())
		}
		return r.cachedStatus(), fmt.Errorf("valve relay unreachable: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Mode = mode
	r.status.Reachable = true
	r.status.CheckedAt = time.Now()

	log.Printf("🔧 Valve: Mode set to %s", mode)
	return r.status, nil
}

// Control commands the valve on or off. Rejected locally with ErrWrongMode
// while the valve is in automatic mode: manual commands must not race the
// rig's own control loop, so the relay is never reached in that case.
func (r *Relay) Control(state models.ValveState) (models.ValveStatus, error) {
	if !models.ValidValveState(state) {
		return r.cachedStatus(), fmt.Errorf("invalid valve state %q", state)
	}

	r.mu.RLock()
	mode := r.status.Mode
	r.mu.RUnlock()

	if mode == models.ValveModeAuto {
		return r.cachedStatus(), ErrWrongMode
	}

	resp, err := r.client.R().
		SetBody(map[string]string{"state": string(state)}).
		Post("/valve/control")
	if err != nil || resp.IsError() {
		if err == nil {
			err = fmt.Errorf("valve relay returned status %d", resp.StatusCode())
		}
		return r.cachedStatus(), fmt.Errorf("valve relay unreachable: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.State = state
	r.status.Reachable = true
	r.status.CheckedAt = time.Now()

	log.Printf("🔧 Valve: Switched %s", state)
	return r.status, nil
}

func (r *Relay) cachedStatus() models.ValveStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}
