package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/interlock-panel/internal/interlock"
	"github.com/sweeney/interlock-panel/internal/logic"
	"github.com/sweeney/interlock-panel/internal/menu"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Menu          MenuJSON     `json:"menu"`
	Lines         []LineJSON   `json:"lines"`
	Aux           AuxJSON      `json:"aux"`
	Watchdog      WatchdogJSON `json:"watchdog"`
	Counts        CountsJSON   `json:"event_counts"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// MenuJSON is the navigator position.
type MenuJSON struct {
	Mode      string `json:"mode"`
	Tab       string `json:"tab"`
	Selection int    `json:"selection"`
	EditCycle string `json:"edit_cycle,omitempty"`
}

// LineJSON is one interlock row.
type LineJSON struct {
	Index        int    `json:"index"`
	Label        string `json:"label"`
	Mode         string `json:"mode"`
	SensedActive bool   `json:"sensed_active"`
	Colour       string `json:"colour"`
	Simulated    bool   `json:"simulated"`
	Error        string `json:"error,omitempty"`
}

// AuxJSON is the auxiliary settings block.
type AuxJSON struct {
	LCDBrightness    uint8 `json:"lcd_brightness"`
	AutoResetEnabled bool  `json:"auto_reset_enabled"`
	AutoResetDelayMs int64 `json:"auto_reset_delay_ms"`
	Editing          bool  `json:"editing"`
}

// WatchdogJSON is the auto-reset timer.
type WatchdogJSON struct {
	Pending         bool   `json:"pending"`
	FaultObservedAt string `json:"fault_observed_at,omitempty"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ManualPulses int `json:"manual_pulses"`
	AutoPulses   int `json:"auto_pulses"`
	Commits      int `json:"commits"`
	FaultsArmed  int `json:"faults_armed"`
	Erases       int `json:"erases"`
	BusErrors    int `json:"bus_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	DebounceTicks int    `json:"debounce_ticks"`
	LongMs        int64  `json:"long_ms"`
	DoubleMs      int64  `json:"double_ms"`
	ResetPulseMs  int64  `json:"reset_pulse_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	Headless      bool   `json:"headless"`
}

func buildMenu(st menu.State) MenuJSON {
	m := MenuJSON{
		Mode:      string(st.Mode()),
		Tab:       st.Location.Tab.String(),
		Selection: st.Location.Index,
	}
	if st.Edit.Active {
		m.EditCycle = st.Edit.Cycle.String()
	}
	return m
}

func buildLines(lines [interlock.LineCount]interlock.LineStatus) []LineJSON {
	out := make([]LineJSON, 0, len(lines))
	for i, l := range lines {
		j := LineJSON{
			Index:        i,
			Label:        l.Line.Label,
			Mode:         l.Mode.String(),
			SensedActive: l.SensedActive,
			Colour:       string(l.Indicator.Tone),
			Simulated:    l.Indicator.Ring,
		}
		if l.Err != nil {
			j.Error = l.Err.Error()
		}
		out = append(out, j)
	}
	return out
}

func buildAux(a logic.AuxSettings) AuxJSON {
	return AuxJSON{
		LCDBrightness:    a.LCDBrightness,
		AutoResetEnabled: a.AutoResetEnabled,
		AutoResetDelayMs: a.AutoResetDelay.Milliseconds(),
		Editing:          a.EditMode != logic.AuxEditNone,
	}
}

func buildInner(snap Snapshot) StatusInner {
	r := snap.Panel
	inner := StatusInner{
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			ManualPulses: r.Counts.ManualPulses,
			AutoPulses:   r.Counts.AutoPulses,
			Commits:      r.Counts.Commits,
			FaultsArmed:  r.Counts.FaultsArmed,
			Erases:       r.Counts.Erases,
			BusErrors:    r.Counts.BusErrors,
		},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			DebounceTicks: snap.Config.DebounceTicks,
			LongMs:        snap.Config.LongMs,
			DoubleMs:      snap.Config.DoubleMs,
			ResetPulseMs:  snap.Config.ResetPulseMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			Headless:      snap.Config.Headless,
		},
	}
	if !snap.Ready {
		inner.Lines = []LineJSON{}
		return inner
	}
	inner.Menu = buildMenu(r.Menu)
	inner.Lines = buildLines(r.Lines)
	inner.Aux = buildAux(r.Menu.Aux)
	inner.Watchdog = WatchdogJSON{Pending: r.Watchdog.Pending}
	if r.Watchdog.Pending {
		inner.Watchdog.FaultObservedAt = r.Watchdog.FaultObservedAt.UTC().Format(time.RFC3339Nano)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
