package logic

import "time"

// AuxEditMode is the in-row edit mode of the Auxiliary tab.
type AuxEditMode uint8

const (
	AuxEditNone AuxEditMode = iota
	AuxEditByte
)

// Auto-reset delay bounds and encoder step.
const (
	MaxAutoResetDelay  = 1000 * time.Millisecond
	AutoResetDelayStep = 10 * time.Millisecond
)

// AuxSettings are the Auxiliary tab settings that survive a restart.
// EditMode is UI state and is never persisted.
type AuxSettings struct {
	LCDBrightness    uint8
	AutoResetEnabled bool
	AutoResetDelay   time.Duration
	EditMode         AuxEditMode
}

// DefaultAuxSettings returns the settings used when nothing valid is stored.
func DefaultAuxSettings() AuxSettings {
	return AuxSettings{
		LCDBrightness:    128,
		AutoResetEnabled: false,
		AutoResetDelay:   500 * time.Millisecond,
	}
}

// AdjustBrightness moves the brightness by delta, clamped to 0..255.
func (a *AuxSettings) AdjustBrightness(delta int) {
	v := int(a.LCDBrightness) + delta
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	a.LCDBrightness = uint8(v)
}

// AdjustDelay moves the auto-reset delay by delta encoder steps, clamped
// to 0..MaxAutoResetDelay.
func (a *AuxSettings) AdjustDelay(delta int) {
	a.AutoResetDelay = ClampDelay(a.AutoResetDelay + time.Duration(delta)*AutoResetDelayStep)
}

// ClampDelay bounds an auto-reset delay to 0..MaxAutoResetDelay.
func ClampDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxAutoResetDelay {
		return MaxAutoResetDelay
	}
	return d
}
