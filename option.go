package sysconf

import (
	"fmt"
	"strings"
)

// OptionID identifies a logical option.
type OptionID string

// Option describes one user-editable setting bound to a store key.
type Option struct {
	ID          OptionID
	Key         string
	Kind        Kind
	Length      int
	Rule        string
	Label       string
	Description string
	// Derived, when set, names the secondary key written from this option's
	// value through the country code resolver. One hop only.
	Derived *Derived
}

// Derived describes a byte array key computed from a primary option.
type Derived struct {
	Key    string
	Length int
}

const (
	OptionScreenSaver          OptionID = "screensaver"
	OptionPAL60                OptionID = "pal60"
	OptionAspectRatio          OptionID = "aspect_ratio"
	OptionLanguage             OptionID = "language"
	OptionSensorBarPosition    OptionID = "sensor_bar_position"
	OptionSensorBarSensitivity OptionID = "sensor_bar_sensitivity"
	OptionSpeakerVolume        OptionID = "speaker_volume"
	OptionWiimoteMotor         OptionID = "wiimote_motor"
)

const (
	KeyScreenSaver          = "IPL.SSV"
	KeyPAL60                = "IPL.E60"
	KeyAspectRatio          = "IPL.AR"
	KeyLanguage             = "IPL.LNG"
	KeyCountryCode          = "IPL.SADR"
	KeySensorBarPosition    = "BT.BAR"
	KeySensorBarSensitivity = "BT.SENS"
	KeySpeakerVolume        = "BT.SPKV"
	KeyWiimoteMotor         = "BT.MOT"
)

// DefaultOptions returns the system settings exposed by the device settings
// pane, in display order.
func DefaultOptions() []Option {
	return []Option{
		{
			ID:          OptionScreenSaver,
			Key:         KeyScreenSaver,
			Kind:        KindBool,
			Label:       "Enable Screen Saver",
			Description: "Dims the screen after five minutes of inactivity.",
		},
		{
			ID:          OptionPAL60,
			Key:         KeyPAL60,
			Kind:        KindBool,
			Label:       "Use PAL60 Mode (EuRGB60)",
			Description: "Sets the display mode to 60Hz (480i) instead of 50Hz (576i) for PAL titles.",
		},
		{
			ID:    OptionAspectRatio,
			Key:   KeyAspectRatio,
			Kind:  KindU8,
			Rule:  "value <= 1",
			Label: "Aspect Ratio",
		},
		{
			ID:          OptionLanguage,
			Key:         KeyLanguage,
			Kind:        KindU8,
			Label:       "System Language",
			Description: "Sets the system language.",
			Derived:     &Derived{Key: KeyCountryCode, Length: 1},
		},
		{
			ID:    OptionSensorBarPosition,
			Key:   KeySensorBarPosition,
			Kind:  KindU8,
			Rule:  "value <= 1",
			Label: "Sensor Bar Position",
		},
		{
			ID:    OptionSensorBarSensitivity,
			Key:   KeySensorBarSensitivity,
			Kind:  KindU32,
			Rule:  "value <= 4",
			Label: "IR Sensitivity",
		},
		{
			ID:    OptionSpeakerVolume,
			Key:   KeySpeakerVolume,
			Kind:  KindU8,
			Rule:  "value <= 127",
			Label: "Speaker Volume",
		},
		{
			ID:    OptionWiimoteMotor,
			Key:   KeyWiimoteMotor,
			Kind:  KindBool,
			Label: "Wiimote Motor",
		},
	}
}

func (o Option) clone() Option {
	out := o
	if o.Derived != nil {
		d := *o.Derived
		out.Derived = &d
	}
	return out
}

func (o Option) validate() error {
	if strings.TrimSpace(string(o.ID)) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidOption)
	}
	if strings.TrimSpace(o.Key) == "" {
		return fmt.Errorf("%w: option %s: key is required", ErrInvalidOption, o.ID)
	}
	switch o.Kind {
	case KindBool, KindU8, KindU32:
	case KindBytes:
		if o.Length <= 0 {
			return fmt.Errorf("%w: option %s: bytes length must be positive", ErrInvalidOption, o.ID)
		}
	default:
		return fmt.Errorf("%w: option %s: unsupported kind %s", ErrInvalidOption, o.ID, o.Kind)
	}
	if o.Derived != nil {
		if o.Kind != KindU8 {
			return fmt.Errorf("%w: option %s: derived fields require a u8 language option", ErrInvalidOption, o.ID)
		}
		if strings.TrimSpace(o.Derived.Key) == "" || o.Derived.Length <= 0 {
			return fmt.Errorf("%w: option %s: derived key and length are required", ErrInvalidOption, o.ID)
		}
	}
	return nil
}

// validateOptions checks each descriptor plus the set-level constraints:
// unique ids, unique keys, and derived keys that are not option keys (which
// keeps derivation to a single hop with no cycles).
func validateOptions(options []Option) error {
	if len(options) == 0 {
		return fmt.Errorf("%w: at least one option is required", ErrInvalidOption)
	}
	ids := make(map[OptionID]struct{}, len(options))
	keys := make(map[string]OptionID, len(options))
	for _, opt := range options {
		if err := opt.validate(); err != nil {
			return err
		}
		if _, ok := ids[opt.ID]; ok {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidOption, opt.ID)
		}
		ids[opt.ID] = struct{}{}
		if other, ok := keys[opt.Key]; ok {
			return fmt.Errorf("%w: key %q bound by %s and %s", ErrInvalidOption, opt.Key, other, opt.ID)
		}
		keys[opt.Key] = opt.ID
	}
	derived := map[string]OptionID{}
	for _, opt := range options {
		if opt.Derived == nil {
			continue
		}
		if owner, ok := keys[opt.Derived.Key]; ok {
			return fmt.Errorf("%w: derived key %q of %s is bound by option %s", ErrInvalidOption, opt.Derived.Key, opt.ID, owner)
		}
		if other, ok := derived[opt.Derived.Key]; ok {
			return fmt.Errorf("%w: derived key %q written by %s and %s", ErrInvalidOption, opt.Derived.Key, other, opt.ID)
		}
		derived[opt.Derived.Key] = opt.ID
	}
	return nil
}
