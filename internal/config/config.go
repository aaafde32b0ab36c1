// Package config loads button bindings from the plugin's JSON settings file
// and watches it for changes. Malformed values never reach the core: the
// affected trigger or channel is disabled and the problem is reported.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/sweeney/radio-buttons/internal/binding"
	"github.com/sweeney/radio-buttons/internal/logic"
)

const (
	KeyExpanderEnabled = "pcf8575_enabled"
	KeyExpanderAddr    = "pcf8575_addr"

	// DefaultAddress is the PCF8575 address with A0..A2 tied low.
	DefaultAddress uint16 = 0x20

	minAddress = 0x03
	maxAddress = 0x77
)

// EnabledKey returns the enable flag key for action, e.g. "shutdown.enabled".
func EnabledKey(action logic.ActionName) string {
	return string(action) + ".enabled"
}

// PinKey returns the pin key for action, e.g. "shutdown.pin".
func PinKey(action logic.ActionName) string {
	return string(action) + ".pin"
}

// ButtonKey returns the station key for button i, e.g. "button3_station".
func ButtonKey(i logic.ButtonIndex) string {
	return fmt.Sprintf("button%d_station", i)
}

// Error is a malformed or out-of-range setting.
type Error struct {
	Key    string
	Value  interface{}
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s=%v: %s", e.Key, e.Value, e.Reason)
}

// Loader reads bindings from a settings file.
type Loader struct {
	path string
}

// NewLoader creates a Loader for the JSON file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the settings file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the settings file. An unreadable file is an error and yields
// empty (all disabled) bindings. Invalid individual settings are logged and
// disable only what they configure.
func (l *Loader) Load() (binding.Bindings, error) {
	v := viper.New()
	v.SetConfigFile(l.path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return binding.Bindings{}, fmt.Errorf("read config %s: %w", l.path, err)
	}

	b, err := Parse(v)
	if err != nil {
		log.Printf("config: %v", err)
	}
	return b, nil
}

// ParseJSON parses settings from raw JSON.
func ParseJSON(data []byte) (binding.Bindings, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return binding.Bindings{}, fmt.Errorf("parse config: %w", err)
	}
	return Parse(v)
}

// Parse builds bindings from v. The returned bindings are always usable;
// the error joins every *Error found along the way.
func Parse(v *viper.Viper) (binding.Bindings, error) {
	var b binding.Bindings
	var errs []error

	for _, action := range logic.Actions {
		t, err := parseTrigger(v, action)
		if err != nil {
			errs = append(errs, err)
		}
		b.Triggers = append(b.Triggers, t)
	}

	e, err := parseExpander(v)
	errs = append(errs, err...)
	b.Expander = e

	return b, errors.Join(errs...)
}

func parseTrigger(v *viper.Viper, action logic.ActionName) (binding.TriggerBinding, error) {
	t := binding.TriggerBinding{Action: action}

	enabled, err := parseBool(v, EnabledKey(action))
	if err != nil || !enabled {
		return t, err
	}

	raw, ok := value(v, PinKey(action))
	if !ok {
		return t, &Error{Key: PinKey(action), Reason: "missing"}
	}
	pin, err := parsePin(raw)
	if err != nil || pin < 0 {
		return t, &Error{Key: PinKey(action), Value: raw, Reason: "not a valid line number"}
	}

	t.Enabled = true
	t.Pin = pin
	return t, nil
}

// parsePin reads a line number. Strings are always decimal, so "010" is
// line 10 rather than an octal 8.
func parsePin(raw interface{}) (int, error) {
	if s, ok := raw.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	return cast.ToIntE(raw)
}

func parseExpander(v *viper.Viper) (binding.ExpanderBinding, []error) {
	var errs []error
	e := binding.ExpanderBinding{
		Address: DefaultAddress,
		Targets: make(map[logic.ButtonIndex]string),
	}

	for i := logic.ButtonIndex(1); i <= logic.MaxButtons; i++ {
		raw, ok := value(v, ButtonKey(i))
		if !ok {
			continue
		}
		uri, err := cast.ToStringE(raw)
		if err != nil {
			errs = append(errs, &Error{Key: ButtonKey(i), Value: raw, Reason: "not a string"})
			continue
		}
		if uri = strings.TrimSpace(uri); uri != "" {
			e.Targets[i] = uri
		}
	}

	enabled, err := parseBool(v, KeyExpanderEnabled)
	if err != nil {
		errs = append(errs, err)
	}
	if !enabled {
		return e, errs
	}

	if raw, ok := value(v, KeyExpanderAddr); ok {
		addr, err := ParseAddress(raw)
		if err != nil {
			return e, append(errs, err)
		}
		e.Address = addr
	}
	e.Enabled = true
	return e, errs
}

// ParseAddress parses a 7-bit bus address written in hex, with or without
// a 0x prefix ("0x20", "20"). Numbers are read as their hex digits.
func ParseAddress(raw interface{}) (uint16, error) {
	s, err := cast.ToStringE(raw)
	if err != nil {
		return 0, &Error{Key: KeyExpanderAddr, Value: raw, Reason: "not a hex string"}
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")

	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, &Error{Key: KeyExpanderAddr, Value: raw, Reason: "not a hex number"}
	}
	if n < minAddress || n > maxAddress {
		return 0, &Error{Key: KeyExpanderAddr, Value: raw, Reason: "outside 7-bit address range 0x03..0x77"}
	}
	return uint16(n), nil
}

// parseBool accepts booleans and the strings "true"/"false". A missing key is false.
func parseBool(v *viper.Viper, key string) (bool, error) {
	raw, ok := value(v, key)
	if !ok {
		return false, nil
	}
	switch b := raw.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, nil
		case "false", "":
			return false, nil
		}
	}
	return false, &Error{Key: key, Value: raw, Reason: "not a boolean"}
}

// value returns the setting at key, unwrapping the legacy
// {"type": ..., "value": ...} form.
func value(v *viper.Viper, key string) (interface{}, bool) {
	if !v.IsSet(key) {
		return nil, false
	}
	raw := v.Get(key)
	if m, ok := raw.(map[string]interface{}); ok {
		inner, ok := m["value"]
		if !ok {
			return nil, false
		}
		raw = inner
	}
	if raw == nil {
		return nil, false
	}
	return raw, true
}
