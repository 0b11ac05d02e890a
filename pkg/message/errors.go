package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message errors.
var (
	// ErrUnknownKind is returned when encoding a kind with no wire name.
	ErrUnknownKind = errors.New("message: unknown kind")
)

// ErrorData is the error block carried by gateway error responses.
type ErrorData struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// PluginError reports an application-level error found in a plugin
// payload. Plugins signal failure inside an otherwise successful
// response, either as {"error_code": N, "error": "reason"} or with a
// nested error object.
type PluginError struct {
	// Plugin is the reporting plugin, when known.
	Plugin string

	// Code is the plugin-specific error code, 0 if absent.
	Code int

	// Reason is the human-readable error description.
	Reason string

	// Data is the full payload the error was extracted from.
	Data json.RawMessage
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	if e.Plugin != "" {
		return fmt.Sprintf("message: plugin %s error %d (%s)", e.Plugin, e.Code, e.Reason)
	}
	return fmt.Sprintf("message: plugin error %d (%s)", e.Code, e.Reason)
}

// PluginErrorFrom inspects a plugin payload for an embedded error.
// It returns nil if the payload carries no top-level "error" or
// "error_code" key.
func PluginErrorFrom(plugin string, data json.RawMessage) *PluginError {
	var probe struct {
		Error     json.RawMessage `json:"error"`
		ErrorCode int             `json:"error_code"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil
	}
	if probe.Error == nil && probe.ErrorCode == 0 {
		return nil
	}

	pe := &PluginError{
		Plugin: plugin,
		Code:   probe.ErrorCode,
		Data:   data,
	}
	if probe.Error != nil {
		var reason string
		if json.Unmarshal(probe.Error, &reason) == nil {
			pe.Reason = reason
		} else {
			var block ErrorData
			if json.Unmarshal(probe.Error, &block) == nil {
				if pe.Code == 0 {
					pe.Code = block.Code
				}
				pe.Reason = block.Reason
			}
		}
	}
	return pe
}
