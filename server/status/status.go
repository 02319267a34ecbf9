// Package status holds the value objects produced by a readiness run.
package status

import (
	"encoding/json"
	"time"
)

// ServerType tags a status with the role it was probed for.
type ServerType string

const (
	ServerTypeFrontend ServerType = "frontend"
	ServerTypeBackend  ServerType = "backend"
	ServerTypeUnknown  ServerType = "unknown"
)

// ServerStatus is the result of probing one port.
//
// Accessible implies Running. When Running is false, Accessible is false and
// ResponseTime is nil.
type ServerStatus struct {
	Port       int
	Running    bool
	Accessible bool
	// ResponseTime is set whenever an HTTP probe was attempted.
	ResponseTime *time.Duration
	Error        string
	ServerType   ServerType
}

// NotRunning returns the status of a port nothing listens on.
func NotRunning(port int, errMsg string) ServerStatus {
	return ServerStatus{
		Port:  port,
		Error: errMsg,
	}
}

// WithType returns a copy of s tagged with t.
func (s ServerStatus) WithType(t ServerType) ServerStatus {
	s.ServerType = t
	return s
}

type serverStatusJSON struct {
	Port           int        `json:"port"`
	Running        bool       `json:"running"`
	Accessible     bool       `json:"accessible"`
	ResponseTimeMs *float64   `json:"responseTimeMs,omitempty"`
	Error          string     `json:"error,omitempty"`
	ServerType     ServerType `json:"serverType,omitempty"`
}

func (s ServerStatus) MarshalJSON() ([]byte, error) {
	out := serverStatusJSON{
		Port:       s.Port,
		Running:    s.Running,
		Accessible: s.Accessible,
		Error:      s.Error,
		ServerType: s.ServerType,
	}
	if s.ResponseTime != nil {
		ms := float64(*s.ResponseTime) / float64(time.Millisecond)
		out.ResponseTimeMs = &ms
	}
	return json.Marshal(out)
}

// SystemStatus pairs the frontend scan with the backend check.
// Frontend is nil when no accessible frontend was found in the range.
type SystemStatus struct {
	Frontend *ServerStatus `json:"frontend"`
	Backend  ServerStatus  `json:"backend"`
}

// SystemReadiness is the aggregated verdict consumed by test setup.
type SystemReadiness struct {
	Frontend *ServerStatus `json:"frontend"`
	Backend  ServerStatus  `json:"backend"`
	Ready    bool          `json:"ready"`
	// Errors has one entry per unmet condition, backend first.
	Errors []string `json:"errors"`
}
