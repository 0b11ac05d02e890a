package message

import "encoding/json"

// ServerInfo describes the gateway, as reported by a server_info
// response. The payload sits at the top level of the frame.
type ServerInfo struct {
	Name          string `json:"name"`
	Version       int64  `json:"version"`
	VersionString string `json:"version_string"`
	Author        string `json:"author"`

	// DataChannels reports whether the gateway was built with data
	// channel support.
	DataChannels bool `json:"data_channels"`

	// FullTrickle reports whether the gateway trickles its own
	// candidates instead of sending them inside the SDP.
	FullTrickle bool `json:"full-trickle"`

	LocalIP string `json:"local-ip"`
	IPv6    bool   `json:"ipv6"`

	// Plugins and Transports list the loaded gateway modules keyed
	// by package name.
	Plugins    map[string]PluginInfo `json:"plugins"`
	Transports map[string]PluginInfo `json:"transports"`
}

// PluginInfo describes a loaded gateway module.
type PluginInfo struct {
	Name          string `json:"name"`
	Author        string `json:"author"`
	Description   string `json:"description"`
	Version       int64  `json:"version"`
	VersionString string `json:"version_string"`
}

// ServerInfoFrom decodes the server_info payload from a raw frame.
func ServerInfoFrom(raw []byte) (*ServerInfo, error) {
	var info ServerInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
