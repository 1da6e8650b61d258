package teleop

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// MessageRateChannel is the wire key carrying the sender's claimed rate in Hz.
const MessageRateChannel = "message_rate"

// Role names a channel's effect on the motion command.
type Role string

const (
	RoleGaitToggle     Role = "gait_toggle"
	RoleHopToggle      Role = "hop_toggle"
	RoleActivateToggle Role = "activate_toggle"
	RoleForward        Role = "forward"
	RoleLateral        Role = "lateral"
	RoleYaw            Role = "yaw"
	RolePitch          Role = "pitch"
	RoleHeight         Role = "height"
	RoleRoll           Role = "roll"
)

// AxisMapping binds a continuous role to an input channel. Invert negates the
// raw value before the role's own sign convention is applied.
//
// In YAML it accepts either a bare channel name or {channel, invert}.
type AxisMapping struct {
	Channel string `yaml:"channel" json:"channel"`
	Invert  bool   `yaml:"invert,omitempty" json:"invert,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *AxisMapping) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		m.Channel = value.Value
		m.Invert = false
		return nil
	}
	// An omitted channel keeps the current binding.
	type plain AxisMapping
	p := plain(*m)
	if err := value.Decode(&p); err != nil {
		return err
	}
	*m = AxisMapping(p)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m AxisMapping) MarshalYAML() (interface{}, error) {
	if !m.Invert {
		return m.Channel, nil
	}
	type plain AxisMapping
	return plain(m), nil
}

func (m AxisMapping) apply(raw float64) float64 {
	if m.Invert {
		return -raw
	}
	return raw
}

// ChannelTable assigns input channels to command roles. A channel may serve
// more than one axis role; SharedChannels reports where that happens.
type ChannelTable struct {
	GaitToggle     string `yaml:"gait_toggle" json:"gait_toggle"`
	HopToggle      string `yaml:"hop_toggle" json:"hop_toggle"`
	ActivateToggle string `yaml:"activate_toggle" json:"activate_toggle"`

	Forward AxisMapping `yaml:"forward" json:"forward"`
	Lateral AxisMapping `yaml:"lateral" json:"lateral"`
	Yaw     AxisMapping `yaml:"yaw" json:"yaw"`
	Pitch   AxisMapping `yaml:"pitch" json:"pitch"`
	Height  AxisMapping `yaml:"height" json:"height"`
	Roll    AxisMapping `yaml:"roll" json:"roll"`
}

// DefaultChannelTable returns the keyboard mapping of the reference operator
// client. Yaw and height both read R there; that coupling is kept as the
// default and surfaced through SharedChannels.
func DefaultChannelTable() ChannelTable {
	return ChannelTable{
		GaitToggle:     "B",
		HopToggle:      "X",
		ActivateToggle: "V",
		Forward:        AxisMapping{Channel: "W"},
		Lateral:        AxisMapping{Channel: "E"},
		Yaw:            AxisMapping{Channel: "R"},
		Pitch:          AxisMapping{Channel: "T"},
		Height:         AxisMapping{Channel: "R"},
		Roll:           AxisMapping{Channel: "U"},
	}
}

type toggleBinding struct {
	role    Role
	channel string
}

type axisBinding struct {
	role    Role
	mapping AxisMapping
}

func (t ChannelTable) toggles() []toggleBinding {
	return []toggleBinding{
		{RoleGaitToggle, t.GaitToggle},
		{RoleHopToggle, t.HopToggle},
		{RoleActivateToggle, t.ActivateToggle},
	}
}

func (t ChannelTable) axes() []axisBinding {
	return []axisBinding{
		{RoleForward, t.Forward},
		{RoleLateral, t.Lateral},
		{RoleYaw, t.Yaw},
		{RolePitch, t.Pitch},
		{RoleHeight, t.Height},
		{RoleRoll, t.Roll},
	}
}

// SharedChannels returns every channel bound to more than one role, with the
// roles sorted by name.
func (t ChannelTable) SharedChannels() map[string][]Role {
	byChannel := make(map[string][]Role)
	for _, b := range t.toggles() {
		byChannel[b.channel] = append(byChannel[b.channel], b.role)
	}
	for _, b := range t.axes() {
		byChannel[b.mapping.Channel] = append(byChannel[b.mapping.Channel], b.role)
	}

	shared := make(map[string][]Role)
	for channel, roles := range byChannel {
		if len(roles) < 2 {
			continue
		}
		sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
		shared[channel] = roles
	}
	return shared
}

// Channels returns the sorted set of channel names a sample must carry.
func (t ChannelTable) Channels() []string {
	seen := make(map[string]struct{})
	for _, b := range t.toggles() {
		seen[b.channel] = struct{}{}
	}
	for _, b := range t.axes() {
		seen[b.mapping.Channel] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every role is bound and that no channel is used both as
// a toggle and as an axis, since the two kinds have different value domains.
func (t ChannelTable) Validate() error {
	toggleChannels := make(map[string]Role)
	for _, b := range t.toggles() {
		if b.channel == "" {
			return configErrorf("channels.%s is not set", b.role)
		}
		if b.channel == MessageRateChannel {
			return configErrorf("channels.%s cannot use reserved channel %q", b.role, MessageRateChannel)
		}
		if other, dup := toggleChannels[b.channel]; dup {
			return configErrorf("channels.%s and channels.%s both use toggle channel %q", other, b.role, b.channel)
		}
		toggleChannels[b.channel] = b.role
	}

	for _, b := range t.axes() {
		if b.mapping.Channel == "" {
			return configErrorf("channels.%s is not set", b.role)
		}
		if b.mapping.Channel == MessageRateChannel {
			return configErrorf("channels.%s cannot use reserved channel %q", b.role, MessageRateChannel)
		}
		if toggle, clash := toggleChannels[b.mapping.Channel]; clash {
			return configErrorf("channel %q is bound to toggle %s and axis %s", b.mapping.Channel, toggle, b.role)
		}
	}
	return nil
}
