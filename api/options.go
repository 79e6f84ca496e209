// File: api/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Named, cloneable transport options and the snapshot used to copy one
// instance's configuration onto a new instance.

package api

import (
	"fmt"
	"strconv"
)

// Option names understood across layers.
const (
	OptionTrustedCerts = "TrustedCerts"
	OptionProxyAddress = "proxy_address"
	OptionProxyPort    = "proxy_port"
	OptionHTTPProxy    = "proxy_data"
)

// HTTPProxyOptions is the structured HTTP proxy option.
type HTTPProxyOptions struct {
	HostAddress string
	Port        int
	Username    string
	Password    string
}

// Validate rejects a missing host and a username without a password.
func (p HTTPProxyOptions) Validate() error {
	if p.HostAddress == "" {
		return NewError(ErrCodeInvalidArgument, "http proxy: host address is required")
	}
	if p.Username != "" && p.Password == "" {
		return NewError(ErrCodeInvalidArgument, "http proxy: username given without password")
	}
	return nil
}

// Address composes "user:pass@host:port" or "host:port".
func (p HTTPProxyOptions) Address() string {
	hp := p.HostAddress + ":" + strconv.Itoa(p.Port)
	if p.Username != "" {
		return p.Username + ":" + p.Password + "@" + hp
	}
	return hp
}

// OptionSetter is the write side of the option contract.
type OptionSetter interface {
	SetOption(name string, value any) error
}

// OptionCloner deep-copies one option value. It returns ErrInvalidArgument
// for names the owning layer does not handle.
type OptionCloner func(name string, value any) (any, error)

type option struct {
	name  string
	value any
}

// OptionSet is an ordered snapshot of cloned option values.
type OptionSet struct {
	clone   OptionCloner
	entries []option
}

// NewOptionSet creates an empty snapshot that clones through clone.
// A nil clone uses CloneOptionValue.
func NewOptionSet(clone OptionCloner) *OptionSet {
	if clone == nil {
		clone = CloneOptionValue
	}
	return &OptionSet{clone: clone}
}

// Add clones value and stores it under name, replacing a previous entry.
func (s *OptionSet) Add(name string, value any) error {
	if name == "" || value == nil {
		return NewError(ErrCodeInvalidArgument, "option name and value are required")
	}
	v, err := s.clone(name, value)
	if err != nil {
		return fmt.Errorf("clone option %q: %w", name, err)
	}
	for i := range s.entries {
		if s.entries[i].name == name {
			s.entries[i].value = v
			return nil
		}
	}
	s.entries = append(s.entries, option{name: name, value: v})
	return nil
}

// Get returns the stored clone for name.
func (s *OptionSet) Get(name string) (any, bool) {
	for _, e := range s.entries {
		if e.name == name {
			return e.value, true
		}
	}
	return nil, false
}

// Names lists option names in insertion order.
func (s *OptionSet) Names() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.name)
	}
	return out
}

// Len returns the number of stored options.
func (s *OptionSet) Len() int {
	return len(s.entries)
}

// FeedTo applies every stored option to target in insertion order.
func (s *OptionSet) FeedTo(target OptionSetter) error {
	if target == nil {
		return NewError(ErrCodeInvalidArgument, "nil option target")
	}
	for _, e := range s.entries {
		if err := target.SetOption(e.name, e.value); err != nil {
			return fmt.Errorf("apply option %q: %w", e.name, err)
		}
	}
	return nil
}

// Destroy drops every stored clone. The set is empty afterwards.
func (s *OptionSet) Destroy() {
	for i := range s.entries {
		s.entries[i].value = nil
	}
	s.entries = nil
}

// CloneOptionValue deep-copies the value kinds used by the built-in options.
func CloneOptionValue(name string, value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return v, nil
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	case HTTPProxyOptions:
		return v, nil
	case *HTTPProxyOptions:
		if v == nil {
			return nil, NewError(ErrCodeInvalidArgument, "nil proxy options")
		}
		return *v, nil
	default:
		return nil, NewError(ErrCodeInvalidArgument, "unsupported option value").
			WithContext("name", name).
			WithContext("type", fmt.Sprintf("%T", value))
	}
}
