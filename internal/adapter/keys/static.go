// Package keys supplies the device-held master secret to the integrity guard.
package keys

import (
	"errors"
)

// Static holds a master key loaded once from configuration.
type Static struct {
	key []byte
}

// NewStatic copies key. An empty key is refused.
func NewStatic(key []byte) (*Static, error) {
	if len(key) == 0 {
		return nil, errors.New("master key is empty")
	}
	return &Static{key: append([]byte(nil), key...)}, nil
}

// MasterKey implements ports.KeyProvider. The caller gets its own copy.
func (s *Static) MasterKey() ([]byte, error) {
	return append([]byte(nil), s.key...), nil
}
