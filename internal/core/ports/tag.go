package ports

//go:generate mockgen -source=tag.go -destination=mocks/mock_tag.go -package=mocks

import "context"

// TagDevice is a byte pipe to the tag currently in the reader's field. The
// time bound of each call is the context deadline. WriteBytes must store the
// whole slice or fail; implementations report domain.ErrTagRemoved and
// domain.ErrTagTimeout (both wrap domain.ErrHardwareIO).
type TagDevice interface {
	ReadBytes(ctx context.Context) ([]byte, error)
	WriteBytes(ctx context.Context, data []byte) error
}

// KeyProvider supplies the device-held master secret.
type KeyProvider interface {
	MasterKey() ([]byte, error)
}
