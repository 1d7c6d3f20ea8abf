package chunk

import (
	"context"
	"errors"
	"fmt"
)

// Organization maps an address to a backend storage key.
type Organization interface {
	Key(addr Address) (string, error)
}

// Retrieval moves bytes to and from backend storage keys.
//
// Get and GetRange return nil, not an error, when the key is absent.
type Retrieval interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetRange(ctx context.Context, key string, off, length int64) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
	Stat(ctx context.Context, key string) (int64, error)
	Open(ctx context.Context, key string) (Handle, error)
}

// Existence is an optional fast existence probe. When a backend does
// not provide one, existence falls back to Retrieval.Stat.
type Existence interface {
	Has(ctx context.Context, key string) (bool, error)
}

// Composed assembles a Store from an Organization, a Retrieval, and an
// optional Existence probe.
type Composed struct {
	org   Organization
	ret   Retrieval
	exist Existence
}

var _ Store = (*Composed)(nil)

// ComposedOption configures a Composed store.
type ComposedOption func(*Composed)

// WithExistence supplies a fast existence probe.
func WithExistence(e Existence) ComposedOption {
	return func(c *Composed) {
		c.exist = e
	}
}

// NewComposed builds a Store from its parts.
func NewComposed(org Organization, ret Retrieval, opts ...ComposedOption) *Composed {
	c := &Composed{org: org, ret: ret}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Write implements Store. An already-present digest is a no-op success.
func (c *Composed) Write(ctx context.Context, data []byte, addr Address) (Address, error) {
	if err := addr.Validate(); err != nil {
		return Address{}, err
	}
	key, err := c.org.Key(addr)
	if err != nil {
		return Address{}, err
	}
	ok, err := c.has(ctx, key)
	if err != nil {
		return Address{}, err
	}
	if ok {
		return addr, nil
	}
	if err := c.ret.Put(ctx, key, data); err != nil {
		return Address{}, fmt.Errorf("write %s: %w", addr.ID, err)
	}
	return addr, nil
}

// Read implements Store.
func (c *Composed) Read(ctx context.Context, addr Address) ([]byte, error) {
	key, err := c.org.Key(addr)
	if err != nil {
		return nil, err
	}
	return c.ret.Get(ctx, key)
}

// ReadRange implements Store.
func (c *Composed) ReadRange(ctx context.Context, addr Address, off, length int64) ([]byte, error) {
	key, err := c.org.Key(addr)
	if err != nil {
		return nil, err
	}
	return c.ret.GetRange(ctx, key, off, length)
}

// Update implements Store.
func (c *Composed) Update(ctx context.Context, data []byte, addr Address) error {
	key, err := c.org.Key(addr)
	if err != nil {
		return err
	}
	ok, err := c.has(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("update %s: %w", addr.ID, ErrNotFound)
	}
	return c.ret.Put(ctx, key, data)
}

// Delete implements Store.
func (c *Composed) Delete(ctx context.Context, addr Address) error {
	key, err := c.org.Key(addr)
	if err != nil {
		return err
	}
	ok, err := c.has(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete %s: %w", addr.ID, ErrNotFound)
	}
	return c.ret.Remove(ctx, key)
}

// Exists implements Store, preferring the Existence probe when present.
func (c *Composed) Exists(ctx context.Context, addr Address) (bool, error) {
	key, err := c.org.Key(addr)
	if err != nil {
		return false, err
	}
	return c.has(ctx, key)
}

// Size implements Store.
func (c *Composed) Size(ctx context.Context, addr Address) (int64, error) {
	key, err := c.org.Key(addr)
	if err != nil {
		return 0, err
	}
	return c.ret.Stat(ctx, key)
}

// OpenHandle implements Store.
func (c *Composed) OpenHandle(ctx context.Context, addr Address) (Handle, error) {
	key, err := c.org.Key(addr)
	if err != nil {
		return nil, err
	}
	return c.ret.Open(ctx, key)
}

func (c *Composed) has(ctx context.Context, key string) (bool, error) {
	if c.exist != nil {
		return c.exist.Has(ctx, key)
	}
	_, err := c.ret.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}
