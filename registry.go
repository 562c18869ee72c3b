package rtnl

import (
	"errors"
	"fmt"
	"sync"
)

// An Object is a decoded message payload: a fixed-layout header followed by
// attributes decoded into a typed object.
type Object[H, A any] struct {
	Header     H
	Attributes A
}

// A Kind describes how to decode and encode the payload of one kind of
// message, such as a link or an address.
//
// Attributes may be nil for kinds which carry only a fixed header.
type Kind[H, A any] struct {
	Header     HeaderCodec[H]
	Attributes *Schema[A]
}

// Decode splits data at the header boundary, decodes the header and then
// the attributes.  It fails with a *ShortMessageError when data is shorter
// than the header.
func (k Kind[H, A]) Decode(data []byte) (Object[H, A], error) {
	var o Object[H, A]

	hl := k.Header.Len
	if len(data) < hl {
		return o, &ShortMessageError{Kind: k.Header.Name, Want: hl, Got: len(data)}
	}

	h, err := k.Header.Parse(data[:hl])
	if err != nil {
		return o, err
	}
	o.Header = h

	if k.Attributes == nil {
		return o, nil
	}

	// Attributes start at the next aligned offset after the header.
	a, err := DecodeObject(data[min(nlmsgAlign(hl), len(data)):], k.Attributes)
	if err != nil {
		return Object[H, A]{}, err
	}
	o.Attributes = a

	return o, nil
}

// Encode concatenates the encoded header and attributes of o.
func (k Kind[H, A]) Encode(o *Object[H, A]) ([]byte, error) {
	hb, err := k.Header.Format(&o.Header, nil)
	if err != nil {
		return nil, err
	}
	if k.Attributes == nil {
		return hb, nil
	}

	ab, err := EncodeObject(&o.Attributes, k.Attributes)
	if err != nil {
		return nil, err
	}

	b := make([]byte, nlmsgAlign(len(hb)), nlmsgAlign(len(hb))+len(ab))
	copy(b, hb)
	return append(b, ab...), nil
}

func (k Kind[H, A]) name() string { return k.Header.Name }

func (k Kind[H, A]) headerLen() int { return k.Header.Len }

func (k Kind[H, A]) decode(b []byte) (any, error) { return k.Decode(b) }

func (k Kind[H, A]) encode(v any) ([]byte, error) {
	switch o := v.(type) {
	case Object[H, A]:
		return k.Encode(&o)
	case *Object[H, A]:
		return k.Encode(o)
	default:
		return nil, fmt.Errorf("rtnl: %s: cannot encode %T", k.Header.Name, v)
	}
}

// A codec is a type-erased Kind stored in a Registry.
type codec interface {
	name() string
	headerLen() int
	decode(b []byte) (any, error)
	encode(v any) ([]byte, error)
}

var (
	errNilCodec      = errors.New("kind has no header codec")
	errDuplicateType = errors.New("message type already registered")
)

// A Registry maps numeric message types to the Kind which decodes them.
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[HeaderType]codec
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[HeaderType]codec)}
}

// Register adds kind to r for each of types.  It fails without modifying r
// if kind is incomplete or any of types is already registered.
func Register[H, A any](r *Registry, kind Kind[H, A], types ...HeaderType) error {
	if kind.Header.Read == nil || kind.Header.Write == nil || kind.Header.Len < 0 {
		return fmt.Errorf("rtnl: register %q: %w", kind.Header.Name, errNilCodec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[HeaderType]bool, len(types))
	for _, t := range types {
		if c, ok := r.kinds[t]; ok {
			return fmt.Errorf("rtnl: register %q: type %d used by %q: %w",
				kind.Header.Name, t, c.name(), errDuplicateType)
		}
		if seen[t] {
			return fmt.Errorf("rtnl: register %q: type %d listed twice: %w",
				kind.Header.Name, t, errDuplicateType)
		}
		seen[t] = true
	}

	for _, t := range types {
		r.kinds[t] = kind
	}

	return nil
}

// MustRegister is like Register but panics on error.  It is intended for
// package-level registries built during initialization.
func MustRegister[H, A any](r *Registry, kind Kind[H, A], types ...HeaderType) {
	if err := Register(r, kind, types...); err != nil {
		panic(err)
	}
}

// lookup returns the codec for t.
func (r *Registry) lookup(t HeaderType) (codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.kinds[t]
	if !ok {
		return nil, &UnsupportedMessageTypeError{Type: t}
	}

	return c, nil
}

// Supports reports whether a Kind is registered for t.
func (r *Registry) Supports(t HeaderType) bool {
	_, err := r.lookup(t)
	return err == nil
}

// Decode decodes the payload of m with the Kind registered for its type.
// The result is an Object[H, A] of that Kind.
func (r *Registry) Decode(m Message) (any, error) {
	c, err := r.lookup(m.Header.Type)
	if err != nil {
		return nil, err
	}

	return c.decode(m.Data)
}

// Encode encodes v, an Object[H, A] or *Object[H, A], with the Kind
// registered for t.
func (r *Registry) Encode(t HeaderType, v any) ([]byte, error) {
	c, err := r.lookup(t)
	if err != nil {
		return nil, err
	}

	return c.encode(v)
}
