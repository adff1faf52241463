// ABOUTME: Versioned codec registry mapping (sub-object type, tag) to encode/decode functions
// ABOUTME: Encoding always emits the newest tag; decoding is total over every shipped tag

package codec

import (
	"errors"
	"fmt"
	"sort"
)

// Tag names a sub-object variant together with its payload generation, for
// example "NEW_CHANNEL_V2". Tags are persisted next to their payloads and
// the tag space is append-only: a shipped tag is never removed.
type Tag string

// ErrUnrecognizedTag is returned when a tag has no registered decoder. It
// indicates corrupted data or a database written by a newer version.
var ErrUnrecognizedTag = errors.New("unrecognized encoding tag")

// ErrNotEncodable is returned when a value has no current encoding.
var ErrNotEncodable = errors.New("value has no current encoding")

// DecodeError reports which sub-object type and tag failed to decode.
type DecodeError struct {
	Type string
	Tag  Tag
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s %s: %v", e.Type, e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Codec handles one logical sub-object type.
type Codec[T any] struct {
	name     string
	encode   func(T) (Tag, []byte, error)
	decoders map[Tag]func([]byte) (T, error)
	current  map[Tag]bool
}

func newCodec[T any](name string, encode func(T) (Tag, []byte, error)) *Codec[T] {
	return &Codec[T]{
		name:     name,
		encode:   encode,
		decoders: make(map[Tag]func([]byte) (T, error)),
		current:  make(map[Tag]bool),
	}
}

// register adds a decoder. It is only called from package initialisation.
func (c *Codec[T]) register(tag Tag, current bool, decode func([]byte) (T, error)) *Codec[T] {
	if _, exists := c.decoders[tag]; exists {
		panic(fmt.Sprintf("codec %s: tag %s registered twice", c.name, tag))
	}
	c.decoders[tag] = decode
	if current {
		c.current[tag] = true
	}
	return c
}

// Name returns the sub-object type name used in errors.
func (c *Codec[T]) Name() string { return c.name }

// Encode serializes v using the newest tag for its variant.
func (c *Codec[T]) Encode(v T) (Tag, []byte, error) {
	if c.encode == nil {
		return "", nil, fmt.Errorf("encoding %s: %w", c.name, ErrNotEncodable)
	}
	tag, payload, err := c.encode(v)
	if err != nil {
		return "", nil, fmt.Errorf("encoding %s: %w", c.name, err)
	}
	return tag, payload, nil
}

// Decode dispatches on tag and upgrades older payload shapes to the current
// in-memory representation.
func (c *Codec[T]) Decode(tag Tag, payload []byte) (T, error) {
	decode, ok := c.decoders[tag]
	if !ok {
		var zero T
		return zero, &DecodeError{Type: c.name, Tag: tag, Err: ErrUnrecognizedTag}
	}
	v, err := decode(payload)
	if err != nil {
		var zero T
		return zero, &DecodeError{Type: c.name, Tag: tag, Err: err}
	}
	return v, nil
}

// Tags lists every registered tag in lexical order.
func (c *Codec[T]) Tags() []Tag {
	tags := make([]Tag, 0, len(c.decoders))
	for tag := range c.decoders {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// IsCurrent reports whether tag is emitted by Encode.
func (c *Codec[T]) IsCurrent(tag Tag) bool {
	return c.current[tag]
}

// IsLegacy reports whether tag is decode-only.
func (c *Codec[T]) IsLegacy(tag Tag) bool {
	_, ok := c.decoders[tag]
	return ok && !c.current[tag]
}
