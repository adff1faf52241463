// ABOUTME: Outgoing payment status and part status codecs
// ABOUTME: Pending is never encoded; completion times live in their own columns

package codec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/2389/lnledger/internal/codec/legacy"
	"github.com/2389/lnledger/internal/payments"
)

const (
	TagSucceededOffchainV0 Tag = "SUCCEEDED_OFFCHAIN_V0"
	TagFailedV0            Tag = "FAILED_V0"

	TagSucceededV1 Tag = "SUCCEEDED_V1"
	TagFailedV1    Tag = "FAILED_V1"

	TagPartSucceededV0 Tag = "PART_SUCCEEDED_V0"
	TagPartFailedV0    Tag = "PART_FAILED_V0"

	TagPartSucceededV1 Tag = "PART_SUCCEEDED_V1"
	TagPartFailedV1    Tag = "PART_FAILED_V1"
)

// OutgoingStatuses encodes the terminal status of a Lightning payment.
var OutgoingStatuses = newCodec("outgoing status", encodeStatus).
	register(TagSucceededOffchainV0, false, legacy.DecodeSucceededStatusV0).
	register(TagFailedV0, false, legacy.DecodeFailedStatusV0).
	register(TagSucceededV1, true, decodeSucceededV1).
	register(TagFailedV1, true, decodeFailedV1)

// PartStatuses encodes the terminal status of one route part.
var PartStatuses = newCodec("part status", encodePartStatus).
	register(TagPartSucceededV0, false, legacy.DecodePartSucceededV0).
	register(TagPartFailedV0, false, legacy.DecodePartFailedV0).
	register(TagPartSucceededV1, true, decodePartSucceededV1).
	register(TagPartFailedV1, true, decodePartFailedV1)

// SucceededStatusTags lists every tag, legacy included, that denotes a
// successful outgoing payment.
func SucceededStatusTags() []Tag {
	return []Tag{TagSucceededOffchainV0, TagSucceededV1}
}

// DecodeStatus decodes a terminal status and sets its completion time.
func DecodeStatus(tag Tag, payload []byte, completedAt time.Time) (payments.OutgoingStatus, error) {
	s, err := OutgoingStatuses.Decode(tag, payload)
	if err != nil {
		return nil, err
	}
	switch s := s.(type) {
	case *payments.SucceededStatus:
		s.CompletedAt = completedAt
	case *payments.FailedStatus:
		s.CompletedAt = completedAt
	}
	return s, nil
}

// DecodePartStatus decodes a terminal part status and sets its completion
// time.
func DecodePartStatus(tag Tag, payload []byte, completedAt time.Time) (payments.PartStatus, error) {
	s, err := PartStatuses.Decode(tag, payload)
	if err != nil {
		return nil, err
	}
	switch s := s.(type) {
	case *payments.PartSucceeded:
		s.CompletedAt = completedAt
	case *payments.PartFailed:
		s.CompletedAt = completedAt
	}
	return s, nil
}

func encodeStatus(s payments.OutgoingStatus) (Tag, []byte, error) {
	var m message
	switch s := s.(type) {
	case *payments.SucceededStatus:
		m.bytes(1, s.Preimage[:])
		return TagSucceededV1, m.payload(), nil
	case *payments.FailedStatus:
		m.uint(1, uint64(s.Reason))
		return TagFailedV1, m.payload(), nil
	}
	return "", nil, fmt.Errorf("%w: %T", ErrNotEncodable, s)
}

func decodeSucceededV1(b []byte) (payments.OutgoingStatus, error) {
	s := &payments.SucceededStatus{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		if num == 1 {
			s.Preimage = r.preimage(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func decodeFailedV1(b []byte) (payments.OutgoingStatus, error) {
	s := &payments.FailedStatus{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		if num == 1 {
			s.Reason = payments.FailureReason(r.uint(v))
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func encodePartStatus(s payments.PartStatus) (Tag, []byte, error) {
	var m message
	switch s := s.(type) {
	case *payments.PartSucceeded:
		m.bytes(1, s.Preimage[:])
		return TagPartSucceededV1, m.payload(), nil
	case *payments.PartFailed:
		if s.RemoteFailureCode != nil {
			m.uint(1, protowire.EncodeZigZag(int64(*s.RemoteFailureCode)))
		}
		m.string(2, s.Details)
		return TagPartFailedV1, m.payload(), nil
	}
	return "", nil, fmt.Errorf("%w: %T", ErrNotEncodable, s)
}

func decodePartSucceededV1(b []byte) (payments.PartStatus, error) {
	s := &payments.PartSucceeded{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		if num == 1 {
			s.Preimage = r.preimage(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func decodePartFailedV1(b []byte) (payments.PartStatus, error) {
	s := &payments.PartFailed{}
	err := decodeWith(b, func(r *reader, num protowire.Number, v value) {
		switch num {
		case 1:
			code := int(protowire.DecodeZigZag(r.uint(v)))
			s.RemoteFailureCode = &code
		case 2:
			s.Details = r.string(v)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
