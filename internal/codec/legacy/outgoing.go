// ABOUTME: Legacy outgoing details, payment status and part status payloads
// ABOUTME: Failure reasons were stored by class name and are mapped onto the current enum

package legacy

import (
	"github.com/btcsuite/btcd/btcutil"

	"github.com/2389/lnledger/internal/payments"
)

type normalDetailsV0 struct {
	PaymentRequest string `json:"paymentRequest"`
}

func DecodeNormalDetailsV0(payload []byte) (payments.OutgoingDetails, error) {
	var v normalDetailsV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return &payments.NormalDetails{PaymentRequest: v.PaymentRequest}, nil
}

// DecodeKeysendDetailsV0 reads a spontaneous payment. Keysend sending was
// removed; the row survives as a normal payment without a request.
func DecodeKeysendDetailsV0(payload []byte) (payments.OutgoingDetails, error) {
	var v struct{}
	if len(payload) > 0 {
		if err := unmarshal(payload, &v); err != nil {
			return nil, err
		}
	}
	return &payments.NormalDetails{}, nil
}

type swapOutDetailsV0 struct {
	Address        string `json:"address"`
	PaymentRequest string `json:"paymentRequest"`
	SwapOutFee     int64  `json:"swapOutFee"`
}

func DecodeSwapOutDetailsV0(payload []byte) (payments.OutgoingDetails, error) {
	var v swapOutDetailsV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return &payments.SwapOutDetails{
		Address:        v.Address,
		PaymentRequest: v.PaymentRequest,
		SwapOutFee:     btcutil.Amount(v.SwapOutFee),
	}, nil
}

type succeededV0 struct {
	Preimage string `json:"preimage"`
}

// DecodeSucceededStatusV0 reads an off-chain success. The completion time
// lives in its own column and is set by the caller.
func DecodeSucceededStatusV0(payload []byte) (payments.OutgoingStatus, error) {
	var v succeededV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	preimage, err := parsePreimage(v.Preimage)
	if err != nil {
		return nil, err
	}
	return &payments.SucceededStatus{Preimage: preimage}, nil
}

// failureReasonsV0 maps the historical class names of final failures.
var failureReasonsV0 = map[string]payments.FailureReason{
	"InvalidPaymentAmount":   payments.FailureInvalidAmount,
	"InvalidPaymentId":       payments.FailureUnknown,
	"InsufficientBalance":    payments.FailureInsufficientBalance,
	"NoAvailableChannels":    payments.FailureNoAvailableChannels,
	"RecipientUnreachable":   payments.FailureRecipientUnreachable,
	"RetryExhausted":         payments.FailureRetryExhausted,
	"WalletRestarted":        payments.FailureWalletRestarted,
	"ChannelIsClosing":       payments.FailureChannelClosing,
	"ChannelIsSplicing":      payments.FailureChannelClosing,
	"UnknownError":           payments.FailureUnknown,
	"FeaturesNotSupported":   payments.FailureRecipientUnreachable,
	"PaymentAlreadyReceived": payments.FailureUnknown,
}

// FailureReasonV0 maps a legacy failure name. Unknown names map to
// FailureUnknown rather than failing the decode.
func FailureReasonV0(name string) payments.FailureReason {
	if r, ok := failureReasonsV0[name]; ok {
		return r
	}
	return payments.ParseFailureReason(name)
}

type failedV0 struct {
	Reason string `json:"reason"`
}

func DecodeFailedStatusV0(payload []byte) (payments.OutgoingStatus, error) {
	var v failedV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return &payments.FailedStatus{Reason: FailureReasonV0(v.Reason)}, nil
}

func DecodePartSucceededV0(payload []byte) (payments.PartStatus, error) {
	var v succeededV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	preimage, err := parsePreimage(v.Preimage)
	if err != nil {
		return nil, err
	}
	return &payments.PartSucceeded{Preimage: preimage}, nil
}

type partFailedV0 struct {
	RemoteFailureCode *int   `json:"remoteFailureCode"`
	Details           string `json:"details"`
}

func DecodePartFailedV0(payload []byte) (payments.PartStatus, error) {
	var v partFailedV0
	if err := unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return &payments.PartFailed{RemoteFailureCode: v.RemoteFailureCode, Details: v.Details}, nil
}
