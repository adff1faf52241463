// ABOUTME: Legacy "received with" blobs that stored every incoming part in one JSON array
// ABOUTME: Parts carry no own timestamp; callers stamp them with the header's received time

package legacy

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/2389/lnledger/internal/payments"
)

// Part type discriminators used inside the multipart arrays.
const (
	partLightning  = "lightning"
	partNewChannel = "new_channel"
	partSpliceIn   = "splice_in"
	partFeeCredit  = "fee_credit"
)

type partV0 struct {
	Type      string `json:"type"`
	Amount    uint64 `json:"amount"`
	ChannelID string `json:"channelId"`
	HtlcID    uint64 `json:"htlcId"`
	Fees      uint64 `json:"fees"`
}

// DecodeMultipartsV0 reads the first multipart generation. New-channel
// parts only knew a combined fee in millisatoshi; it becomes the service
// fee, and the mining fee and funding tx are left at zero.
func DecodeMultipartsV0(payload []byte, receivedAt time.Time) ([]payments.IncomingPart, error) {
	var raw []partV0
	if err := unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	parts := make([]payments.IncomingPart, 0, len(raw))
	for i, p := range raw {
		channelID, err := parseChannelID(p.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		switch p.Type {
		case partLightning:
			parts = append(parts, &payments.HtlcPart{
				Amount:     lnwire.MilliSatoshi(p.Amount),
				ChannelID:  channelID,
				HtlcID:     p.HtlcID,
				ReceivedAt: receivedAt,
			})
		case partNewChannel:
			parts = append(parts, &payments.NewChannelPart{
				Amount:     lnwire.MilliSatoshi(p.Amount),
				ServiceFee: lnwire.MilliSatoshi(p.Fees),
				ChannelID:  channelID,
				ReceivedAt: receivedAt,
			})
		default:
			return nil, fmt.Errorf("part %d: unknown part type %q", i, p.Type)
		}
	}
	return parts, nil
}

type partV1 struct {
	Type           string `json:"type"`
	AmountMsat     uint64 `json:"amountMsat"`
	ChannelID      string `json:"channelId"`
	HtlcID         uint64 `json:"htlcId"`
	FundingFeeMsat uint64 `json:"fundingFeeMsat"`
	ServiceFeeMsat uint64 `json:"serviceFeeMsat"`
	MiningFeeSat   int64  `json:"miningFeeSat"`
	TxID           string `json:"txId"`
}

// DecodeMultipartsV1 reads the second multipart generation, which split
// service and mining fees and added splice-in and fee-credit parts.
func DecodeMultipartsV1(payload []byte, receivedAt time.Time) ([]payments.IncomingPart, error) {
	var raw []partV1
	if err := unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	parts := make([]payments.IncomingPart, 0, len(raw))
	for i, p := range raw {
		channelID, err := parseChannelID(p.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		txID, err := parseTxID(p.TxID)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}

		switch p.Type {
		case partLightning:
			parts = append(parts, &payments.HtlcPart{
				Amount:     lnwire.MilliSatoshi(p.AmountMsat),
				ChannelID:  channelID,
				HtlcID:     p.HtlcID,
				FundingFee: lnwire.MilliSatoshi(p.FundingFeeMsat),
				ReceivedAt: receivedAt,
			})
		case partNewChannel:
			parts = append(parts, &payments.NewChannelPart{
				Amount:     lnwire.MilliSatoshi(p.AmountMsat),
				ServiceFee: lnwire.MilliSatoshi(p.ServiceFeeMsat),
				MiningFee:  btcutil.Amount(p.MiningFeeSat),
				ChannelID:  channelID,
				TxID:       txID,
				ReceivedAt: receivedAt,
			})
		case partSpliceIn:
			parts = append(parts, &payments.SpliceInPart{
				Amount:     lnwire.MilliSatoshi(p.AmountMsat),
				ServiceFee: lnwire.MilliSatoshi(p.ServiceFeeMsat),
				MiningFee:  btcutil.Amount(p.MiningFeeSat),
				ChannelID:  channelID,
				TxID:       txID,
				ReceivedAt: receivedAt,
			})
		case partFeeCredit:
			parts = append(parts, &payments.FeeCreditPart{
				Amount:     lnwire.MilliSatoshi(p.AmountMsat),
				ReceivedAt: receivedAt,
			})
		default:
			return nil, fmt.Errorf("part %d: unknown part type %q", i, p.Type)
		}
	}
	return parts, nil
}
