// ABOUTME: CSV rendering of settlement events for bookkeeping exports
// ABOUTME: One row per event; summing amount_msat gives the balance, fee_credit_msat the fee credit

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Header is the first CSV row.
var Header = []string{
	"date",
	"type",
	"amount_msat",
	"fee_credit_msat",
	"mining_fee_sat",
	"service_fee_msat",
	"payment_hash",
	"tx_id",
}

// CSVWriter writes events as CSV rows. The header is written before the
// first row, or by Flush when no row was written.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
	rows        int
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) writeHeader() error {
	if c.wroteHeader {
		return nil
	}
	c.wroteHeader = true
	if err := c.w.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	return nil
}

// Write appends one event.
func (c *CSVWriter) Write(e Event) error {
	if err := c.writeHeader(); err != nil {
		return err
	}

	var hash, txID string
	if e.PaymentHash != nil {
		hash = e.PaymentHash.String()
	}
	if e.TxID != nil {
		txID = e.TxID.String()
	}

	record := []string{
		e.Time.UTC().Format(time.RFC3339),
		string(e.Type),
		strconv.FormatInt(e.Amount, 10),
		strconv.FormatInt(e.FeeCredit, 10),
		strconv.FormatInt(int64(e.MiningFee), 10),
		strconv.FormatUint(uint64(e.ServiceFee), 10),
		hash,
		txID,
	}
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("writing csv row: %w", err)
	}
	c.rows++
	return nil
}

// Rows returns how many event rows were written.
func (c *CSVWriter) Rows() int { return c.rows }

// Flush writes any buffered rows to the underlying writer.
func (c *CSVWriter) Flush() error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
