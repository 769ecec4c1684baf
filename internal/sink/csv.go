package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/yndnr/snapetl-go/internal/core/domain"
)

var csvHeader = []string{"pubkey", "owner", "data_len", "lamports"}

// CSV writes one pubkey,owner,data_len,lamports row per account.
type CSV struct {
	passive
	w      *csv.Writer
	closer io.Closer
	row    []string
	rows   uint64
}

// NewCSV writes the header row to w. If w is an io.Closer other than
// os.Stdout it is closed by Close.
func NewCSV(w io.Writer) (*CSV, error) {
	c := &CSV{w: csv.NewWriter(w), row: make([]string, len(csvHeader))}
	if cl, ok := w.(io.Closer); ok && !isStdStream(w) {
		c.closer = cl
	}
	if err := c.w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return c, nil
}

// OnAccount implements extract.Sink.
func (c *CSV) OnAccount(v *domain.AccountView) error {
	c.row[0] = v.Pubkey.String()
	c.row[1] = v.Owner.String()
	c.row[2] = strconv.FormatUint(v.DataLen(), 10)
	c.row[3] = strconv.FormatUint(v.Lamports, 10)
	if err := c.w.Write(c.row); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	c.rows++
	if c.rows&1023 == 0 {
		c.w.Flush()
		if err := c.w.Error(); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
	}
	return nil
}

// Rows returns the number of account rows written.
func (c *CSV) Rows() uint64 {
	return c.rows
}

// Close flushes pending rows.
func (c *CSV) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
		c.closer = nil
	}
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}
