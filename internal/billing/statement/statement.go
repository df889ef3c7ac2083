// Package statement reads bank statement exports.
package statement

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yungbote/deskbase-backend/internal/platform/money"
)

var ErrMissingColumn = errors.New("statement: required column missing")

type Row struct {
	Line         int               `json:"line"`
	BookedAt     time.Time         `json:"booked_at"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Description  string            `json:"description"`
	Counterparty string            `json:"counterparty"`
	Reference    string            `json:"reference"`
	Raw          map[string]string `json:"raw"`
}

func (r Row) IsCredit() bool { return r.Amount > 0 }

// LineError locates a malformed row.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("statement line %d: %v", e.Line, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

var columnAliases = map[string]string{
	"date":         "date",
	"booking date": "date",
	"booked_at":    "date",
	"amount":       "amount",
	"currency":     "currency",
	"description":  "description",
	"details":      "description",
	"memo":         "description",
	"counterparty": "counterparty",
	"payer":        "counterparty",
	"name":         "counterparty",
	"reference":    "reference",
	"ref":          "reference",
}

// Parse reads a CSV statement with a header row. Columns are matched
// case-insensitively; date and amount are required. The delimiter is a comma
// unless the header contains semicolons only.
func Parse(data []byte, defaultCurrency string) ([]Row, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if first, _, _ := bytes.Cut(data, []byte("\n")); bytes.Contains(first, []byte(";")) && !bytes.Contains(first, []byte(",")) {
		r.Comma = ';'
	}

	header, err := r.Read()
	if err == io.EOF {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statement header: %w", err)
	}
	names := make([]string, len(header))
	index := map[string]int{}
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		key, ok := columnAliases[strings.ToLower(names[i])]
		if !ok {
			continue
		}
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, req := range []string{"date", "amount"} {
		if _, ok := index[req]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}

	get := func(rec []string, key string) string {
		i, ok := index[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := []Row{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &LineError{Line: pe.Line, Err: pe.Err}
			}
			return nil, err
		}
		line, _ := r.FieldPos(0)
		if blank(rec) {
			continue
		}
		booked, err := ParseDate(get(rec, "date"))
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		amount, err := money.Parse(get(rec, "amount"))
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		cur := strings.ToUpper(get(rec, "currency"))
		if cur == "" {
			cur = strings.ToUpper(defaultCurrency)
		}
		raw := make(map[string]string, len(rec))
		for i, v := range rec {
			if i < len(names) && names[i] != "" {
				raw[names[i]] = v
			}
		}
		out = append(out, Row{
			Line:         line,
			BookedAt:     booked,
			Amount:       amount,
			Currency:     cur,
			Description:  get(rec, "description"),
			Counterparty: get(rec, "counterparty"),
			Reference:    get(rec, "reference"),
			Raw:          raw,
		})
	}
	return out, nil
}

// ParseDate accepts YYYY-MM-DD and DD/MM/YYYY; the result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Fingerprint identifies a statement file by content.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
