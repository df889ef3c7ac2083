package statement

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse(t *testing.T) {
	data := []byte("\xef\xbb\xbfDate,Amount,Description,Counterparty,Reference\n" +
		"2026-04-01,\"1,200.50\",Invoice INV-2026-0001,ACME Ltd,REF1\n" +
		"\n" +
		"02/04/2026,-35.00,Bank fee,,\n")

	rows, err := Parse(data, "eur")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Row{
		{Line: 2, BookedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Amount: 120050, Currency: "EUR",
			Description: "Invoice INV-2026-0001", Counterparty: "ACME Ltd", Reference: "REF1"},
		{Line: 4, BookedAt: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), Amount: -3500, Currency: "EUR",
			Description: "Bank fee"},
	}
	if diff := cmp.Diff(want, rows, cmpopts.IgnoreFields(Row{}, "Raw")); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if !rows[0].IsCredit() || rows[1].IsCredit() {
		t.Fatalf("credit flags wrong")
	}
	if rows[0].Raw["Amount"] != "1,200.50" {
		t.Fatalf("raw amount: got %q", rows[0].Raw["Amount"])
	}
}

func TestParseSemicolonAndCurrencyColumn(t *testing.T) {
	data := []byte("date;amount;currency;memo\n2026-04-03;99.9;usd;coffee\n")
	rows, err := Parse(data, "EUR")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount != 9990 || rows[0].Currency != "USD" || rows[0].Description != "coffee" {
		t.Fatalf("unexpected row %+v", rows)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("when,amount\n2026-01-01,1\n"), "EUR"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("missing date column: want ErrMissingColumn got %v", err)
	}
	_, err := Parse([]byte("date,amount\n2026-01-01,1\n2026-13-45,2\n"), "EUR")
	var le *LineError
	if !errors.As(err, &le) || le.Line != 3 {
		t.Fatalf("bad date: want LineError at 3 got %v", err)
	}
	if _, err := Parse([]byte("date,amount\n2026-01-01,1.234\n"), "EUR"); err == nil {
		t.Fatalf("three decimals should fail")
	}
	for _, amount := range []string{"--5.50", "+-5.50"} {
		_, err := Parse([]byte("date,amount\n2026-03-02,1.00\n2026-03-02,"+amount+"\n"), "EUR")
		var le *LineError
		if !errors.As(err, &le) || le.Line != 3 {
			t.Fatalf("amount %q: want LineError at 3 got %v", amount, err)
		}
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint([]byte("x"))
	if a != Fingerprint([]byte("x")) || a == Fingerprint([]byte("y")) || len(a) != 64 {
		t.Fatalf("fingerprint not stable: %s", a)
	}
}
