// Package reconcile pairs recorded payments with bank statement credits.
package reconcile

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/platform/money"
)

const (
	weightAmount    = 50
	weightAmountMin = 25
	weightDate      = 20
	weightReference = 20
	weightName      = 10
)

type Config struct {
	AmountToleranceCents int64
	AmountToleranceBps   int64
	DateWindowDays       int
	MinScore             int
	AutoConfirmScore     int
}

func DefaultConfig() Config {
	return Config{
		AmountToleranceCents: 100,
		AmountToleranceBps:   50,
		DateWindowDays:       7,
		MinScore:             50,
		AutoConfirmScore:     90,
	}
}

type Payment struct {
	ID            uuid.UUID
	Amount        int64
	Currency      string
	ReceivedAt    time.Time
	Reference     string
	InvoiceNumber string
	PayerName     string
}

type Transaction struct {
	ID           uuid.UUID
	Amount       int64
	Currency     string
	BookedAt     time.Time
	Description  string
	Counterparty string
	Reference    string
}

type Reasons struct {
	AmountScore    int   `json:"amount_score"`
	DateScore      int   `json:"date_score"`
	ReferenceScore int   `json:"reference_score"`
	NameScore      int   `json:"name_score"`
	AmountDiff     int64 `json:"amount_diff"`
	DaysApart      int   `json:"days_apart"`
}

// Pair identifies a payment/transaction combination.
type Pair struct {
	PaymentID     uuid.UUID
	TransactionID uuid.UUID
}

type Match struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Score         int       `json:"score"`
	AutoConfirm   bool      `json:"auto_confirm"`
	Reasons       Reasons   `json:"reasons"`
}

// Tolerance is the largest accepted amount difference for a payment amount.
func (c Config) Tolerance(amount int64) int64 {
	pct := money.Bps(money.Abs(amount), c.AmountToleranceBps)
	if pct > c.AmountToleranceCents {
		return pct
	}
	return c.AmountToleranceCents
}

// Score rates a candidate pair. ok is false when currency, amount or date
// rule the pair out.
func (c Config) Score(p Payment, t Transaction) (int, Reasons, bool) {
	if p.Currency != t.Currency {
		return 0, Reasons{}, false
	}
	diff := money.Abs(p.Amount - t.Amount)
	tol := c.Tolerance(p.Amount)
	if diff > tol {
		return 0, Reasons{}, false
	}
	days := daysApart(p.ReceivedAt, t.BookedAt)
	if days > c.DateWindowDays {
		return 0, Reasons{}, false
	}

	r := Reasons{AmountDiff: diff, DaysApart: days}
	if diff == 0 {
		r.AmountScore = weightAmount
	} else {
		// linear down to the floor at the tolerance edge; only exact amounts get full weight
		span := float64(weightAmount - weightAmountMin)
		r.AmountScore = weightAmountMin + int(math.Round(span*(1-float64(diff)/float64(tol))))
		if r.AmountScore >= weightAmount {
			r.AmountScore = weightAmount - 1
		}
	}
	if c.DateWindowDays > 0 {
		r.DateScore = int(math.Round(weightDate * (1 - float64(days)/float64(c.DateWindowDays))))
	} else {
		r.DateScore = weightDate
	}
	if containsToken(p.Reference, t.Description, t.Reference) || containsToken(p.InvoiceNumber, t.Description, t.Reference) {
		r.ReferenceScore = weightReference
	}
	r.NameScore = int(math.Round(weightName * Similarity(p.PayerName, t.Counterparty)))

	score := r.AmountScore + r.DateScore + r.ReferenceScore + r.NameScore
	return score, r, true
}

// Match scores every payment/transaction pair and assigns them one-to-one,
// greedily by score. Ties prefer the smaller date gap, then the smaller
// amount gap, then the lower ids. Excluded pairs never enter the assignment,
// so both of their sides stay free for the next-best candidate.
func (c Config) Match(payments []Payment, txs []Transaction, exclude ...Pair) []Match {
	type cand struct {
		p, t int
		Match
	}
	skip := make(map[Pair]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	var cands []cand
	for i, p := range payments {
		for j, t := range txs {
			if skip[Pair{p.ID, t.ID}] {
				continue
			}
			score, reasons, ok := c.Score(p, t)
			if !ok || score < c.MinScore {
				continue
			}
			cands = append(cands, cand{p: i, t: j, Match: Match{
				PaymentID:     p.ID,
				TransactionID: t.ID,
				Score:         score,
				AutoConfirm:   c.AutoConfirmScore > 0 && score >= c.AutoConfirmScore,
				Reasons:       reasons,
			}})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Reasons.DaysApart != b.Reasons.DaysApart {
			return a.Reasons.DaysApart < b.Reasons.DaysApart
		}
		if a.Reasons.AmountDiff != b.Reasons.AmountDiff {
			return a.Reasons.AmountDiff < b.Reasons.AmountDiff
		}
		if a.PaymentID != b.PaymentID {
			return a.PaymentID.String() < b.PaymentID.String()
		}
		return a.TransactionID.String() < b.TransactionID.String()
	})

	usedP := make(map[int]bool, len(payments))
	usedT := make(map[int]bool, len(txs))
	out := []Match{}
	for _, cd := range cands {
		if usedP[cd.p] || usedT[cd.t] {
			continue
		}
		usedP[cd.p] = true
		usedT[cd.t] = true
		out = append(out, cd.Match)
	}
	return out
}

// daysApart counts calendar days between two instants in UTC.
func daysApart(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	d := int(da.Sub(db).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}
