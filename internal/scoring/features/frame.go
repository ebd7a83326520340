// Package features derives liquidity-provision and swap behavior vectors
// from canonical transactions.
package features

import (
	"math"

	"github.com/vietddude/walletscore/internal/core/domain"
)

const secondsPerDay = 86400.0

// Frame is a columnar projection of canonical transactions. Column i of
// every slice describes transaction i.
type Frame struct {
	Type      []string
	AmountUSD []float64
	Pool      []string
	Timestamp []int64
	TokenIn   []string
	TokenOut  []string
}

// NewFrame loads transactions into columns. Non-finite amounts become 0.
func NewFrame(txs []domain.Transaction) *Frame {
	n := len(txs)
	f := &Frame{
		Type:      make([]string, n),
		AmountUSD: make([]float64, n),
		Pool:      make([]string, n),
		Timestamp: make([]int64, n),
		TokenIn:   make([]string, n),
		TokenOut:  make([]string, n),
	}
	for i, tx := range txs {
		f.Type[i] = tx.Type
		f.AmountUSD[i] = finite(tx.AmountUSD)
		f.Pool[i] = tx.Pool
		f.Timestamp[i] = tx.Timestamp
		f.TokenIn[i] = tx.TokenIn
		f.TokenOut[i] = tx.TokenOut
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Type)
}

// All returns a view over every row.
func (f *Frame) All() View {
	rows := make([]int, f.Len())
	for i := range rows {
		rows[i] = i
	}
	return View{frame: f, rows: rows}
}

// Where returns a view over the rows whose type is one of types.
// Matching is exact; types are already lower-cased by the normalizer.
func (f *Frame) Where(types ...string) View {
	var rows []int
	for i, t := range f.Type {
		for _, want := range types {
			if t == want {
				rows = append(rows, i)
				break
			}
		}
	}
	return View{frame: f, rows: rows}
}

// View is a subset of frame rows.
type View struct {
	frame *Frame
	rows  []int
}

// Len returns the number of rows in the view.
func (v View) Len() int {
	return len(v.rows)
}

// Empty reports whether the view has no rows.
func (v View) Empty() bool {
	return len(v.rows) == 0
}

// SumAmountUSD sums the amount column, 0 for an empty view.
func (v View) SumAmountUSD() float64 {
	var sum float64
	for _, i := range v.rows {
		sum += v.frame.AmountUSD[i]
	}
	return sum
}

// MinTimestamp returns the smallest timestamp; false for an empty view.
func (v View) MinTimestamp() (int64, bool) {
	if v.Empty() {
		return 0, false
	}
	m := v.frame.Timestamp[v.rows[0]]
	for _, i := range v.rows[1:] {
		m = min(m, v.frame.Timestamp[i])
	}
	return m, true
}

// MaxTimestamp returns the largest timestamp; false for an empty view.
func (v View) MaxTimestamp() (int64, bool) {
	if v.Empty() {
		return 0, false
	}
	m := v.frame.Timestamp[v.rows[0]]
	for _, i := range v.rows[1:] {
		m = max(m, v.frame.Timestamp[i])
	}
	return m, true
}

// SpanDays returns (max - min timestamp) in days; false for an empty view.
func (v View) SpanDays() (float64, bool) {
	lo, ok := v.MinTimestamp()
	if !ok {
		return 0, false
	}
	hi, _ := v.MaxTimestamp()
	return float64(hi-lo) / secondsPerDay, true
}

// NUnique counts distinct non-empty values of column within the view.
func (v View) NUnique(column []string) int {
	seen := make(map[string]struct{})
	for _, i := range v.rows {
		if s := column[i]; s != "" {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}

// safeDivide returns a/b, or def when b is zero.
func safeDivide(a, b, def float64) float64 {
	if b == 0 {
		return def
	}
	return a / b
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
