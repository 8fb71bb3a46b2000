package ledger

import "time"

// Returns summarizes portfolio performance over a lookback window.
type Returns struct {
	Period      time.Duration `json:"period"`
	StartValue  float64       `json:"start_value"`
	EndValue    float64       `json:"end_value"`
	TotalReturn float64       `json:"total_return"` // fractional, 0.05 == +5%
	PeakValue   float64       `json:"peak_value"`
	MaxDrawdown float64       `json:"max_drawdown"` // fractional peak-to-trough
}

// ComputeReturns derives return and drawdown figures from the value
// history recorded at each mark-to-market. A zero period means the whole
// history.
func (l *Ledger) ComputeReturns(period time.Duration) Returns {
	history := l.ValueHistory()
	if len(history) == 0 {
		return Returns{Period: period}
	}

	start := 0
	if period > 0 {
		cutoff := history[len(history)-1].Timestamp.Add(-period)
		for i, point := range history {
			if !point.Timestamp.Before(cutoff) {
				start = i
				break
			}
		}
	}

	window := history[start:]
	r := Returns{
		Period:     period,
		StartValue: window[0].Value,
		EndValue:   window[len(window)-1].Value,
	}

	peak := window[0].Value
	for _, point := range window {
		if point.Value > peak {
			peak = point.Value
		}
		if peak > 0 {
			dd := (peak - point.Value) / peak
			if dd > r.MaxDrawdown {
				r.MaxDrawdown = dd
			}
		}
	}
	r.PeakValue = peak

	if r.StartValue > 0 {
		r.TotalReturn = (r.EndValue - r.StartValue) / r.StartValue
	}
	return r
}
