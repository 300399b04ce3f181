package accrual

import (
	"math"
	"strings"

	"github.com/anikets/bachatbuddy/internal/history"
)

const (
	uniqueSearchValue = 50
	repeatSearchValue = 25
	billSavingsRate   = 0.10
	billUploadBonus   = 10
	monthShare        = 0.3
	pointsPerSearch   = 10
	basePoints        = 100
	streakSearchSpan  = 5
)

// Accrual is the derived savings/points/streak summary for a user.
// It is never stored; it is recomputed from the user's search and bill
// collections on every read.
type Accrual struct {
	TotalSavings     float64 `json:"total_savings"`
	ThisMonthSavings float64 `json:"this_month_savings"`
	Points           int     `json:"points"`
	StreakDays       int     `json:"streak_days"`
}

// Compute derives the accrual from a user's full search and bill history.
// It never fails; empty input yields the baseline (0 savings, 100 points,
// streak of 1). Appending a search or bill never decreases any field.
func Compute(searches []string, bills []history.Bill) Accrual {
	unique := make(map[string]struct{}, len(searches))
	for _, q := range searches {
		unique[strings.ToLower(q)] = struct{}{}
	}
	uniqueCount := len(unique)
	repeatCount := len(searches) - uniqueCount

	var billSavings float64
	for _, b := range bills {
		billSavings += b.TotalAmount * billSavingsRate
	}

	total := float64(uniqueCount*uniqueSearchValue+repeatCount*repeatSearchValue) +
		billSavings + float64(len(bills)*billUploadBonus)

	return Accrual{
		TotalSavings:     total,
		ThisMonthSavings: math.Floor(total * monthShare),
		Points:           len(searches)*pointsPerSearch + basePoints,
		StreakDays:       len(searches)/streakSearchSpan + 1,
	}
}
