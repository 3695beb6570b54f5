package insights

import (
	"context"
	"fmt"
)

// Suggestion thresholds. Rules are flat and composable; each inspects one
// aggregate and either fires or stays silent.
const (
	categorySpikePct      = 50
	categorySpikeMinSpend = 500
	weeklyMerchantMin     = 2000
	topMerchantShare      = 0.30
	monthDropPct          = -30
	monthDropMinBase      = 1000
)

// Suggestion is one rule-based observation about spending habits.
type Suggestion struct {
	Rule    string
	Message string
}

// Suggestions runs the rule set over current aggregates.
func (e *Engine) Suggestions(ctx context.Context) ([]Suggestion, error) {
	var suggestions []Suggestion

	trends, err := e.CategoryTrends(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range trends {
		if t.ChangePct > categorySpikePct && t.Current > categorySpikeMinSpend {
			suggestions = append(suggestions, Suggestion{
				Rule: "category_spike",
				Message: fmt.Sprintf("%s spending is up %s over last month (%.2f). Worth a look.",
					t.Category, formatPct(t.ChangePct), t.Current),
			})
		}
	}

	merchants, err := e.RecurringMerchants(ctx)
	if err != nil {
		return nil, err
	}
	var trackedTotal float64
	for _, m := range merchants {
		trackedTotal += m.Total
	}
	for _, m := range merchants {
		if m.Frequency == FrequencyWeekly && m.Total > weeklyMerchantMin {
			suggestions = append(suggestions, Suggestion{
				Rule: "recurring_weekly",
				Message: fmt.Sprintf("You pay %s about weekly, %.2f so far across %d charges. A subscription or habit to revisit?",
					m.Merchant, m.Total, m.Count),
			})
		}
	}
	if len(merchants) > 0 && trackedTotal > 0 {
		top := merchants[0]
		if share := top.Total / trackedTotal; share > topMerchantShare {
			suggestions = append(suggestions, Suggestion{
				Rule: "top_merchant_share",
				Message: fmt.Sprintf("%s accounts for %s of your repeat-merchant spending (%.2f).",
					top.Merchant, formatPct(share*100), top.Total),
			})
		}
	}

	months, err := e.MonthOverMonth(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range months {
		if m.ChangePct < monthDropPct && m.PrevTotal > monthDropMinBase {
			suggestions = append(suggestions, Suggestion{
				Rule: "month_drop",
				Message: fmt.Sprintf("Spending in %s dropped %s from the month before. Whatever changed, it worked.",
					m.Month, formatPct(-m.ChangePct)),
			})
		}
	}

	return suggestions, nil
}
