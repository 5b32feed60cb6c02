package ledger

import "time"

type OwnerSummary struct {
	Currency        string `json:"currency"`
	LifetimeCredits int64  `json:"lifetimeCredits"`
	LifetimeDebits  int64  `json:"lifetimeDebits"`
	PendingPayout   int64  `json:"pendingPayout"`
	MonthEarnings   int64  `json:"monthEarnings"`
	Postings        int    `json:"postings"`
}

type RenterSummary struct {
	Currency        string `json:"currency"`
	LifetimeSpend   int64  `json:"lifetimeSpend"`
	MonthSpend      int64  `json:"monthSpend"`
	PendingPayments int64  `json:"pendingPayments"`
	Refunded        int64  `json:"refunded"`
	Postings        int    `json:"postings"`
}

// SummarizeOwner aggregates owner-party rows. Paid credits count as earnings, pending credits
// as pending payout. An owner debit (refund) reduces the totals only when the owner holds a
// settled credit on the same booking: refunding a cancelled booking, whose pair is void,
// returns money the owner never received. Void rows are ignored.
func SummarizeOwner(rows []Transaction, now time.Time) OwnerSummary {
	monthStart := startOfMonth(now)
	earned := make(map[string]bool)
	for _, row := range rows {
		if row.Party == PartyOwner && row.Effect == EffectCredit && row.Status.Settled() {
			earned[row.BookingID] = true
		}
	}
	var out OwnerSummary
	for _, row := range rows {
		if row.Party != PartyOwner || row.Status.Void() {
			continue
		}
		out.Postings++
		if out.Currency == "" {
			out.Currency = row.Amount.Currency
		}
		amount := row.Amount.Amount
		switch row.Effect {
		case EffectCredit:
			switch {
			case row.Status.Settled():
				out.LifetimeCredits += amount
				if !row.CreatedAt.Before(monthStart) {
					out.MonthEarnings += amount
				}
			case row.Status == StatusPending || row.Status == StatusProcessing:
				out.PendingPayout += amount
			}
		case EffectDebit:
			if row.Status.Settled() && earned[row.BookingID] {
				out.LifetimeDebits += amount
				if !row.CreatedAt.Before(monthStart) {
					out.MonthEarnings -= amount
				}
			}
		}
	}
	return out
}

// SummarizeRenter aggregates renter-party rows: paid debits are spend, pending debits are
// payments due, paid credits are refunds received.
func SummarizeRenter(rows []Transaction, now time.Time) RenterSummary {
	monthStart := startOfMonth(now)
	var out RenterSummary
	for _, row := range rows {
		if row.Party != PartyRenter || row.Status.Void() {
			continue
		}
		out.Postings++
		if out.Currency == "" {
			out.Currency = row.Amount.Currency
		}
		amount := row.Amount.Amount
		switch row.Effect {
		case EffectDebit:
			switch {
			case row.Status.Settled():
				out.LifetimeSpend += amount
				if !row.CreatedAt.Before(monthStart) {
					out.MonthSpend += amount
				}
			case row.Status == StatusPending || row.Status == StatusProcessing:
				out.PendingPayments += amount
			}
		case EffectCredit:
			if row.Status.Settled() {
				out.Refunded += amount
			}
		}
	}
	return out
}

func startOfMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
