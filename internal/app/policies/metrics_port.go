package policies

// LedgerMetrics counts ledger writes that happen outside the command's own transaction.
type LedgerMetrics interface {
	LedgerWriteFailed(kind string)
	LedgerRepaired(count int)
}
