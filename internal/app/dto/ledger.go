package dto

import (
	"time"

	domainledger "rentcar/internal/domain/ledger"
)

type TransactionDTO struct {
	ID        string         `json:"id"`
	BookingID string         `json:"bookingId"`
	Party     string         `json:"party"`
	PartyID   string         `json:"partyId"`
	Car       CarSnapshotDTO `json:"car"`
	Type      string         `json:"type"`
	Effect    string         `json:"effect"`
	Status    string         `json:"status"`
	Amount    MoneyDTO       `json:"amount"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type TransactionCollection struct {
	Items []TransactionDTO `json:"items"`
	Page  Page             `json:"page"`
}

func MapTransaction(t domainledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        string(t.ID),
		BookingID: t.BookingID,
		Party:     string(t.Party),
		PartyID:   t.PartyID,
		Car:       MapCarSnapshot(t.Car),
		Type:      string(t.Type),
		Effect:    string(t.Effect),
		Status:    string(t.Status),
		Amount:    MapMoney(t.Amount),
		Note:      t.Note,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func MapTransactions(rows []domainledger.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, MapTransaction(row))
	}
	return out
}
