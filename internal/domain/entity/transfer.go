package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus estado del ciclo de vida de un traslado.
type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferCancelled TransferStatus = "CANCELLED"
)

var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferPending: {TransferCompleted, TransferCancelled},
}

// Terminal: COMPLETED y CANCELLED no admiten transiciones.
func (s TransferStatus) Terminal() bool {
	return s == TransferCompleted || s == TransferCancelled
}

// CanTransitionTo consulta la tabla de transiciones.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	for _, allowed := range transferTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransferItem cantidad expresada en UnitID.
type TransferItem struct {
	ID         string
	TransferID string
	ProductID  string
	BatchID    string
	UnitID     string
	Quantity   decimal.Decimal
}

// Transfer traslado de stock entre ubicaciones (modelo de reserva: el origen se debita al crear).
type Transfer struct {
	ID          string
	CompanyID   string
	Source      Location
	Destination Location
	Status      TransferStatus
	Items       []TransferItem
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SourceKey fila del ledger de origen para un ítem.
func (t *Transfer) SourceKey(it TransferItem) LedgerKey {
	return LedgerKey{Location: t.Source, ProductID: it.ProductID, BatchID: it.BatchID, UnitID: it.UnitID}
}

// DestinationKey fila del ledger de destino para un ítem.
func (t *Transfer) DestinationKey(it TransferItem) LedgerKey {
	return LedgerKey{Location: t.Destination, ProductID: it.ProductID, BatchID: it.BatchID, UnitID: it.UnitID}
}
