package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKey identifica una fila del ledger de cantidades.
type LedgerKey struct {
	Location  Location
	ProductID string
	BatchID   string
	UnitID    string
}

// String devuelve una representación estable, usada también para ordenar bloqueos.
func (k LedgerKey) String() string {
	return k.Location.String() + "/" + k.ProductID + "/" + k.BatchID + "/" + k.UnitID
}

// QuantityScale decimales con que se persiste toda cantidad (NUMERIC(20,6)).
const QuantityScale = 6

// FitsQuantityScale true si q se persiste sin redondeo.
func FitsQuantityScale(q decimal.Decimal) bool {
	return q.Equal(q.Round(QuantityScale))
}

// StockLedgerEntry es la cantidad disponible (en unidades base) de un lote en una ubicación.
// Invariante: Quantity >= 0 después de cualquier operación confirmada.
type StockLedgerEntry struct {
	Key       LedgerKey
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}

// LedgerDelta es un ajuste con signo (en unidades base) sobre una fila del ledger.
type LedgerDelta struct {
	Key   LedgerKey
	Delta decimal.Decimal
}
