package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento registrados en el historial del ledger.
const (
	MovementTypeAdjustment   = "ADJUSTMENT"    // delta manual sobre el ledger
	MovementTypeCorrection   = "CORRECTION"    // corrección aprobada
	MovementTypeTransferOut  = "TRANSFER_OUT"  // débito en origen al crear un traslado
	MovementTypeTransferIn   = "TRANSFER_IN"   // crédito en destino al completar
	MovementTypeTransferBack = "TRANSFER_BACK" // crédito en origen al cancelar
)

// InventoryMovement historial de cada delta aplicado al ledger (en unidades base).
type InventoryMovement struct {
	ID          string
	OperationID string
	Key         LedgerKey
	Type        string
	Quantity    decimal.Decimal // con signo
	Balance     decimal.Decimal // cantidad resultante de la fila
	Reference   string          // id de corrección o traslado
	CreatedAt   time.Time
	CreatedBy   string
}
