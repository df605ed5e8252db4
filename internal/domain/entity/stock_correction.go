package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CorrectionReason motivo de una corrección de stock.
type CorrectionReason string

const (
	ReasonPurchaseError    CorrectionReason = "PURCHASE_ERROR"
	ReasonTransferError    CorrectionReason = "TRANSFER_ERROR"
	ReasonExpired          CorrectionReason = "EXPIRED"
	ReasonDamaged          CorrectionReason = "DAMAGED"
	ReasonManualAdjustment CorrectionReason = "MANUAL_ADJUSTMENT"
)

// Valid indica si el motivo pertenece al conjunto cerrado.
func (r CorrectionReason) Valid() bool {
	switch r {
	case ReasonPurchaseError, ReasonTransferError, ReasonExpired, ReasonDamaged, ReasonManualAdjustment:
		return true
	}
	return false
}

// CorrectionStatus estado de aprobación de una corrección.
type CorrectionStatus string

const (
	CorrectionPending  CorrectionStatus = "PENDING"
	CorrectionApproved CorrectionStatus = "APPROVED"
	CorrectionRejected CorrectionStatus = "REJECTED"
	CorrectionPartial  CorrectionStatus = "PARTIAL"
)

var correctionTransitions = map[CorrectionStatus][]CorrectionStatus{
	CorrectionPending: {CorrectionApproved, CorrectionRejected, CorrectionPartial},
	CorrectionPartial: {CorrectionApproved, CorrectionRejected},
}

// Valid indica si el estado pertenece al conjunto cerrado.
func (s CorrectionStatus) Valid() bool {
	switch s {
	case CorrectionPending, CorrectionApproved, CorrectionRejected, CorrectionPartial:
		return true
	}
	return false
}

// Terminal: APPROVED y REJECTED no admiten más transiciones.
func (s CorrectionStatus) Terminal() bool {
	return s == CorrectionApproved || s == CorrectionRejected
}

// CanTransitionTo consulta la tabla de transiciones; cualquier par fuera de la tabla se rechaza.
func (s CorrectionStatus) CanTransitionTo(next CorrectionStatus) bool {
	for _, allowed := range correctionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CorrectionItem ajuste con signo sobre un lote.
// Positivo: unidades devueltas al stock (la transacción original sobrestimó el consumo).
// Negativo: unidades descontadas adicionalmente (la transacción subestimó el consumo).
type CorrectionItem struct {
	ID             string
	CorrectionID   string
	ProductID      string
	BatchID        string // opcional
	UnitID         string
	SignedQuantity decimal.Decimal
}

// StockCorrection cabecera de una corrección sobre una única ubicación (tienda XOR bodega).
type StockCorrection struct {
	ID         string
	CompanyID  string
	Reason     CorrectionReason
	PurchaseID string // opcional, excluyente con SellID
	SellID     string // opcional, excluyente con PurchaseID
	Location   Location
	Status     CorrectionStatus
	Note       string
	Items      []CorrectionItem
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Approved indica si la corrección participa en totales financieros y de cantidad.
func (c *StockCorrection) Approved() bool {
	return c.Status == CorrectionApproved
}

// TransactionRef devuelve la transacción enlazada (si la hay).
func (c *StockCorrection) TransactionRef() (TransactionKind, string, bool) {
	switch {
	case c.SellID != "":
		return TransactionSale, c.SellID, true
	case c.PurchaseID != "":
		return TransactionPurchase, c.PurchaseID, true
	}
	return "", "", false
}

// DropZeroItems elimina los ítems con cantidad cero; devuelve cuántos quedan.
func (c *StockCorrection) DropZeroItems() int {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if !it.SignedQuantity.IsZero() {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	return len(kept)
}
