package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationDTO tienda o bodega por identidad.
type LocationDTO struct {
	Type string `json:"type" validate:"required,oneof=STORE SHOP"`
	ID   string `json:"id" validate:"required"`
}

// ApplyDeltaRequest body para POST /api/inventory/deltas. Delta con signo en unidades base.
// El header Idempotency-Key se usa como id de operación.
type ApplyDeltaRequest struct {
	Location  LocationDTO     `json:"location" validate:"required"`
	ProductID string          `json:"product_id" validate:"required"`
	BatchID   string          `json:"batch_id,omitempty"`
	UnitID    string          `json:"unit_id" validate:"required"`
	Delta     decimal.Decimal `json:"delta"`
}

// AvailableQuery query de GET /api/inventory/available.
type AvailableQuery struct {
	LocationType string `query:"location_type" json:"location_type" validate:"required,oneof=STORE SHOP"`
	LocationID   string `query:"location_id" json:"location_id" validate:"required"`
	ProductID    string `query:"product_id" json:"product_id" validate:"required"`
	BatchID      string `query:"batch_id" json:"batch_id"`
	UnitID       string `query:"unit_id" json:"unit_id" validate:"required"`
}

// AvailableQuantityResponse disponible en la unidad pedida.
type AvailableQuantityResponse struct {
	Location  LocationDTO     `json:"location"`
	ProductID string          `json:"product_id"`
	BatchID   string          `json:"batch_id,omitempty"`
	UnitID    string          `json:"unit_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// LedgerEntryResponse fila del ledger (cantidad en unidades base).
type LedgerEntryResponse struct {
	ProductID    string          `json:"product_id"`
	BatchID      string          `json:"batch_id,omitempty"`
	UnitID       string          `json:"unit_id"`
	BaseQuantity decimal.Decimal `json:"base_quantity"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LocationStockResponse stock de una ubicación, paginado.
type LocationStockResponse struct {
	Location LocationDTO           `json:"location"`
	Entries  []LedgerEntryResponse `json:"entries"`
	Page     PageResponse          `json:"page"`
}

// TransferItemRequest ítem de traslado (cantidad en unit_id).
type TransferItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	BatchID   string          `json:"batch_id,omitempty"`
	UnitID    string          `json:"unit_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CreateTransferRequest body para POST /api/transfers. ID opcional para reintentos idempotentes.
type CreateTransferRequest struct {
	ID          string                `json:"id,omitempty" validate:"omitempty,uuid"`
	Source      LocationDTO           `json:"source" validate:"required"`
	Destination LocationDTO           `json:"destination" validate:"required"`
	Items       []TransferItemRequest `json:"items" validate:"required,min=1,dive"`
}

// TransferItemResponse ítem de traslado.
type TransferItemResponse struct {
	ProductID string          `json:"product_id"`
	BatchID   string          `json:"batch_id,omitempty"`
	UnitID    string          `json:"unit_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// TransferResponse traslado.
type TransferResponse struct {
	ID          string                 `json:"id"`
	Source      LocationDTO            `json:"source"`
	Destination LocationDTO            `json:"destination"`
	Status      string                 `json:"status"`
	Items       []TransferItemResponse `json:"items"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// CorrectionItemRequest ítem de corrección; positivo devuelve al stock, negativo descuenta.
type CorrectionItemRequest struct {
	ProductID      string          `json:"product_id" validate:"required"`
	BatchID        string          `json:"batch_id,omitempty"`
	UnitID         string          `json:"unit_id" validate:"required"`
	SignedQuantity decimal.Decimal `json:"signed_quantity"`
}

// CreateCorrectionRequest body para POST /api/corrections.
type CreateCorrectionRequest struct {
	Reason     string                  `json:"reason" validate:"required,oneof=PURCHASE_ERROR TRANSFER_ERROR EXPIRED DAMAGED MANUAL_ADJUSTMENT"`
	PurchaseID string                  `json:"purchase_id,omitempty" validate:"excluded_with=SellID"`
	SellID     string                  `json:"sell_id,omitempty"`
	Location   LocationDTO             `json:"location" validate:"required"`
	Note       string                  `json:"note,omitempty" validate:"max=500"`
	Items      []CorrectionItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateCorrectionStatusRequest body para PATCH /api/corrections/:id/status.
type UpdateCorrectionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED PARTIAL"`
}

// CorrectionItemResponse ítem de corrección.
type CorrectionItemResponse struct {
	ProductID      string          `json:"product_id"`
	BatchID        string          `json:"batch_id,omitempty"`
	UnitID         string          `json:"unit_id"`
	SignedQuantity decimal.Decimal `json:"signed_quantity"`
}

// CorrectionResponse corrección de stock.
type CorrectionResponse struct {
	ID         string                   `json:"id"`
	Reason     string                   `json:"reason"`
	PurchaseID string                   `json:"purchase_id,omitempty"`
	SellID     string                   `json:"sell_id,omitempty"`
	Location   LocationDTO              `json:"location"`
	Status     string                   `json:"status"`
	Note       string                   `json:"note,omitempty"`
	Items      []CorrectionItemResponse `json:"items"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// AdjustmentResponse registro de auditoría de un ítem aprobado.
type AdjustmentResponse struct {
	CorrectionID   string          `json:"correction_id"`
	ProductID      string          `json:"product_id"`
	BatchID        string          `json:"batch_id,omitempty"`
	UnitID         string          `json:"unit_id"`
	Location       LocationDTO     `json:"location"`
	SignedQuantity decimal.Decimal `json:"signed_quantity"`
	Applied        decimal.Decimal `json:"applied_quantity"`
	Amount         decimal.Decimal `json:"amount"`
	Line           int             `json:"line"` // -1 = ajuste sin línea
	Ambiguous      bool            `json:"ambiguous"`
	Candidates     int             `json:"candidates"`
	Unconvertible  bool            `json:"unconvertible,omitempty"`
}

// AdjustedItemResponse línea original con su cantidad y total ajustados.
type AdjustedItemResponse struct {
	LineID             string               `json:"line_id"`
	ProductID          string               `json:"product_id"`
	BatchID            string               `json:"batch_id,omitempty"`
	UnitID             string               `json:"unit_id"`
	OriginalQuantity   decimal.Decimal      `json:"original_quantity"`
	UnitPrice          decimal.Decimal      `json:"unit_price"`
	OriginalTotalPrice decimal.Decimal      `json:"original_total_price"`
	FinalQuantity      decimal.Decimal      `json:"final_quantity"`
	AdjustedTotalPrice decimal.Decimal      `json:"adjusted_total_price"`
	Adjustments        []AdjustmentResponse `json:"adjustments"`
}

// ReconciliationResponse cuerpo de GET /api/transactions/:kind/:id/reconciliation.
type ReconciliationResponse struct {
	TransactionID  string                 `json:"transaction_id"`
	Kind           string                 `json:"kind"`
	GrandTotal     decimal.Decimal        `json:"grand_total"`
	NetDelta       decimal.Decimal        `json:"net_delta"`
	NetTotal       decimal.Decimal        `json:"net_total"`
	AdjustedItems  []AdjustedItemResponse `json:"adjusted_items"`
	Unmatched      []AdjustmentResponse   `json:"unmatched_adjustments"`
	Ambiguous      []AdjustmentResponse   `json:"ambiguous_matches"`
	IgnoredPending []string               `json:"ignored_corrections"`
}
