package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distingue ventas de compras.
type TransactionKind string

const (
	TransactionSale     TransactionKind = "SALE"
	TransactionPurchase TransactionKind = "PURCHASE"
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (k TransactionKind) Valid() bool {
	return k == TransactionSale || k == TransactionPurchase
}

// TransactionItem línea histórica de venta o compra; el motor nunca la reescribe.
type TransactionItem struct {
	ID         string
	ProductID  string
	Location   Location // tienda en ventas, bodega en compras; puede venir vacía
	BatchID    string
	UnitID     string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal // Quantity * UnitPrice
}

// Transaction venta o compra con su total original y el total neto tras correcciones aprobadas.
type Transaction struct {
	ID         string
	CompanyID  string
	Kind       TransactionKind
	GrandTotal decimal.Decimal
	NetTotal   decimal.Decimal
	Items      []TransactionItem
	Date       time.Time
}
