package entity

import "github.com/shopspring/decimal"

// UnitOfMeasure pertenece a un producto. ConversionFactor = cuántas unidades base equivale una unidad.
// Invariante: ConversionFactor > 0.
type UnitOfMeasure struct {
	ID               string
	ProductID        string
	Name             string
	ConversionFactor decimal.Decimal
	IsBase           bool
}
