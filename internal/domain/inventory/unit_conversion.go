package inventory

import (
	"fmt"

	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ToBaseUnits convierte una cantidad expresada en unit a unidades base del producto.
// base = cantidad * factor
func ToBaseUnits(productID string, quantity decimal.Decimal, unit entity.UnitOfMeasure) (decimal.Decimal, error) {
	if err := checkUnit(productID, unit); err != nil {
		return decimal.Zero, err
	}
	return quantity.Mul(unit.ConversionFactor), nil
}

// FromBaseUnits convierte unidades base a la unidad pedida.
// cantidad = base / factor
func FromBaseUnits(productID string, base decimal.Decimal, unit entity.UnitOfMeasure) (decimal.Decimal, error) {
	if err := checkUnit(productID, unit); err != nil {
		return decimal.Zero, err
	}
	return base.Div(unit.ConversionFactor), nil
}

func checkUnit(productID string, unit entity.UnitOfMeasure) error {
	if unit.ProductID != productID {
		return fmt.Errorf("unidad %s, producto %s: %w", unit.ID, productID, domain.ErrUnknownUnit)
	}
	if !unit.ConversionFactor.IsPositive() {
		return fmt.Errorf("unidad %s factor %s: %w", unit.ID, unit.ConversionFactor, domain.ErrInvalidConversionFactor)
	}
	return nil
}
