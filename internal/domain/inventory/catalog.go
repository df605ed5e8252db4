package inventory

import (
	"fmt"

	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Catalog datos de referencia (unidades y lotes) cargados para una sola petición.
// Es inmutable después de construido; no hay caché global compartida entre operadores.
type Catalog struct {
	units   map[string]entity.UnitOfMeasure
	batches map[string]entity.Batch
}

// NewCatalog copia las unidades y lotes recibidos.
func NewCatalog(units []*entity.UnitOfMeasure, batches []*entity.Batch) *Catalog {
	c := &Catalog{
		units:   make(map[string]entity.UnitOfMeasure, len(units)),
		batches: make(map[string]entity.Batch, len(batches)),
	}
	for _, u := range units {
		if u != nil {
			c.units[u.ID] = *u
		}
	}
	for _, b := range batches {
		if b != nil {
			c.batches[b.ID] = *b
		}
	}
	return c
}

// Unit devuelve la unidad si existe y pertenece al producto.
func (c *Catalog) Unit(productID, unitID string) (entity.UnitOfMeasure, error) {
	u, ok := c.units[unitID]
	if !ok || u.ProductID != productID {
		return entity.UnitOfMeasure{}, fmt.Errorf("unidad %s, producto %s: %w", unitID, productID, domain.ErrUnknownUnit)
	}
	return u, nil
}

// BatchBelongs indica si el lote existe y es del producto. Un lote vacío siempre es válido.
func (c *Catalog) BatchBelongs(productID, batchID string) bool {
	if batchID == "" {
		return true
	}
	b, ok := c.batches[batchID]
	return ok && b.ProductID == productID
}

// ToBase convierte cantidad (en unitID) a unidades base.
func (c *Catalog) ToBase(productID, unitID string, quantity decimal.Decimal) (decimal.Decimal, error) {
	u, err := c.Unit(productID, unitID)
	if err != nil {
		return decimal.Zero, err
	}
	return ToBaseUnits(productID, quantity, u)
}

// FromBase convierte unidades base a unitID.
func (c *Catalog) FromBase(productID, unitID string, base decimal.Decimal) (decimal.Decimal, error) {
	u, err := c.Unit(productID, unitID)
	if err != nil {
		return decimal.Zero, err
	}
	return FromBaseUnits(productID, base, u)
}

// Convert pasa una cantidad de una unidad a otra del mismo producto, vía unidades base.
func (c *Catalog) Convert(productID, fromUnitID, toUnitID string, quantity decimal.Decimal) (decimal.Decimal, error) {
	if fromUnitID == toUnitID {
		return quantity, nil
	}
	base, err := c.ToBase(productID, fromUnitID, quantity)
	if err != nil {
		return decimal.Zero, err
	}
	return c.FromBase(productID, toUnitID, base)
}
