package main

import (
	"time"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
)

// seedDemo catálogo mínimo para el driver en memoria: un producto con unidad y caja de 12,
// una bodega, una tienda y usuarios de ejemplo para cada rol.
func seedDemo(s *memory.Store) error {
	err := s.AddProduct(
		entity.Product{ID: "demo-prod", Name: "Producto demo", BaseUnitID: "demo-und", CreatedAt: time.Now()},
		entity.UnitOfMeasure{ID: "demo-und", ProductID: "demo-prod", Name: "unidad", ConversionFactor: decimal.NewFromInt(1), IsBase: true},
		entity.UnitOfMeasure{ID: "demo-caja", ProductID: "demo-prod", Name: "caja x12", ConversionFactor: decimal.NewFromInt(12)},
	)
	if err != nil {
		return err
	}
	s.AddBatch(entity.Batch{ID: "demo-lote", ProductID: "demo-prod", BatchNumber: "DEMO-001", CreatedAt: time.Now()})

	s.SetActorLocations("demo-admin", []string{"demo-tienda"}, []string{"demo-bodega"})
	s.SetActorLocations("demo-bodeguero", nil, []string{"demo-bodega"})
	s.SetActorLocations("demo-vendedor", []string{"demo-tienda"}, nil)

	s.SetStock(entity.StockLedgerEntry{
		Key: entity.LedgerKey{
			Location:  entity.Location{Type: entity.LocationStore, ID: "demo-bodega"},
			ProductID: "demo-prod",
			BatchID:   "demo-lote",
			UnitID:    "demo-caja",
		},
		Quantity:  decimal.NewFromInt(240),
		UpdatedAt: time.Now(),
	})
	return nil
}
