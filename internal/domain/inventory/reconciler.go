package inventory

import (
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Adjustment registro de auditoría de un ítem de corrección aprobado.
type Adjustment struct {
	CorrectionID   string
	ProductID      string
	BatchID        string
	UnitID         string
	Location       entity.Location
	SignedQuantity decimal.Decimal // en la unidad del ítem de corrección
	ItemIndex      int             // línea afectada o Unmatched
	Applied        decimal.Decimal // SignedQuantity expresada en la unidad de la línea
	Amount         decimal.Decimal // -Applied * UnitPrice; cero si no hay línea
	Candidates     int
	Unconvertible  bool  // la unidad del ítem no convierte a la de la línea emparejada
	Err            error // causa de Unconvertible
}

// Ambiguous ver MatchedItem.Ambiguous.
func (a Adjustment) Ambiguous() bool { return a.Candidates > 1 }

// AdjustedItem vista derivada de una línea después de las correcciones aprobadas.
type AdjustedItem struct {
	Item               entity.TransactionItem
	FinalQuantity      decimal.Decimal
	AdjustedTotalPrice decimal.Decimal
	Adjustments        []Adjustment
}

// Result salida de Reconcile.
type Result struct {
	TransactionID string
	AdjustedItems []AdjustedItem
	NetDelta      decimal.Decimal
	GrandTotal    decimal.Decimal
	NetTotal      decimal.Decimal // GrandTotal + NetDelta
	Unmatched     []Adjustment
	Ambiguous     []Adjustment
	Ignored       []string // correcciones no aprobadas (solo visualización)
}

// Reconcile aplica las correcciones APROBADAS a la vista de la transacción.
//
//	finalQuantity      = cantidad original + Σ cantidades con signo emparejadas
//	adjustedTotalPrice = finalQuantity * precio unitario original
//	netDelta           = Σ(-cantidad con signo * precio unitario)
//
// Un positivo (stock devuelto) reduce el total: dinero que vuelve a la contraparte.
// Cantidades finales negativas se reportan tal cual; solo el ledger puede rechazar movimientos.
// Un ítem cuya unidad no convierte a la de la línea va a Unmatched con Unconvertible; el resto se calcula igual.
func Reconcile(tx *entity.Transaction, corrections []*entity.StockCorrection, catalog *Catalog) *Result {
	if catalog == nil {
		catalog = NewCatalog(nil, nil)
	}
	res := &Result{
		TransactionID: tx.ID,
		AdjustedItems: make([]AdjustedItem, len(tx.Items)),
		NetDelta:      decimal.Zero,
		GrandTotal:    tx.GrandTotal,
	}
	for i, it := range tx.Items {
		res.AdjustedItems[i] = AdjustedItem{Item: it, FinalQuantity: it.Quantity}
	}

	for _, c := range corrections {
		if c == nil {
			continue
		}
		if !c.Approved() {
			res.Ignored = append(res.Ignored, c.ID)
			continue
		}
		for _, m := range Match(c, tx.Items) {
			adj := Adjustment{
				CorrectionID:   c.ID,
				ProductID:      m.Item.ProductID,
				BatchID:        m.Item.BatchID,
				UnitID:         m.Item.UnitID,
				Location:       m.Location,
				SignedQuantity: m.Item.SignedQuantity,
				ItemIndex:      m.ItemIndex,
				Applied:        decimal.Zero,
				Amount:         decimal.Zero,
				Candidates:     m.Candidates,
			}
			if !m.Matched() {
				res.Unmatched = append(res.Unmatched, adj)
				continue
			}
			line := &res.AdjustedItems[m.ItemIndex]
			applied := m.Item.SignedQuantity
			if m.Item.UnitID != "" && line.Item.UnitID != "" && m.Item.UnitID != line.Item.UnitID {
				converted, err := catalog.Convert(m.Item.ProductID, m.Item.UnitID, line.Item.UnitID, applied)
				if err != nil {
					adj.Unconvertible, adj.Err = true, err
					res.Unmatched = append(res.Unmatched, adj)
					continue
				}
				applied = converted
			}
			adj.Applied = applied
			adj.Amount = applied.Neg().Mul(line.Item.UnitPrice)
			line.FinalQuantity = line.FinalQuantity.Add(applied)
			line.Adjustments = append(line.Adjustments, adj)
			res.NetDelta = res.NetDelta.Add(adj.Amount)
			if adj.Ambiguous() {
				res.Ambiguous = append(res.Ambiguous, adj)
			}
		}
	}

	for i := range res.AdjustedItems {
		line := &res.AdjustedItems[i]
		line.AdjustedTotalPrice = line.FinalQuantity.Mul(line.Item.UnitPrice)
	}
	res.NetTotal = res.GrandTotal.Add(res.NetDelta)
	return res
}
