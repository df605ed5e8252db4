package inventory

import "github.com/jhoicas/inventario-conciliacion/internal/domain/entity"

// Unmatched índice de línea para un ajuste sin línea de origen.
const Unmatched = -1

// MatchedItem resultado del emparejamiento de un ítem de corrección.
type MatchedItem struct {
	CorrectionID string
	Location     entity.Location
	Item         entity.CorrectionItem
	ItemIndex    int // índice en transaction.Items, o Unmatched
	Candidates   int // líneas igualmente válidas antes de elegir
}

// Matched indica si el ítem quedó asociado a una línea.
func (m MatchedItem) Matched() bool { return m.ItemIndex != Unmatched }

// Ambiguous más de una línea válida; se eligió la primera en orden del arreglo.
func (m MatchedItem) Ambiguous() bool { return m.Candidates > 1 }

// Match empareja cada ítem de la corrección con una línea de la transacción.
//
// Candidatas: mismo producto y, si ambos lados traen ubicación, misma ubicación.
// El lote desambigua sin excluir: si alguna candidata tiene el lote del ítem se reduce a ellas,
// si ninguna lo tiene se conservan todas. Se toma la primera candidata; sin candidatas el ítem
// queda como ajuste independiente. Nunca falla.
func Match(correction *entity.StockCorrection, items []entity.TransactionItem) []MatchedItem {
	out := make([]MatchedItem, 0, len(correction.Items))
	for _, ci := range correction.Items {
		var candidates []int
		for i, it := range items {
			if it.ProductID != ci.ProductID {
				continue
			}
			if correction.Location.ID != "" && it.Location.ID != "" && !correction.Location.Equal(it.Location) {
				continue
			}
			candidates = append(candidates, i)
		}
		if ci.BatchID != "" {
			var sameBatch []int
			for _, i := range candidates {
				if items[i].BatchID == ci.BatchID {
					sameBatch = append(sameBatch, i)
				}
			}
			if len(sameBatch) > 0 {
				candidates = sameBatch
			}
		}
		m := MatchedItem{
			CorrectionID: correction.ID,
			Location:     correction.Location,
			Item:         ci,
			ItemIndex:    Unmatched,
			Candidates:   len(candidates),
		}
		if len(candidates) > 0 {
			m.ItemIndex = candidates[0]
		}
		out = append(out, m)
	}
	return out
}
