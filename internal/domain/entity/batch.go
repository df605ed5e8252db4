package entity

import "time"

// Batch es un lote de recepción de un producto. Se crea al comprar y solo se referencia después.
type Batch struct {
	ID          string
	ProductID   string
	BatchNumber string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// Expired indica si el lote venció en el instante dado (sin fecha de vencimiento nunca vence).
func (b *Batch) Expired(at time.Time) bool {
	return b.ExpiresAt != nil && !at.Before(*b.ExpiresAt)
}
