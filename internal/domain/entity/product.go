package entity

import "time"

// Product representa un producto del inventario. BaseUnitID es la unidad en la que se guarda el ledger.
// Inmutable una vez referenciado por entradas del ledger.
type Product struct {
	ID         string
	CompanyID  string
	Name       string
	BaseUnitID string
	CreatedAt  time.Time
}
