package inventory

import (
	"context"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Ledger       repository.LedgerRepository
	Movements    repository.InventoryMovementRepository
	Corrections  repository.CorrectionRepository
	Transfers    repository.TransferRepository
	Transactions repository.TransactionRepository
}

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: si fn devuelve error no queda ningún efecto.
// fn puede re-ejecutarse ante un conflicto de escritura; no debe tener efectos fuera de repos.
// RunReadOnly ejecuta fn sobre una única foto consistente; fn no debe escribir.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
	RunReadOnly(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

// Metrics contadores del motor. Resultados de ledger: "applied", "rejected", "duplicate".
type Metrics interface {
	LedgerDelta(result string)
	TransferTransition(to entity.TransferStatus)
	CorrectionTransition(to entity.CorrectionStatus)
	AmbiguousMatch()
}

// NopMetrics descarta todas las métricas.
type NopMetrics struct{}

func (NopMetrics) LedgerDelta(string)                           {}
func (NopMetrics) TransferTransition(entity.TransferStatus)     {}
func (NopMetrics) CorrectionTransition(entity.CorrectionStatus) {}
func (NopMetrics) AmbiguousMatch()                              {}
