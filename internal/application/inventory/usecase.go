package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-conciliacion/internal/domain/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
	"github.com/jhoicas/inventario-conciliacion/pkg/logger"
	"github.com/shopspring/decimal"
)

// LedgerUseCase expone el ledger de cantidades: consulta de disponible y deltas atómicos e idempotentes.
type LedgerUseCase struct {
	txRunner    TxRunner
	catalogRepo repository.CatalogRepository
	metrics     Metrics
	log         *logger.Logger
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner TxRunner, catalogRepo repository.CatalogRepository, metrics Metrics, log *logger.Logger) *LedgerUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerUseCase{txRunner: txRunner, catalogRepo: catalogRepo, metrics: metrics, log: log}
}

// ApplyDeltaInput delta con signo en unidades base sobre una fila del ledger.
// OperationID hace idempotente el reintento; vacío = operación nueva.
type ApplyDeltaInput struct {
	OperationID string
	UserID      string
	Key         entity.LedgerKey
	Delta       decimal.Decimal
}

// AvailableQuantity devuelve el disponible de la fila expresado en la unidad de la clave.
// Sin fila devuelve 0.
func (uc *LedgerUseCase) AvailableQuantity(ctx context.Context, key entity.LedgerKey) (decimal.Decimal, error) {
	if err := validateKey(key); err != nil {
		return decimal.Zero, err
	}
	cat, err := loadCatalog(ctx, uc.catalogRepo, []string{key.UnitID}, nil)
	if err != nil {
		return decimal.Zero, err
	}
	unit, err := cat.Unit(key.ProductID, key.UnitID)
	if err != nil {
		return decimal.Zero, err
	}
	var base decimal.Decimal
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		entry, err := repos.Ledger.Get(ctx, key)
		if err != nil {
			return err
		}
		base = entry.Quantity
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return domaininv.FromBaseUnits(key.ProductID, base, unit)
}

// ApplyDelta ajusta la fila de forma atómica. Falla con ErrInsufficientStock si quedaría negativa,
// sin modificar nada. Un OperationID ya aplicado devuelve éxito sin volver a aplicar.
func (uc *LedgerUseCase) ApplyDelta(ctx context.Context, in ApplyDeltaInput) error {
	if err := validateKey(in.Key); err != nil {
		return err
	}
	if in.Delta.IsZero() {
		return domain.ErrInvalidInput
	}
	if err := checkScale(in.Delta); err != nil {
		return err
	}
	cat, err := loadCatalog(ctx, uc.catalogRepo, []string{in.Key.UnitID}, []string{in.Key.BatchID})
	if err != nil {
		return err
	}
	if _, err := cat.Unit(in.Key.ProductID, in.Key.UnitID); err != nil {
		return err
	}
	if !cat.BatchBelongs(in.Key.ProductID, in.Key.BatchID) {
		return fmt.Errorf("lote %s: %w", in.Key.BatchID, domain.ErrInvalidInput)
	}
	opID := in.OperationID
	if opID == "" {
		opID = uuid.New().String()
	}

	duplicate := false
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		duplicate = false
		fresh, err := repos.Ledger.MarkOperation(ctx, "ledger:"+opID)
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}
		return applyDeltas(ctx, repos, []entity.LedgerDelta{{Key: in.Key, Delta: in.Delta}}, movementInfo{
			OperationID: opID,
			Type:        entity.MovementTypeAdjustment,
			Reference:   opID,
			UserID:      in.UserID,
		}, time.Now())
	})
	switch {
	case err != nil:
		uc.metrics.LedgerDelta("rejected")
		return err
	case duplicate:
		uc.metrics.LedgerDelta("duplicate")
		uc.log.Info().Str("operation_id", opID).Msg("delta de ledger ya aplicado, se ignora el reintento")
	default:
		uc.metrics.LedgerDelta("applied")
	}
	return nil
}

// ListLocationStock lista las filas del ledger de una ubicación (cantidades en unidades base).
func (uc *LedgerUseCase) ListLocationStock(ctx context.Context, loc entity.Location) ([]*entity.StockLedgerEntry, error) {
	if !loc.Valid() {
		return nil, domain.ErrInvalidInput
	}
	var out []*entity.StockLedgerEntry
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		list, err := repos.Ledger.ListByLocation(ctx, loc)
		out = list
		return err
	})
	return out, err
}

func validateKey(key entity.LedgerKey) error {
	if !key.Location.Valid() || key.ProductID == "" || key.UnitID == "" {
		return domain.ErrInvalidInput
	}
	return nil
}
