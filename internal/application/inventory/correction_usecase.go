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

// CorrectionUseCase crea correcciones de stock, aplica su aprobación al ledger y concilia
// las ventas/compras enlazadas.
type CorrectionUseCase struct {
	txRunner    TxRunner
	catalogRepo repository.CatalogRepository
	metrics     Metrics
	log         *logger.Logger
}

// NewCorrectionUseCase construye el caso de uso.
func NewCorrectionUseCase(txRunner TxRunner, catalogRepo repository.CatalogRepository, metrics Metrics, log *logger.Logger) *CorrectionUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CorrectionUseCase{txRunner: txRunner, catalogRepo: catalogRepo, metrics: metrics, log: log}
}

// CorrectionItemInput cantidad con signo en UnitID.
type CorrectionItemInput struct {
	ProductID      string
	BatchID        string
	UnitID         string
	SignedQuantity decimal.Decimal
}

// CreateCorrectionInput entrada de Create.
type CreateCorrectionInput struct {
	CompanyID  string
	UserID     string
	Reason     entity.CorrectionReason
	PurchaseID string
	SellID     string
	Location   entity.Location
	Note       string
	Items      []CorrectionItemInput
}

// ReconciliationOutput vista conciliada de una transacción.
type ReconciliationOutput struct {
	Transaction *entity.Transaction
	Result      *domaininv.Result
	Corrections []*entity.StockCorrection
}

// Create valida y persiste una corrección en PENDING. Los ítems en cero se descartan; debe quedar
// al menos uno. Los ítems negativos se validan contra el disponible del ledger (sin debitar).
func (uc *CorrectionUseCase) Create(ctx context.Context, in CreateCorrectionInput) (*entity.StockCorrection, error) {
	if !in.Reason.Valid() || !in.Location.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if in.PurchaseID != "" && in.SellID != "" {
		return nil, fmt.Errorf("compra y venta a la vez: %w", domain.ErrInvalidInput)
	}
	now := time.Now()
	c := &entity.StockCorrection{
		ID:         uuid.New().String(),
		CompanyID:  in.CompanyID,
		Reason:     in.Reason,
		PurchaseID: in.PurchaseID,
		SellID:     in.SellID,
		Location:   in.Location,
		Status:     entity.CorrectionPending,
		Note:       in.Note,
		CreatedBy:  in.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.UnitID == "" {
			return nil, domain.ErrInvalidInput
		}
		c.Items = append(c.Items, entity.CorrectionItem{
			ID:             uuid.New().String(),
			CorrectionID:   c.ID,
			ProductID:      it.ProductID,
			BatchID:        it.BatchID,
			UnitID:         it.UnitID,
			SignedQuantity: it.SignedQuantity,
		})
	}
	if c.DropZeroItems() == 0 {
		return nil, fmt.Errorf("sin ítems con cantidad distinta de cero: %w", domain.ErrInvalidInput)
	}

	cat, err := uc.catalogFor(ctx, c.Items, nil)
	if err != nil {
		return nil, err
	}
	for _, it := range c.Items {
		if !cat.BatchBelongs(it.ProductID, it.BatchID) {
			return nil, fmt.Errorf("lote %s no pertenece al producto %s: %w", it.BatchID, it.ProductID, domain.ErrInvalidInput)
		}
	}
	deltas, err := correctionDeltas(cat, c)
	if err != nil {
		return nil, err
	}

	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		if kind, txID, ok := c.TransactionRef(); ok {
			tx, err := repos.Transactions.GetByID(ctx, kind, txID)
			if err != nil {
				return err
			}
			if tx == nil || !companyMatches(in.CompanyID, tx.CompanyID) {
				return fmt.Errorf("transacción %s %s: %w", kind, txID, domain.ErrNotFound)
			}
		}
		if err := checkAvailability(ctx, repos, deltas); err != nil {
			return err
		}
		return repos.Corrections.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.CorrectionTransition(entity.CorrectionPending)
	uc.log.Info().
		Str("correction_id", c.ID).
		Str("reason", string(c.Reason)).
		Str("location", c.Location.String()).
		Int("items", len(c.Items)).
		Msg("corrección registrada")
	return c, nil
}

// Get obtiene una corrección de la empresa del actor.
func (uc *CorrectionUseCase) Get(ctx context.Context, id string, actor entity.Actor) (*entity.StockCorrection, error) {
	var out *entity.StockCorrection
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		c, err := repos.Corrections.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil || !sameCompany(actor, c.CompanyID) {
			return domain.ErrNotFound
		}
		out = c
		return nil
	})
	return out, err
}

// UpdateStatus aplica una transición de la tabla cerrada. Al aprobar: aplica los deltas de todos los
// ítems al ledger (todo o nada) y, si hay venta/compra enlazada, persiste su total neto.
// Repetir el estado actual es un no-op exitoso.
func (uc *CorrectionUseCase) UpdateStatus(ctx context.Context, id string, status entity.CorrectionStatus, actor entity.Actor) (*entity.StockCorrection, error) {
	if !actor.Can(entity.PermCorrectionApprove) {
		return nil, domain.ErrForbidden
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.StockCorrection
	var ambiguous []domaininv.Adjustment
	changed := false
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		changed, ambiguous = false, nil
		c, err := repos.Corrections.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c == nil || !sameCompany(actor, c.CompanyID) {
			return domain.ErrNotFound
		}
		out = c
		if c.Status == status {
			return nil
		}
		if !c.Status.CanTransitionTo(status) {
			uc.log.Warn().
				Str("correction_id", c.ID).
				Str("from", string(c.Status)).
				Str("to", string(status)).
				Msg("transición de corrección rechazada")
			return fmt.Errorf("corrección %s %s -> %s: %w", c.ID, c.Status, status, domain.ErrInvalidTransition)
		}
		if status == entity.CorrectionApproved {
			amb, err := uc.approve(ctx, repos, c, actor.UserID)
			if err != nil {
				return err
			}
			ambiguous = amb
		}
		if err := repos.Corrections.UpdateStatus(ctx, c.ID, status); err != nil {
			return err
		}
		c.Status = status
		c.UpdatedAt = time.Now()
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		uc.metrics.CorrectionTransition(status)
		uc.logAmbiguous(ambiguous)
		uc.log.Info().Str("correction_id", id).Str("status", string(status)).Msg("estado de corrección actualizado")
	}
	return out, nil
}

// approve aplica los deltas al ledger y recalcula el total neto de la transacción enlazada.
// La cabecera de la venta/compra se bloquea antes de leer sus correcciones.
func (uc *CorrectionUseCase) approve(ctx context.Context, repos TxRepos, c *entity.StockCorrection, userID string) ([]domaininv.Adjustment, error) {
	kind, txID, linked := c.TransactionRef()
	var tx *entity.Transaction
	if linked {
		var err error
		tx, err = repos.Transactions.GetForUpdate(ctx, kind, txID)
		if err != nil {
			return nil, err
		}
		if tx == nil || !companyMatches(c.CompanyID, tx.CompanyID) {
			return nil, fmt.Errorf("transacción %s %s: %w", kind, txID, domain.ErrNotFound)
		}
	}

	cat, err := uc.catalogFor(ctx, c.Items, nil)
	if err != nil {
		return nil, err
	}
	deltas, err := correctionDeltas(cat, c)
	if err != nil {
		return nil, err
	}
	opID := "correction:" + c.ID + ":approve"
	fresh, err := repos.Ledger.MarkOperation(ctx, opID)
	if err != nil {
		return nil, err
	}
	if fresh {
		if err := applyDeltas(ctx, repos, deltas, movementInfo{
			OperationID: opID,
			Type:        entity.MovementTypeCorrection,
			Reference:   c.ID,
			UserID:      userID,
		}, time.Now()); err != nil {
			return nil, err
		}
	}

	if !linked {
		return nil, nil
	}
	corrections, err := correctionsOf(ctx, repos, tx)
	if err != nil {
		return nil, err
	}
	approved := *c
	approved.Status = entity.CorrectionApproved
	replaced := false
	for i, other := range corrections {
		if other.ID == c.ID {
			corrections[i] = &approved
			replaced = true
		}
	}
	if !replaced {
		corrections = append(corrections, &approved)
	}
	res, err := uc.reconcile(ctx, tx, corrections)
	if err != nil {
		return nil, err
	}
	if err := repos.Transactions.UpdateNetTotal(ctx, kind, txID, res.NetTotal); err != nil {
		return nil, err
	}
	return res.Ambiguous, nil
}

// ReconcileTransaction devuelve la vista ajustada de una venta/compra con sus correcciones.
// Transacción y correcciones se leen en una tx de solo lectura (una misma foto).
func (uc *CorrectionUseCase) ReconcileTransaction(ctx context.Context, kind entity.TransactionKind, id string, actor entity.Actor) (*ReconciliationOutput, error) {
	if !kind.Valid() || id == "" {
		return nil, domain.ErrInvalidInput
	}
	var tx *entity.Transaction
	var corrections []*entity.StockCorrection
	err := uc.txRunner.RunReadOnly(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		tx, corrections, err = loadTransaction(ctx, repos, kind, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !sameCompany(actor, tx.CompanyID) {
		return nil, domain.ErrNotFound
	}
	res, err := uc.reconcile(ctx, tx, corrections)
	if err != nil {
		return nil, err
	}
	uc.logAmbiguous(res.Ambiguous)
	return &ReconciliationOutput{Transaction: tx, Result: res, Corrections: corrections}, nil
}

func (uc *CorrectionUseCase) reconcile(ctx context.Context, tx *entity.Transaction, corrections []*entity.StockCorrection) (*domaininv.Result, error) {
	var items []entity.CorrectionItem
	for _, c := range corrections {
		items = append(items, c.Items...)
	}
	lineUnits := make([]string, 0, len(tx.Items))
	for _, it := range tx.Items {
		lineUnits = append(lineUnits, it.UnitID)
	}
	cat, err := uc.catalogFor(ctx, items, lineUnits)
	if err != nil {
		return nil, err
	}
	res := domaininv.Reconcile(tx, corrections, cat)
	for _, a := range res.Unmatched {
		if a.Unconvertible {
			uc.log.Warn().
				Str("transaction_id", tx.ID).
				Str("correction_id", a.CorrectionID).
				Str("unit_id", a.UnitID).
				Err(a.Err).
				Msg("ítem de corrección sin conversión a la unidad de la línea")
		}
	}
	return res, nil
}

func (uc *CorrectionUseCase) logAmbiguous(list []domaininv.Adjustment) {
	for _, a := range list {
		uc.metrics.AmbiguousMatch()
		uc.log.Warn().
			Str("correction_id", a.CorrectionID).
			Str("product_id", a.ProductID).
			Str("location", a.Location.String()).
			Int("candidates", a.Candidates).
			Int("line", a.ItemIndex).
			Err(domain.ErrAmbiguousMatch).
			Msg("corrección emparejada con la primera línea candidata")
	}
}

func (uc *CorrectionUseCase) catalogFor(ctx context.Context, items []entity.CorrectionItem, extraUnits []string) (*domaininv.Catalog, error) {
	unitIDs := append([]string(nil), extraUnits...)
	batchIDs := make([]string, 0, len(items))
	for _, it := range items {
		unitIDs = append(unitIDs, it.UnitID)
		batchIDs = append(batchIDs, it.BatchID)
	}
	return loadCatalog(ctx, uc.catalogRepo, unitIDs, batchIDs)
}

func loadTransaction(ctx context.Context, repos TxRepos, kind entity.TransactionKind, id string) (*entity.Transaction, []*entity.StockCorrection, error) {
	tx, err := repos.Transactions.GetByID(ctx, kind, id)
	if err != nil {
		return nil, nil, err
	}
	if tx == nil {
		return nil, nil, fmt.Errorf("transacción %s %s: %w", kind, id, domain.ErrNotFound)
	}
	corrections, err := correctionsOf(ctx, repos, tx)
	if err != nil {
		return nil, nil, err
	}
	return tx, corrections, nil
}

// correctionsOf correcciones enlazadas a tx, solo de la misma empresa.
func correctionsOf(ctx context.Context, repos TxRepos, tx *entity.Transaction) ([]*entity.StockCorrection, error) {
	list, err := repos.Corrections.ListByTransaction(ctx, tx.Kind, tx.ID)
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, c := range list {
		if companyMatches(c.CompanyID, tx.CompanyID) {
			out = append(out, c)
		}
	}
	return out, nil
}

// correctionDeltas un delta por ítem sobre la ubicación de la corrección, en unidades base.
// Positivo devuelve al stock; negativo descuenta.
func correctionDeltas(cat *domaininv.Catalog, c *entity.StockCorrection) ([]entity.LedgerDelta, error) {
	keys := make([]entity.LedgerKey, 0, len(c.Items))
	quantities := make([]decimal.Decimal, 0, len(c.Items))
	for _, it := range c.Items {
		keys = append(keys, entity.LedgerKey{Location: c.Location, ProductID: it.ProductID, BatchID: it.BatchID, UnitID: it.UnitID})
		quantities = append(quantities, it.SignedQuantity)
	}
	return baseDeltas(cat, keys, quantities)
}

// checkAvailability valida que los deltas negativos no dejen filas en negativo, sin escribir.
func checkAvailability(ctx context.Context, repos TxRepos, deltas []entity.LedgerDelta) error {
	need := make(map[string]decimal.Decimal)
	keys := make(map[string]entity.LedgerKey)
	for _, d := range deltas {
		k := d.Key.String()
		need[k] = need[k].Add(d.Delta)
		keys[k] = d.Key
	}
	for k, delta := range need {
		if !delta.IsNegative() {
			continue
		}
		entry, err := repos.Ledger.Get(ctx, keys[k])
		if err != nil {
			return err
		}
		if entry.Quantity.Add(delta).IsNegative() {
			return fmt.Errorf("%s: disponible %s, delta %s: %w", k, entry.Quantity, delta, domain.ErrInsufficientStock)
		}
	}
	return nil
}
