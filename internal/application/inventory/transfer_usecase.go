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

// TransferUseCase máquina de estados de traslados: PENDING -> COMPLETED | CANCELLED.
// Modelo de reserva: el origen se debita al crear; el destino se acredita al completar.
type TransferUseCase struct {
	txRunner    TxRunner
	catalogRepo repository.CatalogRepository
	metrics     Metrics
	log         *logger.Logger
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(txRunner TxRunner, catalogRepo repository.CatalogRepository, metrics Metrics, log *logger.Logger) *TransferUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TransferUseCase{txRunner: txRunner, catalogRepo: catalogRepo, metrics: metrics, log: log}
}

// TransferItemInput cantidad en UnitID.
type TransferItemInput struct {
	ProductID string
	BatchID   string
	UnitID    string
	Quantity  decimal.Decimal
}

// CreateTransferInput entrada de Create. ID opcional: si el cliente lo envía, un reintento
// con el mismo ID devuelve el traslado ya creado sin debitar dos veces.
type CreateTransferInput struct {
	ID          string
	CompanyID   string
	UserID      string
	Source      entity.Location
	Destination entity.Location
	Items       []TransferItemInput
}

// Create valida origen != destino y disponibilidad de cada ítem, debita el origen de todos los
// ítems a la vez y persiste el traslado en PENDING. Si un ítem no alcanza, nada se debita.
func (uc *TransferUseCase) Create(ctx context.Context, in CreateTransferInput) (*entity.Transfer, error) {
	if !in.Source.Valid() || !in.Destination.Valid() || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.Source.Equal(in.Destination) {
		return nil, domain.ErrSelfTransfer
	}
	unitIDs := make([]string, 0, len(in.Items))
	batchIDs := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" || it.UnitID == "" || !it.Quantity.IsPositive() {
			return nil, domain.ErrInvalidInput
		}
		unitIDs = append(unitIDs, it.UnitID)
		batchIDs = append(batchIDs, it.BatchID)
	}
	cat, err := loadCatalog(ctx, uc.catalogRepo, unitIDs, batchIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := &entity.Transfer{
		ID:          in.ID,
		CompanyID:   in.CompanyID,
		Source:      in.Source,
		Destination: in.Destination,
		Status:      entity.TransferPending,
		CreatedBy:   in.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	for _, it := range in.Items {
		if !cat.BatchBelongs(it.ProductID, it.BatchID) {
			return nil, fmt.Errorf("lote %s no pertenece al producto %s: %w", it.BatchID, it.ProductID, domain.ErrInvalidInput)
		}
		t.Items = append(t.Items, entity.TransferItem{
			ID:         uuid.New().String(),
			TransferID: t.ID,
			ProductID:  it.ProductID,
			BatchID:    it.BatchID,
			UnitID:     it.UnitID,
			Quantity:   it.Quantity,
		})
	}
	debits, err := transferDeltas(cat, t, t.SourceKey, true)
	if err != nil {
		return nil, err
	}

	var existing *entity.Transfer
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		existing = nil
		fresh, err := repos.Ledger.MarkOperation(ctx, "transfer:"+t.ID+":create")
		if err != nil {
			return err
		}
		if !fresh {
			existing, err = repos.Transfers.GetByID(ctx, t.ID)
			if err != nil {
				return err
			}
			if existing == nil || !companyMatches(in.CompanyID, existing.CompanyID) || !sameTransferRequest(existing, t) {
				existing = nil
				return fmt.Errorf("traslado %s ya existe con otro contenido: %w", t.ID, domain.ErrDuplicate)
			}
			return nil
		}
		if err := applyDeltas(ctx, repos, debits, movementInfo{
			OperationID: "transfer:" + t.ID + ":create",
			Type:        entity.MovementTypeTransferOut,
			Reference:   t.ID,
			UserID:      in.UserID,
		}, now); err != nil {
			return err
		}
		return repos.Transfers.Create(ctx, t)
	})
	if err != nil {
		uc.metrics.LedgerDelta("rejected")
		return nil, err
	}
	if existing != nil {
		uc.metrics.LedgerDelta("duplicate")
		return existing, nil
	}
	uc.metrics.LedgerDelta("applied")
	uc.metrics.TransferTransition(entity.TransferPending)
	uc.log.Info().
		Str("transfer_id", t.ID).
		Str("source", t.Source.String()).
		Str("destination", t.Destination.String()).
		Int("items", len(t.Items)).
		Msg("traslado creado, origen debitado")
	return t, nil
}

// Complete acredita el destino y pasa a COMPLETED. Requiere acceso del actor a la ubicación destino
// (por identidad). Completar un traslado ya COMPLETED es un no-op exitoso; uno CANCELLED falla.
func (uc *TransferUseCase) Complete(ctx context.Context, id string, actor entity.Actor) (*entity.Transfer, error) {
	var out *entity.Transfer
	applied := false
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		applied = false
		t, err := uc.lockTransfer(ctx, repos, id, actor)
		if err != nil {
			return err
		}
		out = t
		if !actor.HasDestinationAccess(t.Destination) {
			return fmt.Errorf("usuario %s, destino %s: %w", actor.UserID, t.Destination, domain.ErrAccessDenied)
		}
		switch t.Status {
		case entity.TransferCompleted:
			return nil
		case entity.TransferCancelled:
			return uc.invalidTransition(t, entity.TransferCompleted)
		}
		cat, err := uc.catalogFor(ctx, t)
		if err != nil {
			return err
		}
		credits, err := transferDeltas(cat, t, t.DestinationKey, false)
		if err != nil {
			return err
		}
		if err := uc.transition(ctx, repos, t, entity.TransferCompleted, credits, entity.MovementTypeTransferIn, actor.UserID); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if applied {
		uc.metrics.TransferTransition(entity.TransferCompleted)
		uc.log.Info().Str("transfer_id", id).Str("user_id", actor.UserID).Msg("traslado completado, destino acreditado")
	}
	return out, nil
}

// Cancel devuelve el stock al origen (revierte exactamente el débito de la creación) y pasa a CANCELLED.
// Solo requiere el permiso genérico de cancelación. Cancelar uno COMPLETED falla.
func (uc *TransferUseCase) Cancel(ctx context.Context, id string, actor entity.Actor) (*entity.Transfer, error) {
	if !actor.Can(entity.PermTransferCancel) {
		return nil, domain.ErrForbidden
	}
	var out *entity.Transfer
	applied := false
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		applied = false
		t, err := uc.lockTransfer(ctx, repos, id, actor)
		if err != nil {
			return err
		}
		out = t
		switch t.Status {
		case entity.TransferCancelled:
			return nil
		case entity.TransferCompleted:
			return uc.invalidTransition(t, entity.TransferCancelled)
		}
		cat, err := uc.catalogFor(ctx, t)
		if err != nil {
			return err
		}
		credits, err := transferDeltas(cat, t, t.SourceKey, false)
		if err != nil {
			return err
		}
		if err := uc.transition(ctx, repos, t, entity.TransferCancelled, credits, entity.MovementTypeTransferBack, actor.UserID); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if applied {
		uc.metrics.TransferTransition(entity.TransferCancelled)
		uc.log.Info().Str("transfer_id", id).Str("user_id", actor.UserID).Msg("traslado cancelado, origen acreditado")
	}
	return out, nil
}

// Get obtiene un traslado de la empresa del actor.
func (uc *TransferUseCase) Get(ctx context.Context, id string, actor entity.Actor) (*entity.Transfer, error) {
	var out *entity.Transfer
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		t, err := repos.Transfers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil || !sameCompany(actor, t.CompanyID) {
			return domain.ErrNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (uc *TransferUseCase) lockTransfer(ctx context.Context, repos TxRepos, id string, actor entity.Actor) (*entity.Transfer, error) {
	t, err := repos.Transfers.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || !sameCompany(actor, t.CompanyID) {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (uc *TransferUseCase) transition(
	ctx context.Context,
	repos TxRepos,
	t *entity.Transfer,
	to entity.TransferStatus,
	credits []entity.LedgerDelta,
	movementType, userID string,
) error {
	if !t.Status.CanTransitionTo(to) {
		return uc.invalidTransition(t, to)
	}
	opID := "transfer:" + t.ID + ":" + string(to)
	fresh, err := repos.Ledger.MarkOperation(ctx, opID)
	if err != nil {
		return err
	}
	if fresh {
		if err := applyDeltas(ctx, repos, credits, movementInfo{
			OperationID: opID,
			Type:        movementType,
			Reference:   t.ID,
			UserID:      userID,
		}, time.Now()); err != nil {
			return err
		}
	}
	if err := repos.Transfers.UpdateStatus(ctx, t.ID, to); err != nil {
		return err
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	return nil
}

func (uc *TransferUseCase) invalidTransition(t *entity.Transfer, to entity.TransferStatus) error {
	uc.log.Warn().
		Str("transfer_id", t.ID).
		Str("from", string(t.Status)).
		Str("to", string(to)).
		Msg("transición de traslado rechazada")
	return fmt.Errorf("traslado %s %s -> %s: %w", t.ID, t.Status, to, domain.ErrInvalidTransition)
}

func (uc *TransferUseCase) catalogFor(ctx context.Context, t *entity.Transfer) (*domaininv.Catalog, error) {
	unitIDs := make([]string, 0, len(t.Items))
	for _, it := range t.Items {
		unitIDs = append(unitIDs, it.UnitID)
	}
	return loadCatalog(ctx, uc.catalogRepo, unitIDs, nil)
}

// transferDeltas convierte cada ítem a unidades base sobre la fila indicada por keyFn.
func transferDeltas(cat *domaininv.Catalog, t *entity.Transfer, keyFn func(entity.TransferItem) entity.LedgerKey, debit bool) ([]entity.LedgerDelta, error) {
	keys := make([]entity.LedgerKey, 0, len(t.Items))
	quantities := make([]decimal.Decimal, 0, len(t.Items))
	for _, it := range t.Items {
		q := it.Quantity
		if debit {
			q = q.Neg()
		}
		keys = append(keys, keyFn(it))
		quantities = append(quantities, q)
	}
	return baseDeltas(cat, keys, quantities)
}

func sameCompany(actor entity.Actor, companyID string) bool {
	return companyMatches(actor.CompanyID, companyID)
}

// sameTransferRequest true si el reintento pide el mismo traslado: mismas ubicaciones e ítems en orden.
func sameTransferRequest(existing, retry *entity.Transfer) bool {
	if !existing.Source.Equal(retry.Source) || !existing.Destination.Equal(retry.Destination) ||
		len(existing.Items) != len(retry.Items) {
		return false
	}
	for i, a := range existing.Items {
		b := retry.Items[i]
		if a.ProductID != b.ProductID || a.BatchID != b.BatchID || a.UnitID != b.UnitID || !a.Quantity.Equal(b.Quantity) {
			return false
		}
	}
	return true
}

// companyMatches vacío en cualquier lado = sin multiempresa.
func companyMatches(a, b string) bool {
	return a == "" || b == "" || a == b
}
