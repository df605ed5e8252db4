// Package memory implementa todos los puertos del motor en memoria (STORAGE_DRIVER=memory).
// Las transacciones son optimistas: cada registro lleva versión, las escrituras se acumulan
// en la tx y se validan contra las versiones leídas al confirmar.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
	"github.com/jhoicas/inventario-conciliacion/pkg/logger"
	"github.com/shopspring/decimal"
)

// errWriteConflict otra tx confirmó un registro leído por esta; se reintenta.
var errWriteConflict = errors.New("memory: conflicto de escritura")

// Store estado compartido. mu protege todos los mapas; solo se toma en lecturas puntuales y al confirmar.
type Store struct {
	mu       sync.RWMutex
	versions map[string]uint64

	ledger       map[string]entity.StockLedgerEntry
	operations   map[string]struct{}
	movements    []entity.InventoryMovement
	corrections  map[string]entity.StockCorrection
	transfers    map[string]entity.Transfer
	transactions map[string]entity.Transaction

	units     map[string]entity.UnitOfMeasure
	batches   map[string]entity.Batch
	locations map[string]entity.ActorLocations

	retries int
	log     *logger.Logger
}

// NewStore crea un store vacío. retries = intentos ante conflicto (mínimo 1).
func NewStore(retries int, log *logger.Logger) *Store {
	if retries < 1 {
		retries = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		versions:     make(map[string]uint64),
		ledger:       make(map[string]entity.StockLedgerEntry),
		operations:   make(map[string]struct{}),
		corrections:  make(map[string]entity.StockCorrection),
		transfers:    make(map[string]entity.Transfer),
		transactions: make(map[string]entity.Transaction),
		units:        make(map[string]entity.UnitOfMeasure),
		batches:      make(map[string]entity.Batch),
		locations:    make(map[string]entity.ActorLocations),
		retries:      retries,
		log:          log,
	}
}

var (
	_ inventory.TxRunner                 = (*Store)(nil)
	_ repository.CatalogRepository       = (*Store)(nil)
	_ repository.ActorLocationRepository = (*Store)(nil)
)

// Run ejecuta fn en una tx optimista. Ante conflicto al confirmar se re-ejecuta fn hasta retries veces.
// Si el contexto se cancela antes de confirmar no se aplica nada.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.TxRepos) error) error {
	for attempt := 1; ; attempt++ {
		tx := newMemTx(s)
		if err := fn(ctx, tx.repos()); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.commit(tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errWriteConflict) {
			return err
		}
		if attempt >= s.retries {
			s.log.Warn().Int("attempts", attempt).Msg("tx en memoria agotó reintentos")
			return fmt.Errorf("tx en memoria tras %d intentos: %w", attempt, domain.ErrConflict)
		}
	}
}

// RunReadOnly ejecuta fn y valida que ningún registro leído cambió mientras tanto; si cambió se
// re-ejecuta, de modo que fn ve una foto consistente. Las escrituras se rechazan.
func (s *Store) RunReadOnly(ctx context.Context, fn func(ctx context.Context, repos inventory.TxRepos) error) error {
	for attempt := 1; ; attempt++ {
		tx := newMemTx(s)
		if err := fn(ctx, tx.repos()); err != nil {
			return err
		}
		if tx.dirty() {
			return fmt.Errorf("escritura en tx de solo lectura: %w", domain.ErrInvalidInput)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.readsStable(tx) {
			return nil
		}
		if attempt >= s.retries {
			return fmt.Errorf("lectura en memoria tras %d intentos: %w", attempt, domain.ErrConflict)
		}
	}
}

func (s *Store) readsStable(tx *memTx) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, seen := range tx.reads {
		if s.versions[k] != seen {
			return false
		}
	}
	return true
}

// commit valida versiones leídas y aplica las escrituras bajo el lock exclusivo.
func (s *Store) commit(tx *memTx) error {
	if !tx.dirty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range tx.reads {
		if s.versions[k] != seen {
			return errWriteConflict
		}
	}

	for k, e := range tx.ledger {
		s.ledger[k] = e
		s.versions[ledgerRecord(k)]++
	}
	for k := range tx.ops {
		s.operations[k] = struct{}{}
		s.versions[opRecord(k)]++
	}
	s.movements = append(s.movements, tx.movements...)
	for id, c := range tx.corrections {
		s.corrections[id] = c
		s.versions[correctionRecord(id)]++
		if kind, txID, ok := c.TransactionRef(); ok {
			s.versions[correctionsOfRecord(kind, txID)]++
		}
	}
	for id, t := range tx.transfers {
		s.transfers[id] = t
		s.versions[transferRecord(id)]++
	}
	for k, t := range tx.transactions {
		s.transactions[k] = t
		s.versions[transactionRecord(k)]++
	}
	return nil
}

// ─── Datos de referencia y semillas ──────────────────────────────────────────

// AddProduct registra las unidades de un producto. La unidad base debe estar entre ellas,
// marcada IsBase y con factor 1; todo factor debe ser > 0.
func (s *Store) AddProduct(p entity.Product, units ...entity.UnitOfMeasure) error {
	baseOK := false
	for _, u := range units {
		if u.ProductID != p.ID {
			return fmt.Errorf("unidad %s es del producto %s, no de %s: %w", u.ID, u.ProductID, p.ID, domain.ErrInvalidInput)
		}
		if !u.ConversionFactor.IsPositive() {
			return fmt.Errorf("unidad %s: %w", u.ID, domain.ErrInvalidConversionFactor)
		}
		if u.ID == p.BaseUnitID {
			baseOK = u.IsBase && u.ConversionFactor.Equal(decimal.NewFromInt(1))
		}
	}
	if !baseOK {
		return fmt.Errorf("producto %s sin unidad base válida: %w", p.ID, domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range units {
		s.units[u.ID] = u
	}
	return nil
}

// AddUnit registra una unidad de medida.
func (s *Store) AddUnit(u entity.UnitOfMeasure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[u.ID] = u
}

// AddBatch registra un lote.
func (s *Store) AddBatch(b entity.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
}

// AddTransaction registra una venta o compra con sus líneas.
func (s *Store) AddTransaction(t entity.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.NetTotal.IsZero() {
		t.NetTotal = t.GrandTotal
	}
	t.Items = append([]entity.TransactionItem(nil), t.Items...)
	k := transactionKey(t.Kind, t.ID)
	s.transactions[k] = t
	s.versions[transactionRecord(k)]++
}

// SetActorLocations asigna tiendas y bodegas a un usuario.
func (s *Store) SetActorLocations(userID string, shopIDs, storeIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[userID] = entity.NewActorLocations(shopIDs, storeIDs)
}

// SetStock fija el disponible de una fila (unidades base) sin pasar por el motor; para semillas.
func (s *Store) SetStock(e entity.StockLedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := e.Key.String()
	s.ledger[k] = e
	s.versions[ledgerRecord(k)]++
}

// Movements devuelve una copia del historial completo, en orden de confirmación.
func (s *Store) Movements() []entity.InventoryMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.InventoryMovement(nil), s.movements...)
}

// UnitsByIDs implementa repository.CatalogRepository. Ids desconocidos se omiten.
func (s *Store) UnitsByIDs(_ context.Context, ids []string) ([]*entity.UnitOfMeasure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.UnitOfMeasure, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.units[id]; ok {
			cp := u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// BatchesByIDs implementa repository.CatalogRepository. Ids desconocidos se omiten.
func (s *Store) BatchesByIDs(_ context.Context, ids []string) ([]*entity.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Batch, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.batches[id]; ok {
			cp := b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// GetLocations implementa repository.ActorLocationRepository. Usuario sin asignaciones = conjuntos vacíos.
func (s *Store) GetLocations(_ context.Context, userID string) (entity.ActorLocations, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if al, ok := s.locations[userID]; ok {
		return al, nil
	}
	return entity.NewActorLocations(nil, nil), nil
}

// ─── Claves de registro ──────────────────────────────────────────────────────

func ledgerRecord(k string) string      { return "ledger:" + k }
func opRecord(k string) string          { return "op:" + k }
func correctionRecord(id string) string { return "correction:" + id }
func transferRecord(id string) string   { return "transfer:" + id }
func transactionRecord(k string) string { return "tx:" + k }

func correctionsOfRecord(kind entity.TransactionKind, id string) string {
	return "corrections-of:" + transactionKey(kind, id)
}

func transactionKey(kind entity.TransactionKind, id string) string {
	return string(kind) + "/" + id
}

func copyCorrection(c entity.StockCorrection) *entity.StockCorrection {
	c.Items = append([]entity.CorrectionItem(nil), c.Items...)
	return &c
}

func copyTransfer(t entity.Transfer) *entity.Transfer {
	t.Items = append([]entity.TransferItem(nil), t.Items...)
	return &t
}

func copyTransaction(t entity.Transaction) *entity.Transaction {
	t.Items = append([]entity.TransactionItem(nil), t.Items...)
	return &t
}

func sortCorrections(list []*entity.StockCorrection) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
