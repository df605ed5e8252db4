package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// memTx lecturas observadas (registro -> versión) y escrituras pendientes de una tx.
// Las lecturas ven primero las escrituras propias.
type memTx struct {
	s     *Store
	reads map[string]uint64

	ledger       map[string]entity.StockLedgerEntry
	ops          map[string]struct{}
	movements    []entity.InventoryMovement
	corrections  map[string]entity.StockCorrection
	transfers    map[string]entity.Transfer
	transactions map[string]entity.Transaction
}

func newMemTx(s *Store) *memTx {
	return &memTx{
		s:            s,
		reads:        make(map[string]uint64),
		ledger:       make(map[string]entity.StockLedgerEntry),
		ops:          make(map[string]struct{}),
		corrections:  make(map[string]entity.StockCorrection),
		transfers:    make(map[string]entity.Transfer),
		transactions: make(map[string]entity.Transaction),
	}
}

func (tx *memTx) repos() inventory.TxRepos {
	return inventory.TxRepos{
		Ledger:       &ledgerRepo{tx: tx},
		Movements:    &movementRepo{tx: tx},
		Corrections:  &correctionRepo{tx: tx},
		Transfers:    &transferRepo{tx: tx},
		Transactions: &transactionRepo{tx: tx},
	}
}

func (tx *memTx) dirty() bool {
	return len(tx.ledger)+len(tx.ops)+len(tx.movements)+len(tx.corrections)+len(tx.transfers)+len(tx.transactions) > 0
}

// observe guarda la primera versión vista del registro. Debe llamarse con s.mu tomado.
func (tx *memTx) observe(record string) {
	if _, ok := tx.reads[record]; !ok {
		tx.reads[record] = tx.s.versions[record]
	}
}

var (
	_ repository.LedgerRepository            = (*ledgerRepo)(nil)
	_ repository.InventoryMovementRepository = (*movementRepo)(nil)
	_ repository.CorrectionRepository        = (*correctionRepo)(nil)
	_ repository.TransferRepository          = (*transferRepo)(nil)
	_ repository.TransactionRepository       = (*transactionRepo)(nil)
)

// ─── Ledger ──────────────────────────────────────────────────────────────────

type ledgerRepo struct{ tx *memTx }

func (r *ledgerRepo) Get(_ context.Context, key entity.LedgerKey) (*entity.StockLedgerEntry, error) {
	k := key.String()
	if e, ok := r.tx.ledger[k]; ok {
		return &e, nil
	}
	s := r.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	r.tx.observe(ledgerRecord(k))
	if e, ok := s.ledger[k]; ok {
		return &e, nil
	}
	return &entity.StockLedgerEntry{Key: key, Quantity: decimal.Zero}, nil
}

// GetForUpdate en memoria no bloquea: la lectura queda registrada y se valida al confirmar.
func (r *ledgerRepo) GetForUpdate(ctx context.Context, key entity.LedgerKey) (*entity.StockLedgerEntry, error) {
	return r.Get(ctx, key)
}

func (r *ledgerRepo) Upsert(_ context.Context, entry *entity.StockLedgerEntry) error {
	if entry.Quantity.IsNegative() {
		return fmt.Errorf("upsert ledger %s: %w", entry.Key, domain.ErrInsufficientStock)
	}
	r.tx.ledger[entry.Key.String()] = *entry
	return nil
}

func (r *ledgerRepo) ListByLocation(_ context.Context, loc entity.Location) ([]*entity.StockLedgerEntry, error) {
	s := r.tx.s
	rows := make(map[string]entity.StockLedgerEntry)
	s.mu.RLock()
	for k, e := range s.ledger {
		if e.Key.Location.Equal(loc) {
			r.tx.observe(ledgerRecord(k))
			rows[k] = e
		}
	}
	s.mu.RUnlock()
	for k, e := range r.tx.ledger {
		if e.Key.Location.Equal(loc) {
			rows[k] = e
		}
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*entity.StockLedgerEntry, 0, len(keys))
	for _, k := range keys {
		e := rows[k]
		out = append(out, &e)
	}
	return out, nil
}

func (r *ledgerRepo) MarkOperation(_ context.Context, operationID string) (bool, error) {
	if _, ok := r.tx.ops[operationID]; ok {
		return false, nil
	}
	s := r.tx.s
	s.mu.RLock()
	r.tx.observe(opRecord(operationID))
	_, done := s.operations[operationID]
	s.mu.RUnlock()
	if done {
		return false, nil
	}
	r.tx.ops[operationID] = struct{}{}
	return true, nil
}

// ─── Movimientos ─────────────────────────────────────────────────────────────

type movementRepo struct{ tx *memTx }

func (r *movementRepo) Create(_ context.Context, m *entity.InventoryMovement) error {
	r.tx.movements = append(r.tx.movements, *m)
	return nil
}

func (r *movementRepo) ListByReference(_ context.Context, reference string) ([]*entity.InventoryMovement, error) {
	var out []*entity.InventoryMovement
	s := r.tx.s
	s.mu.RLock()
	for _, m := range s.movements {
		if m.Reference == reference {
			cp := m
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()
	for _, m := range r.tx.movements {
		if m.Reference == reference {
			cp := m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ─── Correcciones ────────────────────────────────────────────────────────────

type correctionRepo struct{ tx *memTx }

func (r *correctionRepo) Create(_ context.Context, c *entity.StockCorrection) error {
	if _, ok := r.tx.corrections[c.ID]; ok {
		return domain.ErrDuplicate
	}
	s := r.tx.s
	s.mu.RLock()
	r.tx.observe(correctionRecord(c.ID))
	_, exists := s.corrections[c.ID]
	s.mu.RUnlock()
	if exists {
		return domain.ErrDuplicate
	}
	r.tx.corrections[c.ID] = *copyCorrection(*c)
	return nil
}

func (r *correctionRepo) GetByID(_ context.Context, id string) (*entity.StockCorrection, error) {
	if c, ok := r.tx.corrections[id]; ok {
		return copyCorrection(c), nil
	}
	s := r.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	r.tx.observe(correctionRecord(id))
	c, ok := s.corrections[id]
	if !ok {
		return nil, nil
	}
	return copyCorrection(c), nil
}

func (r *correctionRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockCorrection, error) {
	return r.GetByID(ctx, id)
}

func (r *correctionRepo) ListByTransaction(_ context.Context, kind entity.TransactionKind, transactionID string) ([]*entity.StockCorrection, error) {
	matches := func(c entity.StockCorrection) bool {
		k, id, ok := c.TransactionRef()
		return ok && k == kind && id == transactionID
	}
	byID := make(map[string]*entity.StockCorrection)
	s := r.tx.s
	s.mu.RLock()
	r.tx.observe(correctionsOfRecord(kind, transactionID))
	for id, c := range s.corrections {
		if matches(c) {
			r.tx.observe(correctionRecord(id))
			byID[id] = copyCorrection(c)
		}
	}
	s.mu.RUnlock()
	for id, c := range r.tx.corrections {
		if matches(c) {
			byID[id] = copyCorrection(c)
		}
	}
	out := make([]*entity.StockCorrection, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sortCorrections(out)
	return out, nil
}

func (r *correctionRepo) UpdateStatus(ctx context.Context, id string, status entity.CorrectionStatus) error {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	r.tx.corrections[id] = *c
	return nil
}

// ─── Traslados ───────────────────────────────────────────────────────────────

type transferRepo struct{ tx *memTx }

func (r *transferRepo) Create(_ context.Context, t *entity.Transfer) error {
	if _, ok := r.tx.transfers[t.ID]; ok {
		return domain.ErrDuplicate
	}
	s := r.tx.s
	s.mu.RLock()
	r.tx.observe(transferRecord(t.ID))
	_, exists := s.transfers[t.ID]
	s.mu.RUnlock()
	if exists {
		return domain.ErrDuplicate
	}
	r.tx.transfers[t.ID] = *copyTransfer(*t)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.Transfer, error) {
	if t, ok := r.tx.transfers[id]; ok {
		return copyTransfer(t), nil
	}
	s := r.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	r.tx.observe(transferRecord(id))
	t, ok := s.transfers[id]
	if !ok {
		return nil, nil
	}
	return copyTransfer(t), nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) UpdateStatus(ctx context.Context, id string, status entity.TransferStatus) error {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return domain.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	r.tx.transfers[id] = *t
	return nil
}

// ─── Ventas / compras ────────────────────────────────────────────────────────

type transactionRepo struct{ tx *memTx }

func (r *transactionRepo) GetByID(_ context.Context, kind entity.TransactionKind, id string) (*entity.Transaction, error) {
	k := transactionKey(kind, id)
	if t, ok := r.tx.transactions[k]; ok {
		return copyTransaction(t), nil
	}
	s := r.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	r.tx.observe(transactionRecord(k))
	t, ok := s.transactions[k]
	if !ok {
		return nil, nil
	}
	return copyTransaction(t), nil
}

// GetForUpdate en memoria no bloquea: la versión leída se valida al confirmar.
func (r *transactionRepo) GetForUpdate(ctx context.Context, kind entity.TransactionKind, id string) (*entity.Transaction, error) {
	return r.GetByID(ctx, kind, id)
}

func (r *transactionRepo) UpdateNetTotal(ctx context.Context, kind entity.TransactionKind, id string, netTotal decimal.Decimal) error {
	t, err := r.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if t == nil {
		return domain.ErrNotFound
	}
	t.NetTotal = netTotal
	r.tx.transactions[transactionKey(kind, id)] = *t
	return nil
}
