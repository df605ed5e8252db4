package inventory

import (
	"context"

	"github.com/jhoicas/inventario-conciliacion/internal/application/dto"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-conciliacion/internal/domain/inventory"
)

// ApplyDeltaFromRequest adapta el request HTTP a ApplyDelta. operationID viene del header Idempotency-Key.
func (uc *LedgerUseCase) ApplyDeltaFromRequest(ctx context.Context, userID, operationID string, in dto.ApplyDeltaRequest) error {
	return uc.ApplyDelta(ctx, ApplyDeltaInput{
		OperationID: operationID,
		UserID:      userID,
		Key: entity.LedgerKey{
			Location:  toLocation(in.Location),
			ProductID: in.ProductID,
			BatchID:   in.BatchID,
			UnitID:    in.UnitID,
		},
		Delta: in.Delta,
	})
}

// AvailableFromQuery consulta el disponible y arma la respuesta.
func (uc *LedgerUseCase) AvailableFromQuery(ctx context.Context, key entity.LedgerKey) (*dto.AvailableQuantityResponse, error) {
	q, err := uc.AvailableQuantity(ctx, key)
	if err != nil {
		return nil, err
	}
	return &dto.AvailableQuantityResponse{
		Location:  toLocationDTO(key.Location),
		ProductID: key.ProductID,
		BatchID:   key.BatchID,
		UnitID:    key.UnitID,
		Quantity:  q,
	}, nil
}

// LocationStock lista el stock de la ubicación como respuesta HTTP, paginado por clave.
func (uc *LedgerUseCase) LocationStock(ctx context.Context, loc entity.Location, page dto.PageRequest) (*dto.LocationStockResponse, error) {
	list, err := uc.ListLocationStock(ctx, loc)
	if err != nil {
		return nil, err
	}
	page.DefaultPage()
	total := len(list)
	start, end := page.Window(total)
	list = list[start:end]
	out := &dto.LocationStockResponse{
		Location: toLocationDTO(loc),
		Entries:  make([]dto.LedgerEntryResponse, 0, len(list)),
		Page:     dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, e := range list {
		out.Entries = append(out.Entries, dto.LedgerEntryResponse{
			ProductID:    e.Key.ProductID,
			BatchID:      e.Key.BatchID,
			UnitID:       e.Key.UnitID,
			BaseQuantity: e.Quantity,
			UpdatedAt:    e.UpdatedAt,
		})
	}
	return out, nil
}

// CreateFromRequest adapta el request HTTP a Create.
func (uc *TransferUseCase) CreateFromRequest(ctx context.Context, companyID, userID string, in dto.CreateTransferRequest) (*dto.TransferResponse, error) {
	items := make([]TransferItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, TransferItemInput{
			ProductID: it.ProductID,
			BatchID:   it.BatchID,
			UnitID:    it.UnitID,
			Quantity:  it.Quantity,
		})
	}
	t, err := uc.Create(ctx, CreateTransferInput{
		ID:          in.ID,
		CompanyID:   companyID,
		UserID:      userID,
		Source:      toLocation(in.Source),
		Destination: toLocation(in.Destination),
		Items:       items,
	})
	if err != nil {
		return nil, err
	}
	return ToTransferResponse(t), nil
}

// CreateFromRequest adapta el request HTTP a Create.
func (uc *CorrectionUseCase) CreateFromRequest(ctx context.Context, companyID, userID string, in dto.CreateCorrectionRequest) (*dto.CorrectionResponse, error) {
	items := make([]CorrectionItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, CorrectionItemInput{
			ProductID:      it.ProductID,
			BatchID:        it.BatchID,
			UnitID:         it.UnitID,
			SignedQuantity: it.SignedQuantity,
		})
	}
	c, err := uc.Create(ctx, CreateCorrectionInput{
		CompanyID:  companyID,
		UserID:     userID,
		Reason:     entity.CorrectionReason(in.Reason),
		PurchaseID: in.PurchaseID,
		SellID:     in.SellID,
		Location:   toLocation(in.Location),
		Note:       in.Note,
		Items:      items,
	})
	if err != nil {
		return nil, err
	}
	return ToCorrectionResponse(c), nil
}

func toLocation(d dto.LocationDTO) entity.Location {
	return entity.Location{Type: entity.LocationType(d.Type), ID: d.ID}
}

func toLocationDTO(l entity.Location) dto.LocationDTO {
	return dto.LocationDTO{Type: string(l.Type), ID: l.ID}
}

// ToTransferResponse mapea la entidad a la respuesta HTTP.
func ToTransferResponse(t *entity.Transfer) *dto.TransferResponse {
	out := &dto.TransferResponse{
		ID:          t.ID,
		Source:      toLocationDTO(t.Source),
		Destination: toLocationDTO(t.Destination),
		Status:      string(t.Status),
		Items:       make([]dto.TransferItemResponse, 0, len(t.Items)),
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	for _, it := range t.Items {
		out.Items = append(out.Items, dto.TransferItemResponse{
			ProductID: it.ProductID,
			BatchID:   it.BatchID,
			UnitID:    it.UnitID,
			Quantity:  it.Quantity,
		})
	}
	return out
}

// ToCorrectionResponse mapea la entidad a la respuesta HTTP.
func ToCorrectionResponse(c *entity.StockCorrection) *dto.CorrectionResponse {
	out := &dto.CorrectionResponse{
		ID:         c.ID,
		Reason:     string(c.Reason),
		PurchaseID: c.PurchaseID,
		SellID:     c.SellID,
		Location:   toLocationDTO(c.Location),
		Status:     string(c.Status),
		Note:       c.Note,
		Items:      make([]dto.CorrectionItemResponse, 0, len(c.Items)),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, dto.CorrectionItemResponse{
			ProductID:      it.ProductID,
			BatchID:        it.BatchID,
			UnitID:         it.UnitID,
			SignedQuantity: it.SignedQuantity,
		})
	}
	return out
}

// ToReconciliationResponse mapea la vista conciliada a la respuesta HTTP.
func ToReconciliationResponse(o *ReconciliationOutput) *dto.ReconciliationResponse {
	res := o.Result
	out := &dto.ReconciliationResponse{
		TransactionID:  o.Transaction.ID,
		Kind:           string(o.Transaction.Kind),
		GrandTotal:     res.GrandTotal,
		NetDelta:       res.NetDelta,
		NetTotal:       res.NetTotal,
		AdjustedItems:  make([]dto.AdjustedItemResponse, 0, len(res.AdjustedItems)),
		Unmatched:      toAdjustments(res.Unmatched),
		Ambiguous:      toAdjustments(res.Ambiguous),
		IgnoredPending: append([]string{}, res.Ignored...),
	}
	for _, ai := range res.AdjustedItems {
		out.AdjustedItems = append(out.AdjustedItems, dto.AdjustedItemResponse{
			LineID:             ai.Item.ID,
			ProductID:          ai.Item.ProductID,
			BatchID:            ai.Item.BatchID,
			UnitID:             ai.Item.UnitID,
			OriginalQuantity:   ai.Item.Quantity,
			UnitPrice:          ai.Item.UnitPrice,
			OriginalTotalPrice: ai.Item.TotalPrice,
			FinalQuantity:      ai.FinalQuantity,
			AdjustedTotalPrice: ai.AdjustedTotalPrice,
			Adjustments:        toAdjustments(ai.Adjustments),
		})
	}
	return out
}

func toAdjustments(list []domaininv.Adjustment) []dto.AdjustmentResponse {
	out := make([]dto.AdjustmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, dto.AdjustmentResponse{
			CorrectionID:   a.CorrectionID,
			ProductID:      a.ProductID,
			BatchID:        a.BatchID,
			UnitID:         a.UnitID,
			Location:       toLocationDTO(a.Location),
			SignedQuantity: a.SignedQuantity,
			Applied:        a.Applied,
			Amount:         a.Amount,
			Line:           a.ItemIndex,
			Ambiguous:      a.Ambiguous(),
			Candidates:     a.Candidates,
			Unconvertible:  a.Unconvertible,
		})
	}
	return out
}
