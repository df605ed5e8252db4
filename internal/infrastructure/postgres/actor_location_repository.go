package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/repository"
)

var _ repository.ActorLocationRepository = (*ActorLocationRepo)(nil)

// ActorLocationRepo tiendas y bodegas asignadas a cada usuario (tabla user_locations).
type ActorLocationRepo struct {
	q Querier
}

// NewActorLocationRepository construye el adaptador.
func NewActorLocationRepository(q Querier) *ActorLocationRepo {
	return &ActorLocationRepo{q: q}
}

// GetLocations devuelve los conjuntos de ids por tipo. Sin filas = conjuntos vacíos.
func (r *ActorLocationRepo) GetLocations(ctx context.Context, userID string) (entity.ActorLocations, error) {
	rows, err := r.q.Query(ctx, `SELECT location_type, location_id FROM user_locations WHERE user_id = $1`, userID)
	if err != nil {
		return entity.ActorLocations{}, fmt.Errorf("list user locations: %w", err)
	}
	defer rows.Close()
	var shops, stores []string
	for rows.Next() {
		var locType, locID string
		if err := rows.Scan(&locType, &locID); err != nil {
			return entity.ActorLocations{}, fmt.Errorf("scan user location: %w", err)
		}
		switch entity.LocationType(locType) {
		case entity.LocationShop:
			shops = append(shops, locID)
		case entity.LocationStore:
			stores = append(stores, locID)
		}
	}
	if err := rows.Err(); err != nil {
		return entity.ActorLocations{}, err
	}
	return entity.NewActorLocations(shops, stores), nil
}
