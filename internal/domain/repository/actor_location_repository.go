package repository

import (
	"context"

	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// ActorLocationRepository colaborador de autorización: tiendas y bodegas asignadas a un usuario.
type ActorLocationRepository interface {
	GetLocations(ctx context.Context, userID string) (entity.ActorLocations, error)
}
