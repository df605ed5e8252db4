package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-conciliacion/internal/application/dto"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
)

// LocalActor key del actor resuelto en c.Locals.
const LocalActor = "actor"

// locationLoader es el contrato mínimo que necesita el middleware para resolver ubicaciones.
// Lo implementan postgres.ActorLocationRepo y memory.Store.
type locationLoader interface {
	GetLocations(ctx context.Context, userID string) (entity.ActorLocations, error)
}

// LoadActor arma el actor de la petición: identidad y rol del token, permisos del rol y
// tiendas/bodegas asignadas. Debe usarse DESPUÉS de AuthMiddleware.
//
//   - 401 si no hay user_id en el contexto.
//   - 503 si falla la consulta de ubicaciones.
func LoadActor(loader locationLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "user_id no encontrado en el token",
			})
		}
		locations, err := loader.GetLocations(c.UserContext(), userID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "ACTOR_LOOKUP_FAILED",
				Message: "no se pudieron cargar las ubicaciones del usuario, intente más tarde",
			})
		}
		role := GetRole(c)
		c.Locals(LocalActor, entity.Actor{
			UserID:      userID,
			CompanyID:   GetCompanyID(c),
			Role:        role,
			Locations:   locations,
			Permissions: entity.PermissionsForRole(role),
		})
		return c.Next()
	}
}

// GetActor devuelve el actor cargado por LoadActor (vacío si no pasó por el middleware).
func GetActor(c *fiber.Ctx) entity.Actor {
	a, _ := c.Locals(LocalActor).(entity.Actor)
	return a
}
