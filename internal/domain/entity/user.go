package entity

// Roles válidos (claim "role" del JWT).
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// Permisos que consume el motor.
const (
	PermTransferCancel    = "transfer:cancel"
	PermCorrectionApprove = "correction:approve"
	PermLedgerAdjust      = "ledger:adjust"
)

var rolePermissions = map[string][]string{
	RoleAdmin:     {PermTransferCancel, PermCorrectionApprove, PermLedgerAdjust},
	RoleBodeguero: {PermTransferCancel},
}

// PermissionsForRole devuelve los permisos asociados a un rol (vacío si no tiene).
func PermissionsForRole(role string) []string {
	return rolePermissions[role]
}

// ActorLocations ubicaciones autorizadas de un usuario (colaborador de autorización).
type ActorLocations struct {
	ShopIDs  map[string]struct{}
	StoreIDs map[string]struct{}
}

// NewActorLocations construye los conjuntos a partir de listas de ids.
func NewActorLocations(shopIDs, storeIDs []string) ActorLocations {
	al := ActorLocations{ShopIDs: make(map[string]struct{}, len(shopIDs)), StoreIDs: make(map[string]struct{}, len(storeIDs))}
	for _, id := range shopIDs {
		al.ShopIDs[id] = struct{}{}
	}
	for _, id := range storeIDs {
		al.StoreIDs[id] = struct{}{}
	}
	return al
}

// Actor usuario que ejecuta una operación del motor.
type Actor struct {
	UserID      string
	CompanyID   string
	Role        string
	Locations   ActorLocations
	Permissions []string
}

// Can indica si el actor tiene el permiso.
func (a Actor) Can(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasDestinationAccess autoriza por identidad: el id de la ubicación debe estar en el conjunto del tipo.
// No hay comparación por nombre.
func (a Actor) HasDestinationAccess(dest Location) bool {
	if dest.ID == "" {
		return false
	}
	var set map[string]struct{}
	switch dest.Type {
	case LocationShop:
		set = a.Locations.ShopIDs
	case LocationStore:
		set = a.Locations.StoreIDs
	default:
		return false
	}
	_, ok := set[dest.ID]
	return ok
}
