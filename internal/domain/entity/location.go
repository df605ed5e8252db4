package entity

// LocationType identifica el tipo de ubicación que guarda inventario.
type LocationType string

const (
	LocationStore LocationType = "STORE" // bodega
	LocationShop  LocationType = "SHOP"  // tienda / punto de venta
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t LocationType) Valid() bool {
	return t == LocationStore || t == LocationShop
}

// Location referencia una tienda o una bodega por identidad (tipo + id).
type Location struct {
	Type LocationType
	ID   string
}

// Valid exige tipo conocido e id no vacío.
func (l Location) Valid() bool {
	return l.Type.Valid() && l.ID != ""
}

// Equal compara por identidad; nunca por nombre.
func (l Location) Equal(o Location) bool {
	return l.Type == o.Type && l.ID == o.ID
}

func (l Location) String() string {
	return string(l.Type) + ":" + l.ID
}
