package dto

// Ventana por defecto y máxima de los listados paginados.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest ventana limit/offset sobre un listado ordenado. Los tags se validan en el handler.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage normaliza una página construida sin validar (llamadas internas).
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Window índices [start, end) de la página dentro de total filas.
func (p PageRequest) Window(total int) (start, end int) {
	start = min(p.Offset, total)
	return start, min(start+p.Limit, total)
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
