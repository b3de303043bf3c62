package models

// Meta is a catalog entry or a detail record returned to addon clients
type Meta struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	Name        string      `json:"name"`
	Poster      string      `json:"poster,omitempty"`
	PosterShape string      `json:"posterShape,omitempty"`
	Background  string      `json:"background,omitempty"`
	Logo        string      `json:"logo,omitempty"`
	Description string      `json:"description,omitempty"`
	ReleaseInfo string      `json:"releaseInfo,omitempty"`
	IMDbRating  string      `json:"imdbRating,omitempty"`
	Genres      []string    `json:"genres,omitempty"`
	Cast        []string    `json:"cast,omitempty"`
	Director    []string    `json:"director,omitempty"`
	Runtime     string      `json:"runtime,omitempty"`
	Country     string      `json:"country,omitempty"`
}

// CatalogResponse is the body of a catalog request
type CatalogResponse struct {
	Metas []Meta `json:"metas"`
}

// MetaResponse is the body of a meta request
type MetaResponse struct {
	Meta *Meta `json:"meta"`
}

// StreamResponse is the body of a stream request
type StreamResponse struct {
	Streams []Stream `json:"streams"`
}
