package model

// CatalogRecord is the external catalog's current view of a movie.
type CatalogRecord struct {
	ID             int64
	Title          string
	OriginalTitle  string
	Synopsis       string
	PosterPath     string
	BackdropPath   string
	ReleaseDate    string
	RuntimeMinutes *int
	Genres         []Genre
	RatingAverage  *float64
	RatingCount    *int
}
