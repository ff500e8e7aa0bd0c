package tmdb

// Genre is a movie or TV genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ContentItem is one entry of a search or popular listing. Movies carry
// title/release_date, series carry name/first_air_date.
type ContentItem struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title,omitempty"`
	Name          string  `json:"name,omitempty"`
	OriginalTitle string  `json:"original_title,omitempty"`
	OriginalName  string  `json:"original_name,omitempty"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	ReleaseDate   string  `json:"release_date,omitempty"`
	FirstAirDate  string  `json:"first_air_date,omitempty"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	MediaType     string  `json:"media_type,omitempty"`
}

// DisplayTitle returns the movie title, or the series name
func (c ContentItem) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

// DisplayDate returns the release date, or the first air date
func (c ContentItem) DisplayDate() string {
	if c.ReleaseDate != "" {
		return c.ReleaseDate
	}
	return c.FirstAirDate
}

// SearchResponse is a page of content items
type SearchResponse struct {
	Page         int           `json:"page"`
	Results      []ContentItem `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// MovieDetails is the response from GET /movie/{id}
type MovieDetails struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	ReleaseDate   string  `json:"release_date"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Runtime       int     `json:"runtime"`
	Genres        []Genre `json:"genres"`
	Tagline       string  `json:"tagline"`
	Budget        int64   `json:"budget"`
	Revenue       int64   `json:"revenue"`
	Status        string  `json:"status"`
}

// SeriesDetails is the response from GET /tv/{id}
type SeriesDetails struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	FirstAirDate     string  `json:"first_air_date"`
	LastAirDate      string  `json:"last_air_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Genres           []Genre `json:"genres"`
	Tagline          string  `json:"tagline"`
	Status           string  `json:"status"`
	InProduction     bool    `json:"in_production"`
}
