package tmdb

type searchResponse[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalResults int `json:"total_results"`
}

type multiResult struct {
	ID           int    `json:"id"`
	MediaType    string `json:"media_type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

type idResult struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type externalIDs struct {
	ImdbID *string `json:"imdb_id"`
	TvdbID *int    `json:"tvdb_id"`
}

type castMember struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

type crewMember struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

type credits struct {
	Cast []castMember `json:"cast"`
	Crew []crewMember `json:"crew"`
}

type collectionRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type movieDetails struct {
	ID                  int            `json:"id"`
	Title               string         `json:"title"`
	OriginalTitle       string         `json:"original_title"`
	Overview            string         `json:"overview"`
	ReleaseDate         string         `json:"release_date"`
	Status              string         `json:"status"`
	ImdbID              *string        `json:"imdb_id"`
	Genres              []genre        `json:"genres"`
	ProductionCompanies []company      `json:"production_companies"`
	BelongsToCollection *collectionRef `json:"belongs_to_collection"`
	Credits             *credits       `json:"credits"`
}

type tvDetails struct {
	ID                  int          `json:"id"`
	Name                string       `json:"name"`
	OriginalName        string       `json:"original_name"`
	Overview            string       `json:"overview"`
	FirstAirDate        string       `json:"first_air_date"`
	LastAirDate         string       `json:"last_air_date"`
	Status              string       `json:"status"`
	Genres              []genre      `json:"genres"`
	Networks            []company    `json:"networks"`
	ProductionCompanies []company    `json:"production_companies"`
	ExternalIDs         *externalIDs `json:"external_ids"`
	Credits             *credits     `json:"credits"`
}

type episodeDetails struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
	Runtime       *int   `json:"runtime"`
}

type seasonDetails struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Overview     string           `json:"overview"`
	AirDate      string           `json:"air_date"`
	SeasonNumber int              `json:"season_number"`
	Episodes     []episodeDetails `json:"episodes"`
}

type collectionDetails struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Overview string `json:"overview"`
}

type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
