package igdb

import (
	"time"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/util"
)

// Match is a scored search result.
type Match struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Image is an IGDB image reference.
type Image struct {
	ImageID string `json:"image_id"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// Named is a taxonomy entry such as a genre or theme.
type Named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// InvolvedCompany links a company to a game with its role.
type InvolvedCompany struct {
	Company    int64 `json:"company"`
	Developer  bool  `json:"developer"`
	Publisher  bool  `json:"publisher"`
	Porting    bool  `json:"porting"`
	Supporting bool  `json:"supporting"`
}

// Game is the detailed game record.
type Game struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Slug              string            `json:"slug"`
	Summary           string            `json:"summary"`
	FirstReleaseDate  int64             `json:"first_release_date"`
	Rating            float64           `json:"rating"`
	Cover             *Image            `json:"cover"`
	Artworks          []Image           `json:"artworks"`
	Screenshots       []Image           `json:"screenshots"`
	Genres            []Named           `json:"genres"`
	Themes            []Named           `json:"themes"`
	Keywords          []Named           `json:"keywords"`
	Collection        *Named            `json:"collection"`
	InvolvedCompanies []InvolvedCompany `json:"involved_companies"`
}

// ReleaseYear returns the UTC year of the first release, or 0.
func (g *Game) ReleaseYear() int {
	if g.FirstReleaseDate == 0 {
		return 0
	}
	return time.Unix(g.FirstReleaseDate, 0).UTC().Year()
}

// CompanyIDs lists the involved company IDs in order.
func (g *Game) CompanyIDs() []int64 {
	ids := make([]int64, 0, len(g.InvolvedCompanies))
	for _, ic := range g.InvolvedCompanies {
		ids = append(ids, ic.Company)
	}
	return ids
}

// Company is a developer or publisher record.
type Company struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Logo        *Image `json:"logo"`
}

// ToDomain converts the IGDB record and its companies into a catalog game.
func (g *Game) ToDomain(companies []Company) domain.Game {
	out := domain.Game{
		ID:      g.ID,
		Name:    g.Name,
		Slug:    g.Slug,
		Summary: g.Summary,
		Rating:  g.Rating,
	}
	if out.Slug == "" {
		out.Slug = util.Slugify(g.Name)
	}
	if g.FirstReleaseDate != 0 {
		t := time.Unix(g.FirstReleaseDate, 0).UTC()
		out.ReleaseDate = &t
	}
	if g.Cover != nil {
		out.CoverImageID = g.Cover.ImageID
	}
	for _, genre := range g.Genres {
		out.Genres = append(out.Genres, genre.Name)
	}

	roles := make(map[int64]InvolvedCompany, len(g.InvolvedCompanies))
	for _, ic := range g.InvolvedCompanies {
		roles[ic.Company] = ic
	}
	for _, c := range companies {
		role := roles[c.ID]
		out.Companies = append(out.Companies, domain.Company{
			ID:        c.ID,
			Name:      c.Name,
			Slug:      c.Slug,
			Developer: role.Developer,
			Publisher: role.Publisher,
		})
	}
	return out
}
