package igdb

import (
	"net/http"

	"github.com/Henry-Sarabia/igdb/v2"
)

// clientAPI implements api on top of *igdb.Client.
type clientAPI struct {
	c *igdb.Client
}

func newClientAPI(clientID, token string, hc *http.Client) api {
	return &clientAPI{c: igdb.NewClient(clientID, token, hc)}
}

func (a *clientAPI) SearchGames(query string, limit int) ([]*igdb.Game, error) {
	return a.c.Games.Search(query, igdb.SetFields(gameFields...), igdb.SetLimit(limit))
}

func (a *clientAPI) GetGame(id int) (*igdb.Game, error) {
	return a.c.Games.Get(id, igdb.SetFields(gameFields...))
}

func (a *clientAPI) CoverImageIDs(ids []int) (map[int]string, error) {
	covers, err := a.c.Covers.List(ids, igdb.SetFields("id", "image_id"))
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(covers))
	for _, c := range covers {
		out[c.ID] = c.ImageID
	}
	return out, nil
}

func (a *clientAPI) ScreenshotImageIDs(ids []int) (map[int]string, error) {
	shots, err := a.c.Screenshots.List(ids, igdb.SetFields("id", "image_id"))
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(shots))
	for _, s := range shots {
		out[s.ID] = s.ImageID
	}
	return out, nil
}

func (a *clientAPI) GenreNames(ids []int) (map[int]string, error) {
	genres, err := a.c.Genres.List(ids, igdb.SetFields("id", "name"))
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(genres))
	for _, g := range genres {
		out[g.ID] = g.Name
	}
	return out, nil
}

func (a *clientAPI) PlatformNames(ids []int) (map[int]string, error) {
	platforms, err := a.c.Platforms.List(ids, igdb.SetFields("id", "name"))
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(platforms))
	for _, p := range platforms {
		out[p.ID] = p.Name
	}
	return out, nil
}
