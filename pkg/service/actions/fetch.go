package actions

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// FetchMedias pulls named recommendation feeds and appends the results to the
// context medias. The feed set is extended at runtime by RecommendSource
// events already present in the context.
type FetchMedias struct {
	BaseAction
}

type fetchMediasParams struct {
	Sources []string `json:"sources"`
}

func NewFetchMedias(id string) Action { return &FetchMedias{BaseAction: NewBase(id)} }

func (a *FetchMedias) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	var p fetchMediasParams
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}

	sources := append([]string(nil), p.Sources...)
	for _, e := range wc.Events {
		if e.Type != media.EventRecommendSource {
			continue
		}
		if src, ok := e.Data["source"].(string); ok && src != "" {
			sources = append(sources, src)
		}
	}

	fetched := 0
	for _, source := range sources {
		if env.Stopped() {
			a.JobDone(true, fmt.Sprintf("stopped, fetched %d medias", fetched))
			return wc
		}
		medias := env.Bus.RecommendMedias(ctx, source)
		wc.Medias = append(wc.Medias, medias...)
		fetched += len(medias)
	}
	a.JobDone(true, fmt.Sprintf("fetched %d medias", fetched))
	return wc
}

// FetchRss fetches one RSS feed and appends its items to the context torrents.
type FetchRss struct {
	BaseAction
}

type fetchRssParams struct {
	URL            string            `json:"url"`
	Proxy          string            `json:"proxy"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	Headers        map[string]string `json:"headers"`
}

func NewFetchRss(id string) Action { return &FetchRss{BaseAction: NewBase(id)} }

func (a *FetchRss) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	p := fetchRssParams{TimeoutSeconds: 30}
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}
	if p.URL == "" {
		a.JobDone(false, "rss url is required")
		return wc
	}
	if env.Stopped() {
		a.JobDone(true, "stopped, fetched 0 torrents")
		return wc
	}

	resources := env.Bus.RSSParse(ctx, p.URL, p.Proxy, p.TimeoutSeconds, p.Headers)
	wc.Torrents = append(wc.Torrents, resources...)
	a.JobDone(true, fmt.Sprintf("fetched %d torrents", len(resources)))
	return wc
}

// FetchTorrents searches sites for torrents, either per recognized media in
// the context or by a free-text keyword.
type FetchTorrents struct {
	BaseAction
	sleep func(ctx context.Context, d time.Duration)
}

type fetchTorrentsParams struct {
	SearchType string          `json:"search_type"` // media | keyword
	Keyword    string          `json:"keyword"`
	Sites      []string        `json:"sites"`
	MatchMedia bool            `json:"match_media"`
	Year       string          `json:"year"`
	Type       media.MediaType `json:"type"`
	Season     int             `json:"season"`
}

func NewFetchTorrents(id string) Action {
	return &FetchTorrents{BaseAction: NewBase(id), sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (a *FetchTorrents) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	p := fetchTorrentsParams{SearchType: "media"}
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}

	switch p.SearchType {
	case "keyword":
		a.searchKeyword(ctx, env, p, wc)
	default:
		a.searchMedias(ctx, env, p, wc)
	}
	return wc
}

func (a *FetchTorrents) searchMedias(ctx context.Context, env Env, p fetchTorrentsParams, wc *workflow.Context) {
	fetched := 0
	for i, m := range wc.Medias {
		if env.Stopped() {
			a.JobDone(true, fmt.Sprintf("stopped, fetched %d torrents", fetched))
			return
		}
		if i > 0 {
			// polite delay between site searches
			a.sleep(ctx, time.Duration(5+rand.Intn(26))*time.Second)
			if env.Stopped() {
				a.JobDone(true, fmt.Sprintf("stopped, fetched %d torrents", fetched))
				return
			}
		}
		resources := env.Bus.SearchByID(ctx, m, p.Sites)
		wc.Torrents = append(wc.Torrents, resources...)
		fetched += len(resources)
	}
	a.JobDone(true, fmt.Sprintf("fetched %d torrents", fetched))
}

func (a *FetchTorrents) searchKeyword(ctx context.Context, env Env, p fetchTorrentsParams, wc *workflow.Context) {
	if p.Keyword == "" {
		a.JobDone(false, "keyword is required for keyword search")
		return
	}
	if env.Stopped() {
		a.JobDone(true, "stopped, fetched 0 torrents")
		return
	}

	resources := env.Bus.SearchByTitle(ctx, p.Keyword, p.Sites)

	// filter order: year, then type, then season
	kept := resources[:0]
	for _, r := range resources {
		if p.Year != "" && r.Meta.Year != p.Year {
			continue
		}
		if p.Type != "" && r.Meta.Type != "" && r.Meta.Type != p.Type {
			continue
		}
		if p.Season > 0 && r.Meta.Season != p.Season {
			continue
		}
		kept = append(kept, r)
	}

	fetched := 0
	for _, r := range kept {
		if p.MatchMedia && r.Media == nil {
			if m := env.Bus.RecognizeMedia(ctx, r.Meta); m != nil {
				r.Media = m
			} else {
				continue
			}
		}
		wc.Torrents = append(wc.Torrents, r)
		fetched++
	}
	a.JobDone(true, fmt.Sprintf("fetched %d torrents", fetched))
}

// FetchDownloads refreshes the completion state and save path of every
// download task in the context from the downloader.
type FetchDownloads struct {
	BaseAction
}

type fetchDownloadsParams struct {
	Downloader string `json:"downloader"`
}

func NewFetchDownloads(id string) Action { return &FetchDownloads{BaseAction: NewBase(id)} }

func (a *FetchDownloads) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	var p fetchDownloadsParams
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}
	if env.Stopped() {
		a.JobDone(true, "stopped, refreshed 0 downloads")
		return wc
	}

	ids := make([]string, 0, len(wc.Downloads))
	for _, d := range wc.Downloads {
		if p.Downloader == "" || d.Downloader == p.Downloader {
			ids = append(ids, d.DownloadID)
		}
	}
	if len(ids) == 0 {
		a.JobDone(true, "refreshed 0 downloads")
		return wc
	}

	tasks := env.Bus.ListTorrents(ctx, p.Downloader, ids)
	byID := make(map[string]media.DownloadTask, len(tasks))
	for _, t := range tasks {
		byID[t.DownloadID] = t
	}
	refreshed := 0
	for i := range wc.Downloads {
		t, ok := byID[wc.Downloads[i].DownloadID]
		if !ok {
			continue
		}
		wc.Downloads[i].Completed = t.Completed
		if t.Path != "" {
			wc.Downloads[i].Path = t.Path
		}
		if t.Title != "" {
			wc.Downloads[i].Title = t.Title
		}
		refreshed++
	}
	a.JobDone(true, fmt.Sprintf("refreshed %d downloads", refreshed))
	return wc
}
