package actions

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// FilterMedias rewrites the context medias, keeping entries that satisfy the
// configured type, year window and minimum vote.
type FilterMedias struct {
	BaseAction
}

type filterMediasParams struct {
	Type    media.MediaType `json:"type"`
	MinYear int             `json:"min_year"`
	MaxYear int             `json:"max_year"`
	Vote    float64         `json:"vote"`
}

func NewFilterMedias(id string) Action { return &FilterMedias{BaseAction: NewBase(id)} }

func (a *FilterMedias) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	var p filterMediasParams
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}

	kept := wc.Medias[:0]
	for _, m := range wc.Medias {
		if p.Type != "" && m.Type != p.Type {
			continue
		}
		if p.MinYear > 0 || p.MaxYear > 0 {
			year, err := strconv.Atoi(m.Year)
			if err != nil {
				continue
			}
			if p.MinYear > 0 && year < p.MinYear {
				continue
			}
			if p.MaxYear > 0 && year > p.MaxYear {
				continue
			}
		}
		if p.Vote > 0 && m.Vote < p.Vote {
			continue
		}
		kept = append(kept, m)
	}
	wc.Medias = kept
	a.JobDone(true, fmt.Sprintf("kept %d medias", len(kept)))
	return wc
}

// FilterTorrents rewrites the context torrents, keeping entries whose title
// matches the include pattern, avoids the exclude pattern, and whose size
// falls inside the configured window.
type FilterTorrents struct {
	BaseAction
}

type filterTorrentsParams struct {
	Include   string `json:"include"`
	Exclude   string `json:"exclude"`
	SizeMinMB int64  `json:"size_min_mb"`
	SizeMaxMB int64  `json:"size_max_mb"`
}

func NewFilterTorrents(id string) Action { return &FilterTorrents{BaseAction: NewBase(id)} }

func (a *FilterTorrents) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	var p filterTorrentsParams
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}

	var include, exclude *regexp.Regexp
	var err error
	if p.Include != "" {
		if include, err = regexp.Compile(p.Include); err != nil {
			a.JobDone(false, fmt.Sprintf("invalid include pattern: %v", err))
			return wc
		}
	}
	if p.Exclude != "" {
		if exclude, err = regexp.Compile(p.Exclude); err != nil {
			a.JobDone(false, fmt.Sprintf("invalid exclude pattern: %v", err))
			return wc
		}
	}

	kept := wc.Torrents[:0]
	for _, r := range wc.Torrents {
		title := r.Torrent.Title
		if include != nil && !include.MatchString(title) {
			continue
		}
		if exclude != nil && exclude.MatchString(title) {
			continue
		}
		sizeMB := r.Torrent.Size / (1 << 20)
		if p.SizeMinMB > 0 && sizeMB < p.SizeMinMB {
			continue
		}
		if p.SizeMaxMB > 0 && sizeMB > p.SizeMaxMB {
			continue
		}
		kept = append(kept, r)
	}
	wc.Torrents = kept
	a.JobDone(true, fmt.Sprintf("kept %d torrents", len(kept)))
	return wc
}
