package actions

import (
	"context"
	"fmt"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// AddDownload hands new context torrents to a downloader. Each torrent is
// fingerprinted "{site}-{title}"; torrents already in the dedup cache are
// skipped, so repeated runs never re-add the same item.
type AddDownload struct {
	BaseAction
}

type addDownloadParams struct {
	Downloader string `json:"downloader"`
	SavePath   string `json:"save_path"`
	Label      string `json:"label"`
	OnlyLack   bool   `json:"only_lack"`
}

func NewAddDownload(id string) Action { return &AddDownload{BaseAction: NewBase(id)} }

func (a *AddDownload) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	var p addDownloadParams
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}

	added, failed := 0, 0
	for _, r := range wc.Torrents {
		if env.Stopped() {
			break
		}
		fingerprint := r.Torrent.Site + "-" + r.Torrent.Title
		if env.Cache.Check(env.WorkflowID, a.ID(), fingerprint) {
			continue
		}

		m := r.Media
		if m == nil {
			m = env.Bus.RecognizeMedia(ctx, r.Meta)
		}
		if m == nil {
			env.Logger.Warn().Str("title", r.Torrent.Title).Msg("media not recognized, skipping download")
			failed++
			continue
		}

		if p.OnlyLack && m.Type == media.MediaTypeTV {
			if r.Meta.SpansSeasons() {
				continue
			}
			if info := env.Bus.NoExistsInfo(ctx, r.Meta, *m); info != nil && info.AllPresent {
				continue
			}
		}

		downloadID := env.Bus.Download(ctx, r.Torrent, p.Downloader, p.SavePath, p.Label)
		if downloadID == "" {
			env.Logger.Error().Str("title", r.Torrent.Title).Msg("downloader did not accept torrent")
			failed++
			continue
		}

		wc.Downloads = append(wc.Downloads, media.DownloadTask{
			DownloadID: downloadID,
			Downloader: p.Downloader,
			Title:      r.Torrent.Title,
		})
		if err := env.Cache.Save(env.WorkflowID, a.ID(), fingerprint); err != nil {
			env.Logger.Error().Err(err).Str("title", r.Torrent.Title).Msg("dedup cache save failed")
		}
		added++
	}

	msg := fmt.Sprintf("added %d downloads", added)
	if failed > 0 {
		msg = fmt.Sprintf("added %d downloads, %d failed", added, failed)
	}
	a.JobDone(failed == 0, msg)
	return wc
}

// AddSubscribe registers a standing subscription for every context media not
// already subscribed in a previous run.
type AddSubscribe struct {
	BaseAction
}

func NewAddSubscribe(id string) Action { return &AddSubscribe{BaseAction: NewBase(id)} }

func (a *AddSubscribe) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	added, failed := 0, 0
	for _, m := range wc.Medias {
		if env.Stopped() {
			break
		}
		fingerprint := m.Identity()
		if env.Cache.Check(env.WorkflowID, a.ID(), fingerprint) {
			continue
		}
		if !env.Bus.AddSubscribe(ctx, m) {
			env.Logger.Error().Str("title", m.Title).Msg("subscribe was not accepted")
			failed++
			continue
		}
		if err := env.Cache.Save(env.WorkflowID, a.ID(), fingerprint); err != nil {
			env.Logger.Error().Err(err).Str("title", m.Title).Msg("dedup cache save failed")
		}
		added++
	}

	msg := fmt.Sprintf("added %d subscribes", added)
	if failed > 0 {
		msg = fmt.Sprintf("added %d subscribes, %d failed", added, failed)
	}
	a.JobDone(failed == 0, msg)
	return wc
}
