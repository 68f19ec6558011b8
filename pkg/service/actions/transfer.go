package actions

import (
	"context"
	"fmt"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// TransferFile moves completed downloads or staged file items into the media
// library layout. Downloads are fingerprinted by download id, file items by
// path; when the source is the fileitems sequence, processed entries are
// removed from it.
type TransferFile struct {
	BaseAction
}

type transferFileParams struct {
	Source     string `json:"source"` // downloads | fileitems
	Storage    string `json:"storage"`
	TargetPath string `json:"target_path"`
}

func NewTransferFile(id string) Action { return &TransferFile{BaseAction: NewBase(id)} }

func (a *TransferFile) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	p := transferFileParams{Source: "downloads"}
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}

	switch p.Source {
	case "fileitems":
		a.transferFileItems(ctx, env, p, wc)
	default:
		a.transferDownloads(ctx, env, p, wc)
	}
	return wc
}

func (a *TransferFile) transferDownloads(ctx context.Context, env Env, p transferFileParams, wc *workflow.Context) {
	transferred, failed := 0, 0
	for _, task := range wc.Downloads {
		if env.Stopped() {
			break
		}
		if !task.Completed || task.Path == "" {
			continue
		}
		if env.Cache.Check(env.WorkflowID, a.ID(), task.DownloadID) {
			continue
		}

		item := env.Bus.GetFileItem(ctx, p.Storage, task.Path)
		if item == nil {
			env.Logger.Error().Str("path", task.Path).Msg("download path not found on storage")
			failed++
			continue
		}
		target, ok := a.transferOne(ctx, env, *item, p)
		if !ok {
			failed++
			continue
		}
		wc.FileItems = append(wc.FileItems, target)
		if err := env.Cache.Save(env.WorkflowID, a.ID(), task.DownloadID); err != nil {
			env.Logger.Error().Err(err).Str("download_id", task.DownloadID).Msg("dedup cache save failed")
		}
		transferred++
	}
	a.finish(transferred, failed)
}

func (a *TransferFile) transferFileItems(ctx context.Context, env Env, p transferFileParams, wc *workflow.Context) {
	transferred, failed := 0, 0
	items := wc.FileItems
	var rebuilt []media.FileItem
	for i, item := range items {
		if env.Stopped() {
			rebuilt = append(rebuilt, items[i:]...)
			break
		}
		if env.Cache.Check(env.WorkflowID, a.ID(), item.Path) {
			continue
		}
		target, ok := a.transferOne(ctx, env, item, p)
		if !ok {
			failed++
			// failures stay in the sequence for a later run
			rebuilt = append(rebuilt, item)
			continue
		}
		rebuilt = append(rebuilt, target)
		if err := env.Cache.Save(env.WorkflowID, a.ID(), item.Path); err != nil {
			env.Logger.Error().Err(err).Str("path", item.Path).Msg("dedup cache save failed")
		}
		transferred++
	}
	if rebuilt == nil {
		rebuilt = []media.FileItem{}
	}
	wc.FileItems = rebuilt
	a.finish(transferred, failed)
}

// transferOne performs one transfer and returns the resulting library item.
func (a *TransferFile) transferOne(ctx context.Context, env Env, item media.FileItem, p transferFileParams) (media.FileItem, bool) {
	result := env.Bus.DoTransfer(ctx, item, p.TargetPath)
	if result == nil || !result.OK {
		msg := "no storage module accepted the transfer"
		if result != nil {
			msg = result.Message
		}
		env.Logger.Error().Str("path", item.Path).Str("reason", msg).Msg("transfer failed")
		return media.FileItem{}, false
	}
	target := env.Bus.GetFileItem(ctx, p.Storage, result.Target)
	if target == nil {
		target = &media.FileItem{Storage: p.Storage, Path: result.Target, Type: media.FileItemFile, Name: item.Name}
	}
	return *target, true
}

func (a *TransferFile) finish(transferred, failed int) {
	msg := fmt.Sprintf("transferred %d files", transferred)
	if failed > 0 {
		msg = fmt.Sprintf("transferred %d files, %d failed", transferred, failed)
	}
	a.JobDone(failed == 0, msg)
}

// ScrapeFile recognizes each context file item and writes metadata beside it.
// The dedup fingerprint is the file path.
type ScrapeFile struct {
	BaseAction
}

func NewScrapeFile(id string) Action { return &ScrapeFile{BaseAction: NewBase(id)} }

func (a *ScrapeFile) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	scraped, failed := 0, 0
	for _, item := range wc.FileItems {
		if env.Stopped() {
			break
		}
		if env.Cache.Check(env.WorkflowID, a.ID(), item.Path) {
			continue
		}

		meta := media.MetaInfo{RawTitle: item.Name, Name: item.Basename}
		m := env.Bus.RecognizeMedia(ctx, meta)
		if m == nil {
			env.Logger.Warn().Str("path", item.Path).Msg("media not recognized, skipping scrape")
			failed++
			continue
		}
		if !env.Bus.ScrapeMetadata(ctx, item, meta, m) {
			env.Logger.Error().Str("path", item.Path).Msg("metadata scrape failed")
			failed++
			continue
		}
		if err := env.Cache.Save(env.WorkflowID, a.ID(), item.Path); err != nil {
			env.Logger.Error().Err(err).Str("path", item.Path).Msg("dedup cache save failed")
		}
		scraped++
	}

	msg := fmt.Sprintf("scraped %d files", scraped)
	if failed > 0 {
		msg = fmt.Sprintf("scraped %d files, %d failed", scraped, failed)
	}
	a.JobDone(failed == 0, msg)
	return wc
}
