package chain

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// Bus dispatches capability calls across the registry's running modules in
// registration order. The first non-nil result wins; module errors and panics
// are absorbed (logged, treated as nil) so one faulty provider never takes
// down a run.
type Bus struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewBus creates a bus over the given module registry.
func NewBus(registry *Registry, logger zerolog.Logger) *Bus {
	return &Bus{
		registry: registry,
		logger:   logger.With().Str("component", "chain").Logger(),
	}
}

// Has reports whether any running module declares the capability.
func (b *Bus) Has(capability Capability) bool {
	for _, m := range b.registry.Running() {
		if _, ok := m.Capabilities()[capability]; ok {
			return true
		}
	}
	return false
}

// Run dispatches a capability call and returns the first non-nil result, or
// nil when no running module produced one.
func (b *Bus) Run(ctx context.Context, capability Capability, args Args) any {
	for _, m := range b.registry.Running() {
		handler, ok := m.Capabilities()[capability]
		if !ok {
			continue
		}
		result, err := b.invoke(ctx, m, capability, handler, args)
		if err != nil {
			b.logger.Error().Err(err).
				Str("module", m.Name()).
				Str("capability", string(capability)).
				Msg("module capability failed")
			continue
		}
		if result != nil {
			return result
		}
	}
	return nil
}

// invoke calls one handler with panic isolation.
func (b *Bus) invoke(ctx context.Context, m Module, capability Capability, handler Handler, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("module", m.Name()).
				Str("capability", string(capability)).
				Interface("panic", r).
				Msg("module capability panicked")
			result, err = nil, nil
		}
	}()
	return handler(ctx, args)
}

// Typed façade. Actions call these instead of building Args by hand; each
// wrapper fixes the argument and result schema of its capability.

// Download hands a torrent to a downloader and returns the download id.
func (b *Bus) Download(ctx context.Context, torrent media.TorrentInfo, downloader, savePath, label string) string {
	result := b.Run(ctx, CapDownload, Args{
		"torrent":    torrent,
		"downloader": downloader,
		"save_path":  savePath,
		"label":      label,
	})
	id, _ := result.(string)
	return id
}

// ListTorrents queries downloader state for the given download ids.
func (b *Bus) ListTorrents(ctx context.Context, downloader string, ids []string) []media.DownloadTask {
	result := b.Run(ctx, CapListTorrents, Args{"downloader": downloader, "ids": ids})
	tasks, _ := result.([]media.DownloadTask)
	return tasks
}

// RecognizeMedia identifies a media from parsed title metadata.
func (b *Bus) RecognizeMedia(ctx context.Context, meta media.MetaInfo) *media.Media {
	result := b.Run(ctx, CapRecognizeMedia, Args{"meta": meta})
	m, _ := result.(*media.Media)
	return m
}

// MediaExists asks the media servers what they hold for a media.
func (b *Bus) MediaExists(ctx context.Context, m media.Media) *ExistMediaInfo {
	result := b.Run(ctx, CapMediaExists, Args{"media": m})
	info, _ := result.(*ExistMediaInfo)
	return info
}

// NoExistsInfo reports missing episodes for a media given its parsed meta.
func (b *Bus) NoExistsInfo(ctx context.Context, meta media.MetaInfo, m media.Media) *NoExistsInfo {
	result := b.Run(ctx, CapNoExistsInfo, Args{"meta": meta, "media": m})
	info, _ := result.(*NoExistsInfo)
	return info
}

// SearchByTitle searches the given sites for a free-text title.
func (b *Bus) SearchByTitle(ctx context.Context, title string, sites []string) []media.Resource {
	result := b.Run(ctx, CapSearchByTitle, Args{"title": title, "sites": sites})
	resources, _ := result.([]media.Resource)
	return resources
}

// SearchByID searches the given sites for an identified media.
func (b *Bus) SearchByID(ctx context.Context, m media.Media, sites []string) []media.Resource {
	result := b.Run(ctx, CapSearchByID, Args{"media": m, "sites": sites})
	resources, _ := result.([]media.Resource)
	return resources
}

// GetFileItem stats a path on a storage.
func (b *Bus) GetFileItem(ctx context.Context, storage, path string) *media.FileItem {
	result := b.Run(ctx, CapGetFileItem, Args{"storage": storage, "path": path})
	item, _ := result.(*media.FileItem)
	return item
}

// ListFiles lists the children of a directory item.
func (b *Bus) ListFiles(ctx context.Context, item media.FileItem) []media.FileItem {
	result := b.Run(ctx, CapListFiles, Args{"fileitem": item})
	items, _ := result.([]media.FileItem)
	return items
}

// DoTransfer moves a file item into the library layout.
func (b *Bus) DoTransfer(ctx context.Context, item media.FileItem, target string) *TransferResult {
	result := b.Run(ctx, CapDoTransfer, Args{"fileitem": item, "target": target})
	tr, _ := result.(*TransferResult)
	return tr
}

// ScrapeMetadata writes metadata next to an identified media file.
func (b *Bus) ScrapeMetadata(ctx context.Context, item media.FileItem, meta media.MetaInfo, m *media.Media) bool {
	result := b.Run(ctx, CapScrapeMetadata, Args{"fileitem": item, "meta": meta, "media": m})
	ok, _ := result.(bool)
	return ok
}

// RSSParse fetches and parses an RSS feed into resources.
func (b *Bus) RSSParse(ctx context.Context, url, proxy string, timeoutSeconds int, headers map[string]string) []media.Resource {
	result := b.Run(ctx, CapRSSParse, Args{
		"url":     url,
		"proxy":   proxy,
		"timeout": timeoutSeconds,
		"headers": headers,
	})
	resources, _ := result.([]media.Resource)
	return resources
}

// RecommendMedias pulls a named recommendation feed.
func (b *Bus) RecommendMedias(ctx context.Context, source string) []media.Media {
	result := b.Run(ctx, CapRecommendMedias, Args{"source": source})
	medias, _ := result.([]media.Media)
	return medias
}

// PostMessage delivers a notification; returns false when no messenger took it.
func (b *Bus) PostMessage(ctx context.Context, n media.Notification) bool {
	result := b.Run(ctx, CapPostMessage, Args{"notification": n})
	ok, _ := result.(bool)
	return ok
}

// SendEvent broadcasts an event; returns the accepted event or nil.
func (b *Bus) SendEvent(ctx context.Context, e media.Event) *media.Event {
	result := b.Run(ctx, CapSendEvent, Args{"event": e})
	accepted, _ := result.(*media.Event)
	return accepted
}

// AddSubscribe registers a standing subscription for a media.
func (b *Bus) AddSubscribe(ctx context.Context, m media.Media) bool {
	result := b.Run(ctx, CapAddSubscribe, Args{"media": m})
	ok, _ := result.(bool)
	return ok
}

// MediaserverLibrarys lists the libraries of a named media server.
func (b *Bus) MediaserverLibrarys(ctx context.Context, server string) []string {
	result := b.Run(ctx, CapMediaserverLibrarys, Args{"server": server})
	librarys, _ := result.([]string)
	return librarys
}

// PluginAction invokes a plugin-contributed action.
func (b *Bus) PluginAction(ctx context.Context, pluginID, actionID string, params map[string]any, wc *workflow.Context) *PluginActionResult {
	result := b.Run(ctx, CapPluginAction, Args{
		"plugin_id": pluginID,
		"action_id": actionID,
		"params":    params,
		"context":   wc,
	})
	r, _ := result.(*PluginActionResult)
	return r
}
