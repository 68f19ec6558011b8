package actions

// Built-in action type tags.
const (
	TypeFetchMedias    = "fetch_medias"
	TypeFetchRss       = "fetch_rss"
	TypeFetchTorrents  = "fetch_torrents"
	TypeFilterMedias   = "filter_medias"
	TypeFilterTorrents = "filter_torrents"
	TypeAddDownload    = "add_download"
	TypeAddSubscribe   = "add_subscribe"
	TypeFetchDownloads = "fetch_downloads"
	TypeTransferFile   = "transfer_file"
	TypeScrapeFile     = "scrape_file"
	TypeSendMessage    = "send_message"
	TypeSendEvent      = "send_event"
	TypeInvokePlugin   = "invoke_plugin"
)

// RegisterBuiltins registers every built-in action type.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		desc    Descriptor
		factory Factory
	}{
		{
			Descriptor{
				Type: TypeFetchMedias, Name: "Fetch Medias",
				Description: "Pull recommendation feeds into the context medias",
				Defaults:    map[string]any{"sources": []string{}},
			},
			NewFetchMedias,
		},
		{
			Descriptor{
				Type: TypeFetchRss, Name: "Fetch RSS",
				Description: "Fetch an RSS feed into the context torrents",
				Defaults:    map[string]any{"url": "", "proxy": "", "timeout_seconds": 30, "headers": map[string]string{}},
			},
			NewFetchRss,
		},
		{
			Descriptor{
				Type: TypeFetchTorrents, Name: "Fetch Torrents",
				Description: "Search sites for torrents by media or keyword",
				Defaults: map[string]any{
					"search_type": "media", "keyword": "", "sites": []string{},
					"match_media": false, "year": "", "type": "", "season": 0,
				},
			},
			NewFetchTorrents,
		},
		{
			Descriptor{
				Type: TypeFilterMedias, Name: "Filter Medias",
				Description: "Keep context medias matching type, year window and vote",
				Defaults:    map[string]any{"type": "", "min_year": 0, "max_year": 0, "vote": 0},
			},
			NewFilterMedias,
		},
		{
			Descriptor{
				Type: TypeFilterTorrents, Name: "Filter Torrents",
				Description: "Keep context torrents matching title patterns and size window",
				Defaults:    map[string]any{"include": "", "exclude": "", "size_min_mb": 0, "size_max_mb": 0},
			},
			NewFilterTorrents,
		},
		{
			Descriptor{
				Type: TypeAddDownload, Name: "Add Download",
				Description: "Hand new torrents to a downloader",
				Defaults:    map[string]any{"downloader": "", "save_path": "", "label": "", "only_lack": false},
			},
			NewAddDownload,
		},
		{
			Descriptor{
				Type: TypeAddSubscribe, Name: "Add Subscribe",
				Description: "Subscribe every context media",
				Defaults:    map[string]any{},
			},
			NewAddSubscribe,
		},
		{
			Descriptor{
				Type: TypeFetchDownloads, Name: "Fetch Downloads",
				Description: "Refresh download completion state from the downloader",
				Defaults:    map[string]any{"downloader": ""},
			},
			NewFetchDownloads,
		},
		{
			Descriptor{
				Type: TypeTransferFile, Name: "Transfer File",
				Description: "Move completed downloads or file items into the library",
				Defaults:    map[string]any{"source": "downloads", "storage": "", "target_path": ""},
			},
			NewTransferFile,
		},
		{
			Descriptor{
				Type: TypeScrapeFile, Name: "Scrape File",
				Description: "Recognize file items and write metadata beside them",
				Defaults:    map[string]any{},
			},
			NewScrapeFile,
		},
		{
			Descriptor{
				Type: TypeSendMessage, Name: "Send Message",
				Description: "Post context notifications through the messengers",
				Defaults:    map[string]any{"title": ""},
			},
			NewSendMessage,
		},
		{
			Descriptor{
				Type: TypeSendEvent, Name: "Send Event",
				Description: "Dispatch context events highest-priority-first",
				Defaults:    map[string]any{},
			},
			NewSendEvent,
		},
		{
			Descriptor{
				Type: TypeInvokePlugin, Name: "Invoke Plugin",
				Description: "Run a plugin-contributed action",
				Defaults:    map[string]any{"plugin_id": "", "action_id": "", "params": map[string]any{}},
			},
			NewInvokePlugin,
		},
	}

	for _, b := range builtins {
		if err := r.Register(b.desc, b.factory); err != nil {
			return err
		}
	}
	return nil
}
