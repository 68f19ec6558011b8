// Package chain implements the capability bus: a polymorphic dispatcher that
// routes named capability calls onto the first registered module providing
// them. Actions stay agnostic of which concrete downloader, media server,
// site, or messenger is installed; modules declare the capabilities they
// implement in an explicit table and the bus dispatches by lookup only.
package chain

import (
	"context"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// Capability names the operations modules may provide. The set is finite and
// declared here so the bus vocabulary stays auditable.
type Capability string

const (
	// Downloader capabilities
	CapDownload     Capability = "download"
	CapListTorrents Capability = "list_torrents"

	// Media identification and presence
	CapRecognizeMedia Capability = "recognize_media"
	CapMediaExists    Capability = "media_exists"
	CapNoExistsInfo   Capability = "get_no_exists_info"

	// Site search
	CapSearchByTitle Capability = "search_by_title"
	CapSearchByID    Capability = "search_by_id"

	// Storage and transfer
	CapGetFileItem    Capability = "get_file_item"
	CapListFiles      Capability = "list_files"
	CapDeleteFile     Capability = "delete_file"
	CapExists         Capability = "exists"
	CapDoTransfer     Capability = "do_transfer"
	CapScrapeMetadata Capability = "scrape_metadata"

	// Feeds and recommendations
	CapRSSParse        Capability = "rss_parse"
	CapRecommendMedias Capability = "recommend_medias"

	// Messaging, events, subscriptions, plugins
	CapPostMessage         Capability = "post_message"
	CapSendEvent           Capability = "send_event"
	CapAddSubscribe        Capability = "add_subscribe"
	CapPluginAction        Capability = "plugin_action"
	CapMediaserverLibrarys Capability = "mediaserver_librarys"
)

// Args carries the named arguments of a capability call.
type Args map[string]any

// String returns the string argument under key, or "".
func (a Args) String(key string) string {
	v, _ := a[key].(string)
	return v
}

// Handler implements one capability for one module. A nil result with a nil
// error means "not mine"; the bus moves on to the next provider.
type Handler func(ctx context.Context, args Args) (any, error)

// Module provides one or more capabilities. Implementations must be safe for
// concurrent use: module instances are shared by every running workflow.
type Module interface {
	// Name identifies the module in logs and service lookups.
	Name() string
	// Init prepares the module for dispatch; it must be idempotent.
	Init(ctx context.Context) error
	// Stop releases sessions, sockets, and background goroutines.
	Stop(ctx context.Context) error
	// Test probes reachability of the module's backing system.
	Test(ctx context.Context) (bool, string)
	// Capabilities returns the dispatch table. Called once at registration;
	// the returned map must not change afterwards.
	Capabilities() map[Capability]Handler
}

// MultiInstance is implemented by modules fronting several configured
// services (two downloaders, three notify endpoints). The service helper
// joins instances to their persisted configurations by name.
type MultiInstance interface {
	Instances() map[string]any
}

// ExistMediaInfo reports what a media server already holds for a media.
type ExistMediaInfo struct {
	Type    media.MediaType `json:"type"`
	Seasons map[int][]int   `json:"seasons,omitempty"`
}

// NoExistsInfo reports which episodes are still missing from the library.
type NoExistsInfo struct {
	AllPresent bool          `json:"all_present"`
	Lacking    map[int][]int `json:"lacking,omitempty"`
}

// TransferResult is the outcome of a do_transfer call. Target is the
// destination path in the target storage.
type TransferResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Target  string `json:"target,omitempty"`
}

// PluginActionResult is the outcome of a plugin_action call.
type PluginActionResult struct {
	Success bool              `json:"success"`
	Context *workflow.Context `json:"context,omitempty"`
	Message string            `json:"message,omitempty"`
}
