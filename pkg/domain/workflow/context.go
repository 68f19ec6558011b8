package workflow

import (
	"github.com/mediamate/mediamate/pkg/domain/media"
)

// Context is the mutable data bag threaded through the actions of one run.
//
// It is constructed empty when a run starts, handed by reference to every
// action in order, and discarded when the run ends. Sequences are never nil
// after NewContext; actions append, rewrite, or consume them but must leave
// the context valid when returning, including on cooperative stop.
type Context struct {
	Torrents   []media.Resource     `json:"torrents"`
	Medias     []media.Media        `json:"medias"`
	FileItems  []media.FileItem     `json:"fileitems"`
	Downloads  []media.DownloadTask `json:"downloads"`
	Sites      []media.Site         `json:"sites"`
	Subscribes []media.Subscribe    `json:"subscribes"`
	Messages   []media.Notification `json:"messages"`
	Events     []media.Event        `json:"events"`
	Content    string               `json:"content,omitempty"`
}

// NewContext returns an empty context with all sequences allocated.
func NewContext() *Context {
	return &Context{
		Torrents:   []media.Resource{},
		Medias:     []media.Media{},
		FileItems:  []media.FileItem{},
		Downloads:  []media.DownloadTask{},
		Sites:      []media.Site{},
		Subscribes: []media.Subscribe{},
		Messages:   []media.Notification{},
		Events:     []media.Event{},
	}
}
