// Package media defines the value objects that flow through workflow runs:
// recognized media, site resources, file items, download tasks, and the
// notification/event payloads actions exchange with modules.
//
// All types are plain value objects. Entries stored in an ActionContext must
// stay safely deep-copyable; types holding maps or slices provide Clone.
package media

import "time"

// MediaType distinguishes movies from episodic media.
type MediaType string

const (
	MediaTypeMovie MediaType = "Movie"
	MediaTypeTV    MediaType = "TV"
)

// Media is an identified movie or TV show.
type Media struct {
	Type      MediaType     `json:"type"`
	Title     string        `json:"title"`
	Year      string        `json:"year,omitempty"`
	TMDBID    int64         `json:"tmdb_id,omitempty"`
	DoubanID  string        `json:"douban_id,omitempty"`
	BangumiID int64         `json:"bangumi_id,omitempty"`
	Season    int           `json:"season,omitempty"`
	Seasons   map[int][]int `json:"seasons,omitempty"`
	Vote      float64       `json:"vote,omitempty"`
	Overview  string        `json:"overview,omitempty"`
	Poster    string        `json:"poster,omitempty"`
}

// Identity returns the best stable identifier for dedup fingerprints:
// tmdb id when present, then douban, then bangumi, falling back to title+year.
func (m Media) Identity() string {
	switch {
	case m.TMDBID != 0:
		return "tmdb:" + itoa(m.TMDBID)
	case m.DoubanID != "":
		return "douban:" + m.DoubanID
	case m.BangumiID != 0:
		return "bangumi:" + itoa(m.BangumiID)
	default:
		return m.Title + ":" + m.Year
	}
}

// Clone returns a deep copy of the media.
func (m Media) Clone() Media {
	out := m
	if m.Seasons != nil {
		out.Seasons = make(map[int][]int, len(m.Seasons))
		for season, episodes := range m.Seasons {
			out.Seasons[season] = append([]int(nil), episodes...)
		}
	}
	return out
}

func itoa(v int64) string {
	// small positive ids only; avoids strconv import churn in hot paths
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := v < 0
	if neg {
		v = -v
	}
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// MetaInfo carries what could be parsed out of a raw title or filename.
type MetaInfo struct {
	RawTitle   string    `json:"raw_title"`
	Name       string    `json:"name"`
	Year       string    `json:"year,omitempty"`
	Type       MediaType `json:"type,omitempty"`
	Season     int       `json:"season,omitempty"`
	Episode    int       `json:"episode,omitempty"`
	EndSeason  int       `json:"end_season,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
}

// SpansSeasons reports whether the parsed title covers more than one season.
func (mi MetaInfo) SpansSeasons() bool {
	return mi.EndSeason > 0 && mi.EndSeason != mi.Season
}

// TorrentInfo describes a downloadable resource as advertised by a site.
type TorrentInfo struct {
	Site      string    `json:"site,omitempty"`
	SiteName  string    `json:"site_name,omitempty"`
	Title     string    `json:"title"`
	Enclosure string    `json:"enclosure"`
	PageURL   string    `json:"page_url,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Seeders   int       `json:"seeders,omitempty"`
	PubDate   time.Time `json:"pub_date,omitempty"`
}

// Resource pairs a torrent with whatever identification has been attached so far.
type Resource struct {
	Torrent TorrentInfo `json:"torrent_info"`
	Meta    MetaInfo    `json:"meta_info"`
	Media   *Media      `json:"media_info,omitempty"`
}

// Clone returns a deep copy of the resource.
func (r Resource) Clone() Resource {
	out := r
	if r.Media != nil {
		m := r.Media.Clone()
		out.Media = &m
	}
	return out
}

// FileItemType distinguishes files from directories.
type FileItemType string

const (
	FileItemFile FileItemType = "file"
	FileItemDir  FileItemType = "dir"
)

// FileItem locates a file or directory on a named storage.
type FileItem struct {
	Storage   string       `json:"storage"`
	Path      string       `json:"path"`
	Type      FileItemType `json:"type"`
	Name      string       `json:"name"`
	Basename  string       `json:"basename"`
	Extension string       `json:"extension,omitempty"`
	Size      int64        `json:"size,omitempty"`
}

// DownloadTask tracks a task handed to a downloader.
type DownloadTask struct {
	DownloadID string `json:"download_id"`
	Downloader string `json:"downloader"`
	Path       string `json:"path,omitempty"`
	Title      string `json:"title,omitempty"`
	Completed  bool   `json:"completed"`
}

// Site describes a configured resource site.
type Site struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
	URL    string `json:"url"`
	Proxy  bool   `json:"proxy,omitempty"`
	Active bool   `json:"active"`
}

// Subscribe is a standing request to acquire a media as it becomes available.
type Subscribe struct {
	ID       int64     `json:"id,omitempty"`
	Name     string    `json:"name"`
	Type     MediaType `json:"type"`
	Year     string    `json:"year,omitempty"`
	TMDBID   int64     `json:"tmdb_id,omitempty"`
	DoubanID string    `json:"douban_id,omitempty"`
	Season   int       `json:"season,omitempty"`
}

// Notification is an outbound user message.
type Notification struct {
	Channel string `json:"channel,omitempty"`
	Title   string `json:"title"`
	Text    string `json:"text,omitempty"`
	Image   string `json:"image,omitempty"`
	Link    string `json:"link,omitempty"`
}

// Event is an engine-internal broadcast payload. Higher priority events are
// dispatched first.
type Event struct {
	Type     string         `json:"type"`
	Priority int            `json:"priority"`
	Data     map[string]any `json:"data,omitempty"`
}

// Clone returns a deep copy of the event. Data values are copied at the top
// level only; event payloads hold value types by convention.
func (e Event) Clone() Event {
	out := e
	if e.Data != nil {
		out.Data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			out.Data[k] = v
		}
	}
	return out
}

// EventRecommendSource is raised to extend the recommend feed set at runtime.
const EventRecommendSource = "RecommendSource"
