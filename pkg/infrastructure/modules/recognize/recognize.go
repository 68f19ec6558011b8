// Package recognize provides the recognize_media capability: a token-based
// parser that turns noisy release titles into identified media.
package recognize

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

const cacheSize = 1024

var (
	yearPattern    = regexp.MustCompile(`^(19|20)\d{2}$`)
	seasonEpisode  = regexp.MustCompile(`(?i)^S(\d{1,2})(?:E(\d{1,3}))?$`)
	seasonSpan     = regexp.MustCompile(`(?i)^S(\d{1,2})-S(\d{1,2})$`)
	episodeOnly    = regexp.MustCompile(`(?i)^EP?(\d{1,3})$`)
	noiseTokens    = map[string]bool{}
	noiseTokenList = []string{
		"720p", "1080p", "1080i", "2160p", "4k", "uhd", "hdr", "hdr10", "dv",
		"bluray", "blu-ray", "bdrip", "brrip", "webrip", "web-dl", "webdl",
		"web", "hdtv", "dvdrip", "remux", "x264", "x265", "h264", "h265",
		"hevc", "avc", "aac", "ac3", "dts", "truehd", "atmos", "flac",
		"10bit", "8bit", "proper", "repack", "internal", "complete",
	}
)

func init() {
	for _, t := range noiseTokenList {
		noiseTokens[t] = true
	}
}

// Module recognizes media from parsed or raw titles, caching results by the
// raw title so repeated runs over the same feed stay cheap.
type Module struct {
	cache  *lru.Cache[string, *media.Media]
	logger zerolog.Logger
}

// New creates the recognize module.
func New(logger zerolog.Logger) *Module {
	return &Module{logger: logger.With().Str("module", "recognize").Logger()}
}

// Name implements chain.Module.
func (m *Module) Name() string { return "recognize" }

// Init implements chain.Module.
func (m *Module) Init(ctx context.Context) error {
	cache, err := lru.New[string, *media.Media](cacheSize)
	if err != nil {
		return errors.New(errors.CodeInternalError, "recognize", "failed to create cache", err)
	}
	m.cache = cache
	return nil
}

// Stop implements chain.Module.
func (m *Module) Stop(ctx context.Context) error {
	if m.cache != nil {
		m.cache.Purge()
	}
	return nil
}

// Test implements chain.Module.
func (m *Module) Test(ctx context.Context) (bool, string) {
	return m.cache != nil, "recognize module not initialised"
}

// Capabilities implements chain.Module.
func (m *Module) Capabilities() map[chain.Capability]chain.Handler {
	return map[chain.Capability]chain.Handler{
		chain.CapRecognizeMedia: m.recognize,
	}
}

func (m *Module) recognize(ctx context.Context, args chain.Args) (any, error) {
	meta, ok := args["meta"].(media.MetaInfo)
	if !ok {
		return nil, errors.New(errors.CodeMissingParameter, "recognize", "meta is required", nil)
	}
	raw := meta.RawTitle
	if raw == "" {
		raw = meta.Name
	}
	if raw == "" {
		return nil, nil
	}

	if cached, ok := m.cache.Get(raw); ok {
		if cached == nil {
			return nil, nil
		}
		c := cached.Clone()
		return &c, nil
	}

	parsed := Parse(raw)
	if parsed == nil {
		m.cache.Add(raw, nil)
		return nil, nil
	}
	m.cache.Add(raw, parsed)
	c := parsed.Clone()
	return &c, nil
}

// Parse extracts a media identity from a raw release title. It returns nil
// when no usable title remains after noise stripping.
func Parse(raw string) *media.Media {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case '.', '_', ' ', '[', ']', '(', ')', '{', '}':
			return true
		}
		return false
	})

	var (
		titleTokens []string
		year        string
		season      int
		isTV        bool
		boundary    bool
	)
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if noiseTokens[lower] {
			boundary = true
			continue
		}
		if yearPattern.MatchString(token) {
			year = token
			boundary = true
			continue
		}
		if sm := seasonSpan.FindStringSubmatch(token); sm != nil {
			season, _ = strconv.Atoi(sm[1])
			isTV = true
			boundary = true
			continue
		}
		if sm := seasonEpisode.FindStringSubmatch(token); sm != nil {
			season, _ = strconv.Atoi(sm[1])
			isTV = true
			boundary = true
			continue
		}
		if episodeOnly.MatchString(token) {
			isTV = true
			boundary = true
			continue
		}
		if !boundary {
			titleTokens = append(titleTokens, token)
		}
	}

	if len(titleTokens) == 0 {
		return nil
	}

	out := &media.Media{
		Type:  media.MediaTypeMovie,
		Title: strings.Join(titleTokens, " "),
		Year:  year,
	}
	if isTV {
		out.Type = media.MediaTypeTV
		if season == 0 {
			season = 1
		}
		out.Season = season
	}
	return out
}
