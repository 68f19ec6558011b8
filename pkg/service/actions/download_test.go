package actions

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

func torrentResource(site, title string) media.Resource {
	return media.Resource{
		Torrent: media.TorrentInfo{Site: site, Title: title, Enclosure: "magnet:" + title},
		Meta:    media.MetaInfo{RawTitle: title},
	}
}

func downloaderCaps(calls *[]string) map[chain.Capability]chain.Handler {
	return map[chain.Capability]chain.Handler{
		chain.CapRecognizeMedia: func(ctx context.Context, args chain.Args) (any, error) {
			return &media.Media{Type: media.MediaTypeMovie, Title: "Recognized"}, nil
		},
		chain.CapDownload: func(ctx context.Context, args chain.Args) (any, error) {
			torrent := args["torrent"].(media.TorrentInfo)
			*calls = append(*calls, torrent.Title)
			return fmt.Sprintf("dl-%d", len(*calls)), nil
		},
	}
}

func TestAddDownloadAddsAndCaches(t *testing.T) {
	var calls []string
	env, _ := newTestEnv(t, "wf-1", downloaderCaps(&calls))

	wc := workflow.NewContext()
	wc.Torrents = []media.Resource{
		torrentResource("site-a", "Movie.One.1080p"),
		torrentResource("site-b", "Movie.Two.1080p"),
	}

	act := NewAddDownload("add1")
	act.Execute(context.Background(), env, map[string]any{"downloader": "qb"}, wc)

	require.True(t, act.Done())
	assert.True(t, act.Success())
	assert.Contains(t, act.Message(), "2")
	assert.Len(t, wc.Downloads, 2)
	assert.Equal(t, []string{"Movie.One.1080p", "Movie.Two.1080p"}, calls)
	assert.True(t, env.Cache.Check("wf-1", "add1", "site-a-Movie.One.1080p"))
	assert.True(t, env.Cache.Check("wf-1", "add1", "site-b-Movie.Two.1080p"))
}

func TestAddDownloadDedupOnSecondRun(t *testing.T) {
	var calls []string
	env, _ := newTestEnv(t, "wf-1", downloaderCaps(&calls))

	run := func() *workflow.Context {
		wc := workflow.NewContext()
		wc.Torrents = []media.Resource{torrentResource("site-a", "Movie.One.1080p")}
		act := NewAddDownload("add1")
		act.Execute(context.Background(), env, nil, wc)
		require.True(t, act.Done())
		return wc
	}

	first := run()
	assert.Len(t, first.Downloads, 1)

	second := run()
	assert.Empty(t, second.Downloads)
	assert.Len(t, calls, 1)
}

func TestAddDownloadNoDownloaderModule(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", map[chain.Capability]chain.Handler{
		chain.CapRecognizeMedia: func(ctx context.Context, args chain.Args) (any, error) {
			return &media.Media{Type: media.MediaTypeMovie, Title: "Recognized"}, nil
		},
	})

	wc := workflow.NewContext()
	wc.Torrents = []media.Resource{torrentResource("site-a", "Movie.One.1080p")}

	act := NewAddDownload("add1")
	act.Execute(context.Background(), env, nil, wc)

	require.True(t, act.Done())
	assert.False(t, act.Success())
	assert.Contains(t, act.Message(), "failed")
	assert.Empty(t, wc.Downloads)
	assert.False(t, env.Cache.Check("wf-1", "add1", "site-a-Movie.One.1080p"))
}

func TestAddDownloadUnrecognizedIsFailure(t *testing.T) {
	var calls []string
	caps := downloaderCaps(&calls)
	caps[chain.CapRecognizeMedia] = func(ctx context.Context, args chain.Args) (any, error) {
		return nil, nil
	}
	env, _ := newTestEnv(t, "wf-1", caps)

	wc := workflow.NewContext()
	wc.Torrents = []media.Resource{torrentResource("site-a", "garbage")}

	act := NewAddDownload("add1")
	act.Execute(context.Background(), env, nil, wc)

	require.True(t, act.Done())
	assert.False(t, act.Success())
	assert.Empty(t, calls)
}

func TestAddDownloadOnlyLackSkipsCompleteSeasons(t *testing.T) {
	var calls []string
	caps := downloaderCaps(&calls)
	tv := &media.Media{Type: media.MediaTypeTV, Title: "Show", Season: 1}
	caps[chain.CapNoExistsInfo] = func(ctx context.Context, args chain.Args) (any, error) {
		return &chain.NoExistsInfo{AllPresent: true}, nil
	}
	env, _ := newTestEnv(t, "wf-1", caps)

	wc := workflow.NewContext()
	complete := torrentResource("site-a", "Show.S01.1080p")
	complete.Media = tv
	spanning := torrentResource("site-a", "Show.S01-S03.1080p")
	spanning.Media = tv
	spanning.Meta.Season = 1
	spanning.Meta.EndSeason = 3
	wc.Torrents = []media.Resource{complete, spanning}

	act := NewAddDownload("add1")
	act.Execute(context.Background(), env, map[string]any{"only_lack": true}, wc)

	require.True(t, act.Done())
	assert.True(t, act.Success())
	assert.Empty(t, wc.Downloads)
	assert.Empty(t, calls)
}

func TestAddDownloadStopsCooperatively(t *testing.T) {
	stopper := &flagStopper{}
	var calls []string
	caps := downloaderCaps(&calls)
	caps[chain.CapDownload] = func(ctx context.Context, args chain.Args) (any, error) {
		calls = append(calls, "called")
		stopper.stopped = true // stop arrives while the first item is in flight
		return "dl-1", nil
	}
	env, _ := newTestEnv(t, "wf-1", caps)
	env.Stop = stopper

	wc := workflow.NewContext()
	wc.Torrents = []media.Resource{
		torrentResource("site-a", "Movie.One.1080p"),
		torrentResource("site-a", "Movie.Two.1080p"),
	}

	act := NewAddDownload("add1")
	act.Execute(context.Background(), env, nil, wc)

	require.True(t, act.Done())
	assert.Len(t, wc.Downloads, 1)
	assert.Len(t, calls, 1)
}

func TestAddSubscribe(t *testing.T) {
	subscribed := 0
	env, _ := newTestEnv(t, "wf-1", map[chain.Capability]chain.Handler{
		chain.CapAddSubscribe: func(ctx context.Context, args chain.Args) (any, error) {
			subscribed++
			return true, nil
		},
	})

	wc := workflow.NewContext()
	wc.Medias = []media.Media{
		{Type: media.MediaTypeMovie, Title: "One", TMDBID: 11},
		{Type: media.MediaTypeMovie, Title: "Two", TMDBID: 22},
	}

	act := NewAddSubscribe("sub1")
	act.Execute(context.Background(), env, nil, wc)
	require.True(t, act.Done())
	assert.True(t, act.Success())
	assert.Equal(t, 2, subscribed)

	// identity-based dedup on re-run
	act2 := NewAddSubscribe("sub1")
	act2.Execute(context.Background(), env, nil, wc)
	assert.Equal(t, 2, subscribed)
	assert.Contains(t, act2.Message(), "0")
}
