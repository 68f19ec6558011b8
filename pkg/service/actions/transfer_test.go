package actions

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

func storageCaps() map[chain.Capability]chain.Handler {
	return map[chain.Capability]chain.Handler{
		chain.CapGetFileItem: func(ctx context.Context, args chain.Args) (any, error) {
			p := args.String("path")
			name := path.Base(p)
			return &media.FileItem{
				Storage: "local", Path: p, Type: media.FileItemFile,
				Name: name, Basename: name,
			}, nil
		},
		chain.CapDoTransfer: func(ctx context.Context, args chain.Args) (any, error) {
			item := args["fileitem"].(media.FileItem)
			target := args.String("target")
			return &chain.TransferResult{OK: true, Target: path.Join(target, item.Name)}, nil
		},
		chain.CapRecognizeMedia: func(ctx context.Context, args chain.Args) (any, error) {
			return &media.Media{Type: media.MediaTypeMovie, Title: "Recognized"}, nil
		},
		chain.CapScrapeMetadata: func(ctx context.Context, args chain.Args) (any, error) {
			return true, nil
		},
	}
}

func TestTransferFileFromDownloads(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", storageCaps())

	wc := workflow.NewContext()
	wc.Downloads = []media.DownloadTask{
		{DownloadID: "dl-1", Completed: true, Path: "/downloads/one.mkv"},
		{DownloadID: "dl-2", Completed: true, Path: "/downloads/two.mkv"},
		{DownloadID: "dl-3", Completed: false, Path: "/downloads/running.mkv"},
		{DownloadID: "dl-4", Completed: true}, // no path yet
	}

	act := NewTransferFile("tr1")
	act.Execute(context.Background(), env, map[string]any{"target_path": "/library"}, wc)

	require.True(t, act.Done())
	assert.True(t, act.Success())
	assert.Contains(t, act.Message(), "2")
	require.Len(t, wc.FileItems, 2)
	assert.Equal(t, "/library/one.mkv", wc.FileItems[0].Path)
	assert.True(t, env.Cache.Check("wf-1", "tr1", "dl-1"))
	assert.True(t, env.Cache.Check("wf-1", "tr1", "dl-2"))
	assert.False(t, env.Cache.Check("wf-1", "tr1", "dl-3"))
}

func TestTransferFileDedupOnSecondRun(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", storageCaps())

	wc := workflow.NewContext()
	wc.Downloads = []media.DownloadTask{{DownloadID: "dl-1", Completed: true, Path: "/d/one.mkv"}}

	first := NewTransferFile("tr1")
	first.Execute(context.Background(), env, map[string]any{"target_path": "/lib"}, wc)
	require.Len(t, wc.FileItems, 1)

	wc2 := workflow.NewContext()
	wc2.Downloads = wc.Downloads
	second := NewTransferFile("tr1")
	second.Execute(context.Background(), env, map[string]any{"target_path": "/lib"}, wc2)
	assert.Empty(t, wc2.FileItems)
	assert.Contains(t, second.Message(), "0")
}

func TestTransferFileFromFileItems(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", storageCaps())

	wc := workflow.NewContext()
	wc.FileItems = []media.FileItem{
		{Storage: "local", Path: "/staging/one.mkv", Type: media.FileItemFile, Name: "one.mkv"},
	}

	act := NewTransferFile("tr1")
	act.Execute(context.Background(), env, map[string]any{"source": "fileitems", "target_path": "/lib"}, wc)

	require.True(t, act.Done())
	require.Len(t, wc.FileItems, 1)
	// the staged entry was replaced by the library item
	assert.Equal(t, "/lib/one.mkv", wc.FileItems[0].Path)
	assert.True(t, env.Cache.Check("wf-1", "tr1", "/staging/one.mkv"))
}

func TestTransferFileFailureKeepsFileItem(t *testing.T) {
	caps := storageCaps()
	caps[chain.CapDoTransfer] = func(ctx context.Context, args chain.Args) (any, error) {
		return &chain.TransferResult{OK: false, Message: "target full"}, nil
	}
	env, _ := newTestEnv(t, "wf-1", caps)

	wc := workflow.NewContext()
	wc.FileItems = []media.FileItem{
		{Storage: "local", Path: "/staging/one.mkv", Type: media.FileItemFile, Name: "one.mkv"},
	}

	act := NewTransferFile("tr1")
	act.Execute(context.Background(), env, map[string]any{"source": "fileitems", "target_path": "/lib"}, wc)

	require.True(t, act.Done())
	assert.False(t, act.Success())
	require.Len(t, wc.FileItems, 1)
	assert.Equal(t, "/staging/one.mkv", wc.FileItems[0].Path)
	assert.False(t, env.Cache.Check("wf-1", "tr1", "/staging/one.mkv"))
}

func TestScrapeFile(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", storageCaps())

	wc := workflow.NewContext()
	wc.FileItems = []media.FileItem{
		{Storage: "local", Path: "/lib/one.mkv", Name: "one.mkv", Basename: "one"},
		{Storage: "local", Path: "/lib/two.mkv", Name: "two.mkv", Basename: "two"},
	}

	act := NewScrapeFile("sc1")
	act.Execute(context.Background(), env, nil, wc)

	require.True(t, act.Done())
	assert.True(t, act.Success())
	assert.Contains(t, act.Message(), "2")
	assert.True(t, env.Cache.Check("wf-1", "sc1", "/lib/one.mkv"))
	assert.True(t, env.Cache.Check("wf-1", "sc1", "/lib/two.mkv"))

	// second run is fully cached
	act2 := NewScrapeFile("sc1")
	act2.Execute(context.Background(), env, nil, wc)
	assert.Contains(t, act2.Message(), "0")
}

func TestScrapeFileUnrecognized(t *testing.T) {
	caps := storageCaps()
	caps[chain.CapRecognizeMedia] = func(ctx context.Context, args chain.Args) (any, error) {
		return nil, nil
	}
	env, _ := newTestEnv(t, "wf-1", caps)

	wc := workflow.NewContext()
	wc.FileItems = []media.FileItem{{Path: "/lib/garbage.bin", Name: "garbage.bin"}}

	act := NewScrapeFile("sc1")
	act.Execute(context.Background(), env, nil, wc)

	require.True(t, act.Done())
	assert.False(t, act.Success())
	assert.False(t, env.Cache.Check("wf-1", "sc1", "/lib/garbage.bin"))
}
