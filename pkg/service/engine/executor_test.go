package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
	"github.com/mediamate/mediamate/pkg/service/actions"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

// memStore keeps workflows and systemconfig in memory for engine tests.
type memStore struct {
	mu        sync.Mutex
	workflows map[string]*workflow.Workflow
	configs   map[string]json.RawMessage
}

func newMemStore() *memStore {
	return &memStore{
		workflows: make(map[string]*workflow.Workflow),
		configs:   make(map[string]json.RawMessage),
	}
}

func (s *memStore) Save(w *workflow.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *w
	s.workflows[w.ID] = &clone
	return nil
}

func (s *memStore) Get(id string) (*workflow.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "test", "workflow %s not found", id)
	}
	clone := *w
	return &clone, nil
}

func (s *memStore) List() ([]*workflow.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*workflow.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		clone := *w
		out = append(out, &clone)
	}
	return out, nil
}

func (s *memStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
	delete(s.configs, workflow.CacheKeyFor(id))
	return nil
}

func (s *memStore) GetJSON(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.configs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (s *memStore) SetJSON(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.configs[key] = raw
	return nil
}

// capModule exposes a capability table as a chain module.
type capModule struct {
	name string
	caps map[chain.Capability]chain.Handler
}

func (m *capModule) Name() string                                     { return m.name }
func (m *capModule) Init(ctx context.Context) error                   { return nil }
func (m *capModule) Stop(ctx context.Context) error                   { return nil }
func (m *capModule) Test(ctx context.Context) (bool, string)          { return true, "" }
func (m *capModule) Capabilities() map[chain.Capability]chain.Handler { return m.caps }

type harness struct {
	store    *memStore
	executor *Executor
	stops    *StopController
	cache    *actions.Cache
	registry *actions.Registry
}

func newHarness(t *testing.T, caps map[chain.Capability]chain.Handler) *harness {
	t.Helper()
	st := newMemStore()

	modules := chain.NewRegistry(zerolog.Nop())
	require.NoError(t, modules.Register(&capModule{name: "fake", caps: caps}))
	modules.Start(context.Background())

	registry := actions.NewRegistry()
	require.NoError(t, actions.RegisterBuiltins(registry))

	bus := chain.NewBus(modules, zerolog.Nop())
	cache := actions.NewCache(st, zerolog.Nop())
	services := chain.NewHelper(modules, st)
	stops := NewStopController()
	executor := NewExecutor(st, registry, bus, cache, services, stops, nil, zerolog.Nop())

	return &harness{store: st, executor: executor, stops: stops, cache: cache, registry: registry}
}

// rssDownloadCaps implements the collaborator set of an RSS to download
// pipeline: a feed with three items (two 1080p), recognition, and a counting
// downloader.
func rssDownloadCaps(downloads *[]string, onDownload func()) map[chain.Capability]chain.Handler {
	return map[chain.Capability]chain.Handler{
		chain.CapRSSParse: func(ctx context.Context, args chain.Args) (any, error) {
			return []media.Resource{
				{Torrent: media.TorrentInfo{Site: "ex", Title: "Movie.One.1080p", Enclosure: "magnet:1"}},
				{Torrent: media.TorrentInfo{Site: "ex", Title: "Movie.Two.720p", Enclosure: "magnet:2"}},
				{Torrent: media.TorrentInfo{Site: "ex", Title: "Movie.Three.1080p", Enclosure: "magnet:3"}},
			}, nil
		},
		chain.CapRecognizeMedia: func(ctx context.Context, args chain.Args) (any, error) {
			return &media.Media{Type: media.MediaTypeMovie, Title: "Recognized"}, nil
		},
		chain.CapDownload: func(ctx context.Context, args chain.Args) (any, error) {
			torrent := args["torrent"].(media.TorrentInfo)
			*downloads = append(*downloads, torrent.Title)
			if onDownload != nil {
				onDownload()
			}
			return fmt.Sprintf("dl-%d", len(*downloads)), nil
		},
	}
}

func rssDownloadWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		ID:    "wf-1",
		Name:  "rss to download",
		State: workflow.StateNew,
		Actions: []workflow.ActionDef{
			{ID: "rss", Type: actions.TypeFetchRss, Data: map[string]any{"url": "https://ex/rss"}},
			{ID: "flt", Type: actions.TypeFilterTorrents, Data: map[string]any{"include": "1080p"}},
			{ID: "add", Type: actions.TypeAddDownload, Data: map[string]any{"downloader": "qb1"}},
		},
		Flows: []workflow.FlowEdge{
			{Source: "rss", Target: "flt"},
			{Source: "flt", Target: "add"},
		},
	}
}

func TestRunRssToDownload(t *testing.T) {
	var downloads []string
	h := newHarness(t, rssDownloadCaps(&downloads, nil))

	w := rssDownloadWorkflow()
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StateSucceeded, w.State)
	assert.Equal(t, 1, w.RunCount)
	assert.Equal(t, "add", w.CurrentAction)
	assert.Contains(t, w.Result, "added 2 downloads")
	assert.Equal(t, []string{"Movie.One.1080p", "Movie.Three.1080p"}, downloads)
	assert.True(t, h.cache.Check("wf-1", "add", "ex-Movie.One.1080p"))
	assert.True(t, h.cache.Check("wf-1", "add", "ex-Movie.Three.1080p"))
	assert.False(t, w.LastTime.IsZero())

	stored, err := h.store.Get("wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateSucceeded, stored.State)
}

func TestRunDedupOnSecondRun(t *testing.T) {
	var downloads []string
	h := newHarness(t, rssDownloadCaps(&downloads, nil))

	w := rssDownloadWorkflow()
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))
	require.Len(t, downloads, 2)

	require.NoError(t, h.executor.Run(context.Background(), w))
	assert.Equal(t, workflow.StateSucceeded, w.State)
	assert.Equal(t, 2, w.RunCount)
	assert.Contains(t, w.Result, "added 0 downloads")
	assert.Len(t, downloads, 2)
}

func TestRunCancellationMidPipeline(t *testing.T) {
	var downloads []string
	var h *harness
	h = newHarness(t, rssDownloadCaps(&downloads, func() {
		h.stops.StopWorkflow("wf-1")
	}))

	w := rssDownloadWorkflow()
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StatePaused, w.State)
	assert.Len(t, downloads, 1)
	assert.True(t, h.cache.Check("wf-1", "add", "ex-Movie.One.1080p"))
	assert.False(t, h.cache.Check("wf-1", "add", "ex-Movie.Three.1080p"))
}

func TestRunMissingCapabilityCompletesWithFailures(t *testing.T) {
	// feed and recognition exist, but no downloader module is installed
	caps := map[chain.Capability]chain.Handler{
		chain.CapRSSParse: func(ctx context.Context, args chain.Args) (any, error) {
			return []media.Resource{
				{Torrent: media.TorrentInfo{Site: "ex", Title: "Movie.One.1080p", Enclosure: "magnet:1"}},
			}, nil
		},
		chain.CapRecognizeMedia: func(ctx context.Context, args chain.Args) (any, error) {
			return &media.Media{Type: media.MediaTypeMovie, Title: "Recognized"}, nil
		},
	}
	h := newHarness(t, caps)

	w := rssDownloadWorkflow()
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StateSucceeded, w.State)
	assert.Contains(t, w.Result, "failed")
	assert.False(t, h.cache.Check("wf-1", "add", "ex-Movie.One.1080p"))
}

func TestRunZeroActions(t *testing.T) {
	h := newHarness(t, nil)
	w := &workflow.Workflow{ID: "wf-empty", Name: "empty"}
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StateSucceeded, w.State)
	assert.Equal(t, "no actions", w.Result)
	assert.Equal(t, 1, w.RunCount)
}

func TestRunUnknownActionType(t *testing.T) {
	h := newHarness(t, nil)
	w := &workflow.Workflow{
		ID: "wf-bad", Name: "bad",
		Actions: []workflow.ActionDef{{ID: "a", Type: "does_not_exist"}},
	}
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StateFailed, w.State)
	assert.Contains(t, w.Result, "config error")
}

func TestRunEmptyFlowsWithManyActions(t *testing.T) {
	h := newHarness(t, nil)
	w := &workflow.Workflow{
		ID: "wf-noflow", Name: "noflow",
		Actions: []workflow.ActionDef{
			{ID: "a", Type: actions.TypeFetchRss},
			{ID: "b", Type: actions.TypeAddDownload},
		},
	}
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StateFailed, w.State)
	assert.Contains(t, w.Result, "config error")
}

func TestRunStopBeforeFirstAction(t *testing.T) {
	h := newHarness(t, nil)
	h.stops.StopSystem()

	w := rssDownloadWorkflow()
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StatePaused, w.State)
	assert.Empty(t, w.CurrentAction)
}

type panicAction struct {
	actions.BaseAction
}

func (a *panicAction) Execute(ctx context.Context, env actions.Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	panic("broken action")
}

func TestRunActionPanicFailsWorkflow(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.registry.Register(
		actions.Descriptor{Type: "panicky", Name: "Panicky"},
		func(id string) actions.Action { return &panicAction{BaseAction: actions.NewBase(id)} },
	))

	w := &workflow.Workflow{
		ID: "wf-panic", Name: "panic",
		Actions: []workflow.ActionDef{{ID: "boom", Type: "panicky"}},
	}
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StateFailed, w.State)
	assert.Contains(t, w.Result, "boom")
}

type neverDoneAction struct {
	actions.BaseAction
}

func (a *neverDoneAction) Execute(ctx context.Context, env actions.Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	return wc
}

func TestRunContractViolationContinues(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.registry.Register(
		actions.Descriptor{Type: "lazy", Name: "Lazy"},
		func(id string) actions.Action { return &neverDoneAction{BaseAction: actions.NewBase(id)} },
	))

	w := &workflow.Workflow{
		ID: "wf-lazy", Name: "lazy",
		Actions: []workflow.ActionDef{{ID: "l", Type: "lazy"}},
	}
	require.NoError(t, h.store.Save(w))
	require.NoError(t, h.executor.Run(context.Background(), w))

	assert.Equal(t, workflow.StateSucceeded, w.State)
}

func TestRunRejectsConcurrentRunOfSameWorkflow(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.stops.Acquire("wf-1")
	require.NoError(t, err)

	w := rssDownloadWorkflow()
	require.NoError(t, h.store.Save(w))
	err = h.executor.Run(context.Background(), w)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidState))
}
