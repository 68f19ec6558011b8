package actions

import (
	"context"
	"fmt"
	"sort"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// SendMessage posts every context notification through the messengers and
// clears the messages sequence.
type SendMessage struct {
	BaseAction
}

type sendMessageParams struct {
	Title string `json:"title"`
}

func NewSendMessage(id string) Action { return &SendMessage{BaseAction: NewBase(id)} }

func (a *SendMessage) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	var p sendMessageParams
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}

	sent, failed := 0, 0
	for _, n := range wc.Messages {
		if env.Stopped() {
			break
		}
		if n.Title == "" && p.Title != "" {
			n.Title = p.Title
		}
		if !env.Bus.PostMessage(ctx, n) {
			env.Logger.Error().Str("title", n.Title).Msg("no messenger accepted the notification")
			failed++
			continue
		}
		sent++
	}
	wc.Messages = []media.Notification{}

	msg := fmt.Sprintf("sent %d messages", sent)
	if failed > 0 {
		msg = fmt.Sprintf("sent %d messages, %d failed", sent, failed)
	}
	a.JobDone(failed == 0, msg)
	return wc
}

// SendEvent dispatches the context events highest-priority-first and removes
// the dispatched events. Equal priorities keep insertion order.
type SendEvent struct {
	BaseAction
}

func NewSendEvent(id string) Action { return &SendEvent{BaseAction: NewBase(id)} }

func (a *SendEvent) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	// deep-copy before reordering so the context sequence is untouched if the
	// run stops mid-dispatch
	pending := make([]media.Event, 0, len(wc.Events))
	for _, e := range wc.Events {
		pending = append(pending, e.Clone())
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority > pending[j].Priority
	})

	sent := 0
	dispatched := make(map[int]bool, len(pending))
	for _, e := range pending {
		if env.Stopped() {
			break
		}
		env.Bus.SendEvent(ctx, e)
		sent++
		for i, orig := range wc.Events {
			if !dispatched[i] && orig.Type == e.Type && orig.Priority == e.Priority {
				dispatched[i] = true
				break
			}
		}
	}

	remaining := make([]media.Event, 0, len(wc.Events)-sent)
	for i, e := range wc.Events {
		if !dispatched[i] {
			remaining = append(remaining, e)
		}
	}
	wc.Events = remaining

	a.JobDone(true, fmt.Sprintf("sent %d events", sent))
	return wc
}
