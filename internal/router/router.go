// Package router resolves fired button events to actions and invokes the
// collaborator that carries them out.
package router

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/radio-buttons/internal/binding"
	"github.com/sweeney/radio-buttons/internal/logic"
	"github.com/sweeney/radio-buttons/internal/volumio"
)

// DefaultTimeout bounds each collaborator call.
const DefaultTimeout = 10 * time.Second

// Shutdowner powers the appliance off.
type Shutdowner interface {
	RequestShutdown(ctx context.Context) error
}

// Player replaces the current queue with item and starts it.
type Player interface {
	ReplaceAndPlay(ctx context.Context, item volumio.Item) error
}

// Notifier shows a fire-and-forget toast.
type Notifier interface {
	Notify(level, title, message string) error
}

// Router dispatches fired events. Safe for concurrent use by both channels;
// collaborators handle their own reentrancy.
type Router struct {
	store    *binding.Store
	shutdown Shutdowner
	player   Player
	notifier Notifier // optional
	timeout  time.Duration
}

// New creates a Router. notifier may be nil.
func New(store *binding.Store, shutdown Shutdowner, player Player, notifier Notifier) *Router {
	return &Router{
		store:    store,
		shutdown: shutdown,
		player:   player,
		notifier: notifier,
		timeout:  DefaultTimeout,
	}
}

// Dispatch carries out the action bound to ev. A missing binding is a
// normal steady state: it is logged and dropped. Collaborator failures are
// logged and never returned.
func (r *Router) Dispatch(ev logic.FiredEvent) {
	switch ev.Channel {
	case logic.ChannelInterrupt:
		r.dispatchAction(ev.Action)
	case logic.ChannelRegister:
		r.dispatchButton(ev.Button)
	default:
		log.Printf("router: unknown channel %q", ev.Channel)
	}
}

func (r *Router) dispatchAction(action logic.ActionName) {
	if _, ok := r.store.Trigger(action); !ok {
		log.Printf("router: binding miss: action %s is not bound", action)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	switch action {
	case logic.ActionShutdown:
		log.Printf("router: shutdown requested")
		if err := r.shutdown.RequestShutdown(ctx); err != nil {
			log.Printf("router: shutdown failed: %v", err)
		}
	default:
		log.Printf("router: no handler for action %s", action)
	}
}

func (r *Router) dispatchButton(idx logic.ButtonIndex) {
	uri, ok := r.store.Target(idx)
	if !ok {
		log.Printf("router: button %d pressed but has no assigned station", idx)
		return
	}

	log.Printf("router: button %d -> play %s", idx, uri)
	r.notify("info", "Radio Button", fmt.Sprintf("Playing Button %d", idx))

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	item := volumio.WebRadio(fmt.Sprintf("Button %d", idx), uri)
	if err := r.player.ReplaceAndPlay(ctx, item); err != nil {
		log.Printf("router: playback for button %d failed: %v", idx, err)
	}
}

func (r *Router) notify(level, title, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(level, title, message); err != nil {
		log.Printf("router: notify failed: %v", err)
	}
}
