package router

import (
	"context"
	"sync"

	"github.com/sweeney/radio-buttons/internal/volumio"
)

// FakeShutdowner counts shutdown requests.
type FakeShutdowner struct {
	mu    sync.Mutex
	calls int

	// Err, if set, is returned by RequestShutdown.
	Err error
}

// RequestShutdown records the call.
func (f *FakeShutdowner) RequestShutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.Err
}

// Calls returns the number of shutdown requests.
func (f *FakeShutdowner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakePlayer records playback requests.
type FakePlayer struct {
	mu    sync.Mutex
	items []volumio.Item

	// Err, if set, is returned by ReplaceAndPlay.
	Err error
}

// ReplaceAndPlay records item.
func (f *FakePlayer) ReplaceAndPlay(ctx context.Context, item volumio.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return f.Err
}

// Items returns the recorded requests in order.
func (f *FakePlayer) Items() []volumio.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]volumio.Item(nil), f.items...)
}

// Notification is one recorded toast.
type Notification struct {
	Level   string
	Title   string
	Message string
}

// FakeNotifier records notifications.
type FakeNotifier struct {
	mu   sync.Mutex
	sent []Notification

	// Err, if set, is returned by Notify.
	Err error
}

// Notify records the toast.
func (f *FakeNotifier) Notify(level, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Notification{Level: level, Title: title, Message: message})
	return f.Err
}

// Sent returns the recorded notifications in order.
func (f *FakeNotifier) Sent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}
