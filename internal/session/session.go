// Package session drives one participant's view of a group: loading it,
// submitting orders, and exporting or sharing the aggregated list.
//
// A Controller is safe for concurrent use. Store calls run outside its lock,
// so the view can be read while a load or submit is in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/grouporder/internal/export"
	"github.com/mmynk/grouporder/internal/menu"
	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
)

const (
	DefaultCallTimeout = 10 * time.Second
	DefaultCopiedFor   = 1500 * time.Millisecond
)

var (
	// ErrNotReady is returned by actions that need a loaded group.
	ErrNotReady = errors.New("group is not loaded")
	// ErrBusy is returned when a submit is already in flight.
	ErrBusy = errors.New("an order is already being submitted")
	// ErrGroupExists is returned by CreateNewGroup when the current group was found.
	ErrGroupExists = errors.New("group exists")
	// ErrNoClipboard is returned by copy actions when no clipboard is available.
	ErrNoClipboard = errors.New("clipboard unavailable")
)

// State is the lifecycle of the session's group.
type State int

const (
	Loading State = iota
	Found
	NotFound
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store is the group storage a session works against. Both the local
// storage.GroupStore and the remote client implement it.
type Store interface {
	CreateGroup(ctx context.Context) (*models.Group, error)
	FetchGroup(ctx context.Context, groupID string) (*models.Group, error)
	AppendOrder(ctx context.Context, groupID string, order models.Order) ([]models.Order, error)
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Environment describes what the host can do. A nil Clipboard means copying
// is not available.
type Environment struct {
	Clipboard Clipboard
	// CoarsePointer is true on touch devices.
	CoarsePointer bool
}

// Options tunes timing. Zero values select the defaults.
type Options struct {
	CallTimeout time.Duration
	CopiedFor   time.Duration
}

// View is a snapshot of the session for rendering.
type View struct {
	State        State
	GroupID      string
	CreatedAt    int64
	Orders       []models.Order
	Submitting   bool
	Err          error
	ExportCopied bool
	LinkCopied   bool
}

// Controller holds the state of one open group.
type Controller struct {
	store Store
	env   Environment
	opts  Options

	mu         sync.Mutex
	state      State
	groupID    string
	createdAt  int64
	orders     []models.Order
	submitting bool
	err        error
	draft      menu.Draft
	loadSeq    int

	exportCopied flag
	linkCopied   flag
}

// New creates a Controller. Call Enter to load a group.
func New(store Store, env Environment, opts Options) *Controller {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.CopiedFor <= 0 {
		opts.CopiedFor = DefaultCopiedFor
	}
	return &Controller{store: store, env: env, opts: opts, state: Loading}
}

// Enter loads groupID and moves to Found, NotFound or Failed.
// A load started later supersedes one still in flight.
func (c *Controller) Enter(ctx context.Context, groupID string) error {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.state = Loading
	c.groupID = groupID
	c.createdAt = 0
	c.orders = nil
	c.err = nil
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()
	group, err := c.store.FetchGroup(callCtx, groupID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.loadSeq {
		return nil
	}
	switch {
	case err == nil:
		c.state = Found
		c.createdAt = group.CreatedAt
		c.orders = group.Orders
		if c.orders == nil {
			c.orders = []models.Order{}
		}
		return nil
	case errors.Is(err, storage.ErrGroupNotFound):
		c.state = NotFound
		return nil
	default:
		slog.Warn("Failed to load group", "group_id", groupID, "error", err)
		c.state = Failed
		c.err = err
		return err
	}
}

// Retry reloads the current group.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	groupID := c.groupID
	c.mu.Unlock()
	return c.Enter(ctx, groupID)
}

// CreateNewGroup creates a fresh group and enters it. It is offered when the
// requested group does not exist; the missing ID is never reused.
func (c *Controller) CreateNewGroup(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == Found {
		c.mu.Unlock()
		return "", ErrGroupExists
	}
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	group, err := c.store.CreateGroup(callCtx)
	cancel()
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.loadSeq++
	c.state = Found
	c.groupID = group.ID
	c.createdAt = group.CreatedAt
	c.orders = []models.Order{}
	c.err = nil
	c.mu.Unlock()
	return group.ID, nil
}

// Draft returns a copy of the order form.
func (c *Controller) Draft() menu.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.draft
	d.Adds = append([]string(nil), c.draft.Adds...)
	return d
}

// EditDraft applies edit to the order form.
func (c *Controller) EditDraft(edit func(*menu.Draft)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	edit(&c.draft)
	c.draft.Normalize()
}

// Submit validates the current draft and appends it to the group. On success
// the local list is replaced by the list the store returned and the draft is
// cleared. A validation failure never reaches the store.
func (c *Controller) Submit(ctx context.Context) ([]models.Order, error) {
	return c.submit(ctx, nil)
}

// SubmitDraft submits d instead of the current draft, leaving the form as is
// unless the submit succeeds.
func (c *Controller) SubmitDraft(ctx context.Context, d menu.Draft) ([]models.Order, error) {
	return c.submit(ctx, &d)
}

func (c *Controller) submit(ctx context.Context, override *menu.Draft) ([]models.Order, error) {
	c.mu.Lock()
	if c.state != Found {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	draft := c.draft
	if override != nil {
		draft = *override
	}
	order, err := draft.Order(storage.NewOrderID())
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.submitting = true
	groupID := c.groupID
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	orders, err := c.store.AppendOrder(callCtx, groupID, order)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		// The session stays in Found with the draft intact, so the
		// participant can retry; a vanished group shows up on the next Enter.
		slog.Warn("Failed to submit order", "group_id", groupID, "error", err)
		return nil, err
	}
	if groupID == c.groupID {
		c.orders = orders
	}
	c.draft.Reset()
	return append([]models.Order(nil), orders...), nil
}

// RefocusAfterSubmit reports whether the form should take focus again after
// a submit. On touch devices that would pop the keyboard up.
func (c *Controller) RefocusAfterSubmit() bool {
	return !c.env.CoarsePointer
}

// Export renders the loaded orders as the SMS text.
func (c *Controller) Export() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return export.Format(c.orders)
}

// ShareLink returns the page address of the current group.
func (c *Controller) ShareLink(baseURL string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimRight(baseURL, "/") + "/group/" + c.groupID
}

// CopyExport puts the SMS text on the clipboard.
func (c *Controller) CopyExport(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Found {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.mu.Unlock()
	return c.copy(ctx, c.Export(), &c.exportCopied)
}

// CopyLink puts the share link on the clipboard.
func (c *Controller) CopyLink(ctx context.Context, baseURL string) error {
	return c.copy(ctx, c.ShareLink(baseURL), &c.linkCopied)
}

// ClipboardAvailable reports whether the copy actions can work.
func (c *Controller) ClipboardAvailable() bool {
	return c.env.Clipboard != nil
}

func (c *Controller) copy(ctx context.Context, text string, f *flag) error {
	if c.env.Clipboard == nil {
		return ErrNoClipboard
	}
	if err := c.env.Clipboard.WriteText(ctx, text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	c.mu.Lock()
	f.raise(&c.mu, c.opts.CopiedFor)
	c.mu.Unlock()
	return nil
}

// View returns a snapshot of the session.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		State:        c.state,
		GroupID:      c.groupID,
		CreatedAt:    c.createdAt,
		Submitting:   c.submitting,
		Err:          c.err,
		ExportCopied: c.exportCopied.on,
		LinkCopied:   c.linkCopied.on,
	}
	if c.orders != nil {
		v.Orders = append([]models.Order{}, c.orders...)
	}
	return v
}

// flag is a boolean that drops back to false a fixed time after being raised.
// Raising it again restarts the countdown.
type flag struct {
	on    bool
	gen   int
	timer *time.Timer
}

// raise must be called with mu held.
func (f *flag) raise(mu *sync.Mutex, d time.Duration) {
	f.on = true
	f.gen++
	gen := f.gen
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(d, func() {
		mu.Lock()
		defer mu.Unlock()
		if f.gen == gen {
			f.on = false
		}
	})
}
