package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/reconcile"
	"github.com/vango-dev/vtree/pkg/snapshot"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Lifecycle and message errors.
var (
	ErrNotInitialized     = errors.New("component: host not initialized")
	ErrAlreadyInitialized = errors.New("component: host already initialized")
	ErrInvalidConfig      = errors.New("component: invalid config")
	ErrInvalidMessage     = errors.New("component: invalid message")
	ErrUnexpectedFrame    = errors.New("component: unexpected frame type")
	ErrNoHTML             = errors.New("component: surface cannot render HTML")
)

// FeaturePersist saves the current tree to the store after every
// successful update.
const FeaturePersist = "persist"

// Surface is a renderer with a container root that can be emptied.
// vtest.Renderer and htmldom.Document both satisfy it.
type Surface interface {
	reconcile.Renderer
	Root() reconcile.Handle
	Clear()
}

// RendererFactory creates the surface for one Initialize call.
type RendererFactory func() (Surface, error)

// Config describes the component being hosted.
type Config struct {
	Name     string   `validate:"required"`
	Version  string   `validate:"omitempty,semver"`
	Features []string `validate:"dive,required"`
}

// Has reports whether feature is enabled.
func (c Config) Has(feature string) bool {
	return slices.Contains(c.Features, feature)
}

var validate = validator.New()

// Host runs one component. The zero value is not usable; call NewHost.
type Host struct {
	factory    RendererFactory
	store      snapshot.Store
	key        string
	logger     *slog.Logger
	middleware []reconcile.Middleware
	bufferCap  int

	mu      sync.Mutex
	ready   bool
	config  Config
	surface Surface
	rec     *reconcile.Reconciler
	out     *protocol.Buffer
	cycle   *reconcile.Cycle
}

// Option configures a Host.
type Option func(*Host)

// WithStore restores the tree saved under key on Initialize and saves it
// again on Cleanup.
func WithStore(store snapshot.Store, key string) Option {
	return func(h *Host) {
		h.store = store
		h.key = key
	}
}

// WithLogger sets the logger. Default: slog.Default() with component=host.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMiddleware adds reconcile middleware to every Reconciler the host
// creates.
func WithMiddleware(mw ...reconcile.Middleware) Option {
	return func(h *Host) {
		h.middleware = append(h.middleware, mw...)
	}
}

// WithBufferCapacity bounds the size of an encoded reply frame.
// Default: protocol.DefaultBufferCapacity.
func WithBufferCapacity(n int) Option {
	return func(h *Host) {
		h.bufferCap = n
	}
}

// NewHost creates an idle host that builds its surface with factory.
func NewHost(factory RendererFactory, opts ...Option) *Host {
	h := &Host{
		factory:   factory,
		logger:    slog.Default().With("component", "host"),
		bufferCap: protocol.DefaultBufferCapacity,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Initialize creates the surface and the Reconciler. When a store is
// configured and holds a tree under the host key, that tree is mounted and
// becomes the current tree.
func (h *Host) Initialize(ctx context.Context, cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready {
		return ErrAlreadyInitialized
	}
	if h.store != nil {
		if err := snapshot.ValidateKey(h.key); err != nil {
			return err
		}
	}

	surface, err := h.factory()
	if err != nil {
		return fmt.Errorf("component: create surface: %w", err)
	}

	mw := append(slices.Clone(h.middleware), reconcile.MiddlewareFunc(h.capture))
	rec := reconcile.New(surface, surface.Root(),
		reconcile.WithLogger(h.logger),
		reconcile.WithMiddleware(mw...),
	)

	if h.store != nil {
		if err := h.restore(ctx, rec); err != nil {
			closeSurface(surface)
			return err
		}
	}

	h.config = cfg
	h.surface = surface
	h.rec = rec
	h.out = protocol.NewBuffer(h.bufferCap)
	h.ready = true

	h.logger.Info("host initialized", "name", cfg.Name, "version", cfg.Version, "restored", rec.Current() != nil)
	return nil
}

func (h *Host) restore(ctx context.Context, rec *reconcile.Reconciler) error {
	tree, err := h.store.Load(ctx, h.key)
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("component: restore %q: %w", h.key, err)
	}
	if err := rec.Update(ctx, tree); err != nil {
		return fmt.Errorf("component: restore %q: %w", h.key, err)
	}
	return nil
}

// capture is the innermost middleware; it records the cycle for the reply.
func (h *Host) capture(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
	h.cycle = c
	return next(ctx)
}

// ProcessMessage handles one encoded frame and returns the encoded reply.
//
// When the message cannot be handled, the reply is an Error frame and the
// error is returned alongside it. A failed reconciliation also resets the
// host, so the next Tree frame mounts from scratch.
func (h *Host) ProcessMessage(ctx context.Context, msg []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready {
		return errorFrame(0, protocol.ErrNotReady, ErrNotInitialized), ErrNotInitialized
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		return h.reply(errorFrame(0, protocol.ErrInvalidFrame, err)), err
	}

	switch frame.Type {
	case protocol.FrameTree:
		return h.handleTree(ctx, frame.Payload)
	case protocol.FrameReset:
		return h.handleReset(frame.Payload)
	default:
		err := fmt.Errorf("%w: %s", ErrUnexpectedFrame, frame.Type)
		return h.reply(errorFrame(0, protocol.ErrUnexpected, err)), err
	}
}

func (h *Host) handleTree(ctx context.Context, payload []byte) ([]byte, error) {
	tf, err := protocol.DecodeTreeFrame(payload)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		return h.reply(errorFrame(0, protocol.ErrInvalidPayload, err)), err
	}

	h.cycle = nil
	if err := h.rec.Update(ctx, tf.Root); err != nil {
		h.logger.Warn("update failed, resetting", "seq", tf.Seq, "kind", reconcile.KindName(err), "error", err)
		h.rec.Reset()
		h.surface.Clear()
		return h.reply(errorFrame(tf.Seq, errorCode(err), err)), err
	}

	pf := &protocol.PatchesFrame{Seq: tf.Seq}
	var flags protocol.FrameFlags
	switch c := h.cycle; {
	case c == nil:
		// Skipped by middleware; nothing changed.
	case c.Mode == reconcile.ModeMount:
		pf.Patches = []vdom.Patch{vdom.ReplaceNode(vdom.Path{}, c.Next)}
		flags = protocol.FlagMount
	default:
		pf.Patches = c.Patches[:c.Applied]
	}

	out, err := encodePatches(pf, flags)
	if err == nil {
		if err = h.out.Store(out); err != nil {
			err = fmt.Errorf("component: reply of %d bytes: %w", len(out), err)
		}
	}
	if err != nil {
		// The surface already holds a tree the client never received.
		h.logger.Warn("reply dropped, resetting", "seq", tf.Seq, "error", err)
		h.rec.Reset()
		h.surface.Clear()
		return h.reply(errorFrame(tf.Seq, protocol.ErrTooLarge, err)), err
	}

	if h.config.Has(FeaturePersist) {
		h.persist(ctx)
	}
	return h.out.Bytes(), nil
}

func (h *Host) handleReset(payload []byte) ([]byte, error) {
	var seq uint64
	if len(payload) > 0 {
		d := protocol.NewDecoder(payload)
		s, err := d.ReadUvarint()
		if err == nil {
			err = d.Finish()
		}
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidMessage, err)
			return h.reply(errorFrame(0, protocol.ErrInvalidPayload, err)), err
		}
		seq = s
	}

	h.rec.Reset()
	h.surface.Clear()

	out, err := encodePatches(&protocol.PatchesFrame{Seq: seq}, 0)
	if err != nil {
		return nil, err
	}
	return h.reply(out), nil
}

// reply stores an already small frame in the outgoing buffer.
func (h *Host) reply(frame []byte) []byte {
	if err := h.out.Store(frame); err != nil {
		return frame
	}
	return h.out.Bytes()
}

func (h *Host) persist(ctx context.Context) {
	if h.store == nil || h.rec.Current() == nil {
		return
	}
	if err := h.store.Save(ctx, h.key, h.rec.Current()); err != nil {
		h.logger.Warn("snapshot save failed", "key", h.key, "error", err)
	}
}

// Cleanup saves the current tree when a store is configured, releases the
// surface and returns the host to idle.
func (h *Host) Cleanup(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready {
		return ErrNotInitialized
	}

	var errs []error
	if h.store != nil && h.rec.Current() != nil {
		if err := h.store.Save(ctx, h.key, h.rec.Current()); err != nil {
			errs = append(errs, fmt.Errorf("component: save %q: %w", h.key, err))
		}
	}
	if err := closeSurface(h.surface); err != nil {
		errs = append(errs, fmt.Errorf("component: close surface: %w", err))
	}

	stats := h.rec.Stats()
	h.logger.Info("host cleaned up", "name", h.config.Name,
		"mounts", stats.Mounts, "patches", stats.Patches, "failures", stats.Failures)

	h.ready = false
	h.config = Config{}
	h.surface = nil
	h.rec = nil
	h.out = nil
	h.cycle = nil

	return errors.Join(errs...)
}

// Initialized reports whether the host is between Initialize and Cleanup.
func (h *Host) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// Current returns the current tree, or nil.
func (h *Host) Current() *vdom.VNode {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return nil
	}
	return h.rec.Current()
}

// Stats returns the Reconciler counters.
func (h *Host) Stats() (reconcile.Stats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return reconcile.Stats{}, ErrNotInitialized
	}
	return h.rec.Stats(), nil
}

// Render returns the live HTML when the surface can produce it.
func (h *Host) Render() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return "", ErrNotInitialized
	}
	r, ok := h.surface.(interface{ HTML() string })
	if !ok {
		return "", ErrNoHTML
	}
	return r.HTML(), nil
}

func closeSurface(s Surface) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func encodePatches(pf *protocol.PatchesFrame, flags protocol.FrameFlags) ([]byte, error) {
	payload, err := protocol.EncodePatches(pf)
	if err != nil {
		return nil, err
	}
	f := protocol.NewFrame(protocol.FramePatches, payload)
	f.Flags = flags
	return f.Encode()
}

// maxErrorMessage bounds the message carried by an Error frame.
const maxErrorMessage = 1024

// errorFrame encodes err as an Error frame. Messages are truncated to keep
// the frame within one payload.
func errorFrame(seq uint64, code protocol.ErrorCode, err error) []byte {
	msg := err.Error()
	if len(msg) > maxErrorMessage {
		n := maxErrorMessage
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	msg = strings.ToValidUTF8(msg, "\uFFFD")
	em := &protocol.ErrorMessage{Seq: seq, Code: code, Message: msg}
	out, encErr := protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)).Encode()
	if encErr != nil {
		return nil
	}
	return out
}

// errorCode maps a reconcile failure to its wire code.
func errorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, reconcile.ErrRenderCreate):
		return protocol.ErrRenderCreate
	case errors.Is(err, reconcile.ErrPathResolution):
		return protocol.ErrPathResolution
	case errors.Is(err, reconcile.ErrRenderMutation):
		return protocol.ErrRenderMutation
	default:
		return protocol.ErrServerError
	}
}
