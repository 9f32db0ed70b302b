// Package router turns chat messages into commands: it normalizes the text,
// resolves presets and shortcuts, splits batches, admits every sub-request
// through the rate limiter and dispatches it to its family handler.
package router

import (
	"context"
	_ "embed"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/raykavin/alphabot/pkg/alert"
	"github.com/raykavin/alphabot/pkg/billing"
	"github.com/raykavin/alphabot/pkg/confirm"
	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/keylock"
	"github.com/raykavin/alphabot/pkg/logger"
	zlog "github.com/raykavin/alphabot/pkg/logger/zerolog"
	"github.com/raykavin/alphabot/pkg/metric"
	"github.com/raykavin/alphabot/pkg/paper"
	"github.com/raykavin/alphabot/pkg/platform"
	"github.com/raykavin/alphabot/pkg/preset"
	"github.com/raykavin/alphabot/pkg/ratelimit"
	"github.com/raykavin/alphabot/pkg/storage"
	"github.com/raykavin/alphabot/pkg/trade"
)

const tracerName = "github.com/raykavin/alphabot/pkg/router"

//go:embed tips.yaml
var defaultTips []byte

type tip struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Flag changes how a route is dispatched.
type Flag uint8

const (
	Metered      Flag = 1 << iota // every slice is admitted by the rate limiter
	Capped                        // at most limit/2 slices per message
	HumanOnly                     // ignored when the author is a bot
	OperatorOnly                  // restricted to operators
	Cleanup                       // sent messages are cleaned up after the window
	Tips                          // the batch may be followed by a tip
)

// Handler runs one sub-request.
type Handler func(ctx context.Context, c *Call, slice string) error

// Route describes a command family.
type Route struct {
	Family     string
	Prefixes   []string
	Deprecated []string // prefixes answered with a prefix change notice
	Split      *regexp.Regexp
	Cost       int
	Queue      []string
	Statistic  string
	Guide      string
	Help       core.Embed
	Flags      Flag
	Handler    Handler
}

func (r *Route) Has(f Flag) bool {
	return r.Flags&f != 0
}

// match returns the argument tail when content starts with one of the
// route prefixes.
func (r *Route) match(content string) (tail, prefix string, ok bool) {
	for _, p := range slices.Concat(r.Prefixes, r.Deprecated) {
		if strings.HasPrefix(content, p) {
			return strings.TrimSpace(content[len(p):]), p, true
		}
	}
	return "", "", false
}

// Call is the context of one message handed to handlers. Request is never
// modified; Response collects side effects.
type Call struct {
	Request  core.Request
	Response *core.Response
	Route    *Route
	Origin   core.MessageHandle
	Log      logger.Logger

	router *Router
}

// Send posts msg to the room of the message and counts it towards the weight.
func (c *Call) Send(ctx context.Context, msg core.OutboundMessage) (core.MessageHandle, error) {
	handle, err := c.Notify(ctx, msg)
	if err != nil {
		return handle, err
	}
	c.Response.Track(handle)
	if slices.Contains(msg.Reactions, core.ReactionDismiss) {
		c.router.targets.put(handle, target{
			kind:   targetDismiss,
			author: c.Request.AuthorID,
			image:  len(msg.Image) > 0,
		})
	}
	return handle, nil
}

// Notify posts msg without counting it.
func (c *Call) Notify(ctx context.Context, msg core.OutboundMessage) (core.MessageHandle, error) {
	return c.router.chat.SendMessage(ctx, c.Origin.RoomID, msg)
}

// Option configures a Router.
type Option func(*Router)

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(r *Router) { r.limiter = l }
}

func WithConfirmations(m *confirm.Machine) Option {
	return func(r *Router) { r.confirm = m }
}

func WithResolver(res *platform.Resolver) Option {
	return func(r *Router) { r.resolver = res }
}

// WithConverter sets the conversion collaborator of the convert family and
// of paper valuations.
func WithConverter(conv paper.Converter) Option {
	return func(r *Router) { r.converter = conv }
}

func WithLedger(l *paper.Ledger) Option {
	return func(r *Router) { r.ledger = l }
}

func WithAlertBook(b *alert.Book) Option {
	return func(r *Router) { r.alerts = b }
}

func WithMeter(m *billing.Meter) Option {
	return func(r *Router) { r.meter = m }
}

func WithBroker(b trade.Broker) Option {
	return func(r *Router) { r.broker = b }
}

func WithStatistics(s *metric.Statistics) Option {
	return func(r *Router) { r.stats = s }
}

func WithLatency(l *metric.Latency) Option {
	return func(r *Router) { r.latency = l }
}

func WithLogger(log logger.Logger) Option {
	return func(r *Router) { r.log = log }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

func WithShortcuts(s *Shortcuts) Option {
	return func(r *Router) { r.shortcuts = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithRandom replaces the source used to post tips; it returns a value in [0, n).
func WithRandom(fn func(n int) int) Option {
	return func(r *Router) { r.random = fn }
}

// WithCleanupDelay sets how long sent messages are kept before cleanup.
func WithCleanupDelay(d time.Duration) Option {
	return func(r *Router) { r.cleanupDelay = d }
}

// Router dispatches messages and reactions.
type Router struct {
	settings core.Settings
	chat     core.Chat
	accounts *storage.Accounts

	limiter   *ratelimit.Limiter
	confirm   *confirm.Machine
	resolver  *platform.Resolver
	converter paper.Converter
	ledger    *paper.Ledger
	live      *paper.Ledger
	alerts    *alert.Book
	meter     *billing.Meter
	broker    trade.Broker
	stats     *metric.Statistics
	latency   *metric.Latency
	presets   *preset.RoomCache
	shortcuts *Shortcuts
	tips      map[string][]tip
	targets   *registry
	locks     *keylock.Locks
	routes    []*Route

	log          logger.Logger
	tracer       trace.Tracer
	now          func() time.Time
	random       func(n int) int
	cleanupDelay time.Duration

	wg sync.WaitGroup
}

// New creates a router. Collaborators missing from options are built from
// settings.
func New(settings core.Settings, chat core.Chat, accounts *storage.Accounts, options ...Option) *Router {
	r := &Router{
		settings:     settings,
		chat:         chat,
		accounts:     accounts,
		presets:      preset.NewRoomCache(),
		targets:      newRegistry(registrySize),
		locks:        keylock.New(),
		now:          time.Now,
		random:       rand.IntN,
		cleanupDelay: settings.Limits.Window,
	}
	for _, option := range options {
		option(r)
	}

	if r.log == nil {
		r.log = zlog.Nop()
	}
	if r.stats == nil {
		r.stats = metric.NewStatistics()
	}
	if r.latency == nil {
		r.latency = metric.NewLatency(0)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	if r.limiter == nil {
		var opts []ratelimit.Option
		if settings.Limits.Window > 0 {
			opts = append(opts, ratelimit.WithWindow(settings.Limits.Window))
		}
		r.limiter = ratelimit.New(opts...)
	}
	if r.confirm == nil {
		opts := []confirm.Option{confirm.WithObserver(func(s confirm.State) {
			r.stats.Confirmation(s.String())
		})}
		if settings.ConfirmTimeout > 0 {
			opts = append(opts, confirm.WithTimeout(settings.ConfirmTimeout))
		}
		r.confirm = confirm.New(opts...)
	}
	if r.resolver == nil {
		r.resolver = platform.NewResolver(r.log)
	}
	if r.ledger == nil {
		opts := []paper.Option{}
		if settings.Paper.ResetCooldown > 0 {
			opts = append(opts, paper.WithCooldown(settings.Paper.ResetCooldown))
		}
		if r.converter != nil {
			opts = append(opts, paper.WithConverter(r.converter))
		}
		for exchange, b := range settings.Paper.Balances {
			opts = append(opts, paper.WithPolicy(exchange, paper.PolicyOf(b)))
		}
		r.ledger = paper.NewLedger(opts...)
	}
	if r.alerts == nil {
		var opts []alert.Option
		if settings.Alerts.MaxPerExchange > 0 {
			opts = append(opts, alert.WithMaxPerExchange(settings.Alerts.MaxPerExchange))
		}
		if len(settings.Alerts.Exchanges) > 0 {
			opts = append(opts, alert.WithExchanges(settings.Alerts.Exchanges...))
		}
		r.alerts = alert.NewBook(opts...)
	}
	if r.shortcuts == nil {
		r.shortcuts = DefaultShortcuts()
	}
	if r.cleanupDelay <= 0 {
		r.cleanupDelay = ratelimit.DefaultWindow
	}
	if err := yaml.Unmarshal(defaultTips, &r.tips); err != nil {
		panic(err)
	}

	r.live = paper.NewLedger(paper.WithOrderTypes(core.OrderTypes...))
	r.routes = r.table()
	return r
}

// Statistics exposes the request counters.
func (r *Router) Statistics() *metric.Statistics {
	return r.stats
}

// Latency exposes the handling durations.
func (r *Router) Latency() *metric.Latency {
	return r.latency
}

// Routes returns the dispatch table.
func (r *Router) Routes() []*Route {
	return r.routes
}

// Close waits for scheduled cleanups; they end early once the context given
// to HandleMessage is done.
func (r *Router) Close() {
	r.wg.Wait()
	r.limiter.Stop()
}

func (r *Router) blocked(msg core.MessageReceived) bool {
	return slices.Contains(r.settings.BlockedUsers, msg.AuthorID) ||
		slices.Contains(r.settings.BlockedRooms, msg.RoomID)
}

// stripOverrides removes the "--user <id>" and "--guild <id>" suffixes that
// let operators act on behalf of another author or room.
func stripOverrides(content string, author, room int64) (string, int64, int64) {
	if head, tail, ok := strings.Cut(content, " --user "); ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(tail), 10, 64); err == nil {
			content, author = head, id
		}
	}
	if head, tail, ok := strings.Cut(content, " --guild "); ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(tail), 10, 64); err == nil {
			content, room = head, id
		}
	}
	return content, author, room
}

func (r *Router) load(ctx context.Context, msg core.MessageReceived, raw, content string, author, room int64) (core.Request, error) {
	accountID, err := r.accounts.Resolve(ctx, author)
	if err != nil {
		return core.Request{}, err
	}
	account, err := r.accounts.Account(ctx, accountID)
	if err != nil {
		return core.Request{}, err
	}
	roomProps, err := r.accounts.Room(ctx, room)
	if err != nil {
		return core.Request{}, err
	}

	req := core.Request{
		ID:         uuid.NewString(),
		Raw:        raw,
		Content:    content,
		AuthorID:   author,
		RoomID:     room,
		AccountID:  accountID,
		Account:    account,
		Room:       roomProps,
		IsBot:      msg.IsBot,
		IsOperator: r.settings.IsOperator(msg.AuthorID),
	}
	req.Limit = r.settings.Limits.Free
	if req.IsPro() {
		req.Limit = r.settings.Limits.Pro
	}
	if req.Limit <= 0 {
		req.Limit = core.DefaultSettings().Limits.Free
	}
	return req, nil
}

// HandleMessage processes one inbound message. Blocking steps such as
// confirmations run on the caller goroutine, so transports call it once per
// message in its own goroutine.
func (r *Router) HandleMessage(ctx context.Context, msg core.MessageReceived) {
	start := r.now()
	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("panic", p).Error("message handling panicked")
		}
	}()

	raw := strings.Join(strings.Fields(msg.Text), " ")
	if msg.IsSelf || msg.System || raw == "" || r.blocked(msg) {
		return
	}
	if r.confirm.Offer(msg.AuthorID, raw) {
		return
	}

	content := strings.ToLower(raw)
	author, room := msg.AuthorID, msg.RoomID
	if r.settings.IsOperator(msg.AuthorID) {
		content, author, room = stripOverrides(content, author, room)
	}

	req, err := r.load(ctx, msg, raw, content, author, room)
	if err != nil {
		r.log.WithError(err).WithField("author", author).Error("loading request properties")
		return
	}

	ctx, span := r.tracer.Start(ctx, "router.message", trace.WithAttributes(
		attribute.String("request_id", req.ID),
		attribute.Int64("author", author),
		attribute.Int64("room", room),
	))
	defer span.End()

	c := &Call{
		Request:  req,
		Response: &core.Response{Autodelete: req.Autodelete()},
		Origin:   msg.Handle,
		Log: r.log.WithFields(map[string]any{
			"request_id": req.ID,
			"author":     author,
			"room":       room,
		}),
		router: r,
	}

	if !strings.HasPrefix(content, "preset ") {
		var proceed bool
		content, proceed = r.resolvePresets(ctx, c, content)
		if !proceed {
			return
		}
	}

	content, used, deprecated := r.shortcuts.Rewrite(content, req.Room.Settings.MessageProcessing.Shortcuts)
	c.Response.ShortcutUsed = used
	c.Request = c.Request.WithContent(content)
	if used && deprecated {
		_, _ = c.Notify(ctx, embedMessage(core.Embed{
			Title:       ":tools: Deprecation notice",
			Description: "We are sunsetting the shortcut you used. We encourage you to start using `" + content + "` from now on.",
			Color:       core.ColorRed,
		}))
	}

	route, tail, prefix := r.find(content)
	if route == nil {
		return
	}
	if (route.Has(HumanOnly) && msg.IsBot) || (route.Has(OperatorOnly) && !req.IsOperator) {
		return
	}

	c.Route = route
	c.Log = c.Log.WithField("family", route.Family)
	span.SetAttributes(attribute.String("family", route.Family))

	if slices.Contains(route.Deprecated, prefix) {
		_, _ = c.Notify(ctx, embedMessage(core.Embed{
			Title: ":tools: Prefix change notice",
			Description: "We are changing the prefix used for market information requests from `" +
				strings.TrimSpace(prefix) + "` to `m` and `info`. Old prefixes will stop working soon.",
			Color: core.ColorRed,
		}))
	}

	if tail == "help" && route.Help.Title != "" {
		help := route.Help
		if help.Description == "" {
			help.Description = guide(route.Guide)
		}
		help.Color = core.ColorLightBlue
		_, _ = c.Notify(ctx, embedMessage(help))
		return
	}

	r.dispatch(ctx, c, tail)
	r.latency.Observe(r.now().Sub(start))
}

func (r *Router) find(content string) (*Route, string, string) {
	for _, route := range r.routes {
		if tail, prefix, ok := route.match(content); ok {
			return route, tail, prefix
		}
	}
	return nil, "", ""
}

// split breaks the argument tail into trimmed, non-empty sub-requests.
func split(route *Route, tail string) []string {
	parts := []string{tail}
	if route.Split != nil {
		parts = route.Split.Split(tail, -1)
	}
	return lo.Compact(lo.Map(parts, func(s string, _ int) string { return strings.TrimSpace(s) }))
}

func (r *Router) dispatch(ctx context.Context, c *Call, tail string) {
	route, req := c.Route, c.Request

	parts := split(route, tail)
	if len(parts) == 0 {
		return
	}
	if route.Has(Capped) && len(parts) > req.Limit/2 {
		_, _ = c.Notify(ctx, notice("Too many requests",
			"Only up to "+strconv.Itoa(req.Limit/2)+" requests are allowed per command.", core.ColorGray))
		return
	}

	processed := 0
	for _, slice := range parts {
		if route.Has(Metered) && !r.limiter.Admit(req.AuthorID, route.Cost, req.Limit) {
			c.Response.RateLimited = true
			r.stats.RateLimited()
			msg := notice("", "You reached your limit of requests per minute. You can try again in a bit.", core.ColorGray)
			msg.Mention = req.AuthorID
			_, _ = c.Notify(ctx, msg)
			break
		}

		before := len(c.Response.Sent)
		kind := r.invoke(ctx, c, slice)
		weight := len(c.Response.Sent) - before
		if route.Has(Metered) {
			r.limiter.Charge(req.AuthorID, weight-route.Cost)
		}
		c.Response.Weight += weight
		processed++

		if kind == core.ErrNotEntitled || kind == core.ErrNotRegistered || kind == core.ErrRateLimited {
			break
		}
	}

	if route.Statistic != "" {
		if route.Has(Metered) {
			r.stats.Add(route.Statistic, c.Response.Weight)
		} else {
			r.stats.Add(route.Statistic, processed)
		}
	}
	if route.Has(Tips) {
		r.tip(ctx, c)
	}
	if route.Has(Cleanup) && len(c.Response.Sent) > 0 {
		r.cleanup(ctx, c.Origin, c.Response)
	}
}

// invoke runs the handler of one slice and turns its error into a notice.
// It returns the error kind.
func (r *Router) invoke(ctx context.Context, c *Call, slice string) error {
	ctx, span := r.tracer.Start(ctx, "router."+c.Route.Family, trace.WithAttributes(
		attribute.String("slice", slice),
	))
	defer span.End()

	err := safely(ctx, c.Route.Handler, c, slice)
	if err == nil {
		return nil
	}
	kind := core.Kind(err)
	r.fail(ctx, span, c, err, kind)
	return kind
}

func safely(ctx context.Context, h Handler, c *Call, slice string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()
	return h(ctx, c, slice)
}

func (r *Router) tip(ctx context.Context, c *Call) {
	if !r.settings.Tips || c.Request.IsPro() || r.random(6) != 1 {
		return
	}

	families := lo.Filter(lo.Keys(r.tips), func(f string, _ int) bool {
		return f != c.Route.Statistic && f != c.Route.Family
	})
	if len(families) == 0 {
		return
	}
	slices.Sort(families)
	set := r.tips[families[r.random(len(families))]]
	if len(set) == 0 {
		return
	}
	selected := set[r.random(len(set))]
	_, _ = c.Notify(ctx, embedMessage(core.Embed{
		Title:       selected.Title,
		Description: selected.Description,
		Color:       core.ColorLightBlue,
	}))
}

// cleanup runs after the window: transient replies are deleted together with
// the request, other replies lose their dismiss reaction.
func (r *Router) cleanup(ctx context.Context, origin core.MessageHandle, resp *core.Response) {
	sent := slices.Clone(resp.Sent)
	autodelete := resp.Autodelete

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		timer := time.NewTimer(r.cleanupDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		ctx := context.WithoutCancel(ctx)
		if autodelete && !origin.IsZero() {
			_ = r.chat.DeleteMessage(ctx, origin)
		}
		for _, handle := range sent {
			var err error
			if autodelete {
				err = r.chat.DeleteMessage(ctx, handle)
				r.targets.drop(handle)
			} else {
				err = r.chat.RemoveReaction(ctx, handle, core.ReactionDismiss)
			}
			if err != nil {
				r.log.WithError(err).WithField("message", handle.MessageID).Debug("cleanup failed")
			}
		}
	}()
}
