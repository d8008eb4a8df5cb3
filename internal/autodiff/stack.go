package autodiff

import (
	"github.com/rs/zerolog"

	"github.com/born-ml/stanmath/internal/arena"
	"github.com/born-ml/stanmath/internal/autodiff/ops"
	"github.com/born-ml/stanmath/internal/metrics"
)

// Stack owns one tape and its arenas, and the stack of open episodes
// recording into them.
//
// A Stack is the explicit execution context of reverse-mode differentiation.
// It is not safe for concurrent use: give each goroutine its own Stack.
type Stack struct {
	cfg     arena.Config
	tape    *Tape
	ids     *arena.Slab[NodeID]
	floats  *arena.Slab[float64]
	frames  []frame
	serial  uint32
	rules   []ops.Rule
	scratch []float64
	saved   []savedAdj

	log     zerolog.Logger
	metrics *metrics.Collectors

	episodes int64
	sweeps   int64
}

// frame is the bookkeeping of one open episode.
type frame struct {
	start  NodeID
	ids    arena.Mark
	floats arena.Mark
	saved  int
	serial uint32
}

// Option configures a Stack.
type Option func(*Stack)

// WithArena sets the block sizing of the tape and operand arenas.
func WithArena(cfg arena.Config) Option {
	return func(s *Stack) { s.cfg = cfg }
}

// WithLogger sets the logger used for lifecycle events. Events are emitted
// at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Stack) { s.log = l }
}

// WithMetrics reports episode, sweep and arena activity to c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(s *Stack) { s.metrics = c }
}

// NewStack creates a stack with no open episode.
func NewStack(opts ...Option) *Stack {
	s := &Stack{
		cfg: arena.DefaultConfig(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tape = newTape(s.cfg)
	s.ids = arena.NewSlab[NodeID](s.cfg)
	s.floats = arena.NewSlab[float64](s.cfg)
	s.tape.nodes.OnGrow(s.onGrow("nodes"))
	s.ids.OnGrow(s.onGrow("operands"))
	s.floats.OnGrow(s.onGrow("values"))
	s.rules = ops.Table()
	return s
}

func (s *Stack) onGrow(region string) func(int64) {
	return func(bytes int64) {
		s.log.Debug().Str("region", region).Int64("bytes", bytes).Msg("arena block allocated")
		s.metrics.ArenaGrew(bytes)
	}
}

// Begin opens an episode nested inside the current one, if any. New nodes
// are recorded into it until it ends or a deeper episode begins.
func (s *Stack) Begin() *Episode {
	s.serial++
	f := frame{
		start:  NodeID(s.tape.Len()),
		ids:    s.ids.Mark(),
		floats: s.floats.Mark(),
		saved:  len(s.saved),
		serial: s.serial,
	}
	s.frames = append(s.frames, f)
	s.episodes++
	s.metrics.EpisodeBegun()
	s.log.Debug().Int("depth", len(s.frames)).Int32("start", int32(f.start)).Msg("episode begun")
	return &Episode{s: s, depth: len(s.frames) - 1, serial: f.serial}
}

// Nested runs fn inside a new episode and ends it when fn returns or panics.
// Episodes fn leaves open are ended with it.
func (s *Stack) Nested(fn func(ep *Episode) error) error {
	ep := s.Begin()
	defer func() {
		if ep.Active() {
			s.release(ep.depth)
		}
	}()
	return fn(ep)
}

// release ends the episode at depth and everything nested inside it.
func (s *Stack) release(depth int) {
	f := s.frames[depth]
	nodes := s.tape.Len() - int(f.start)
	s.restoreAdjoints(f.saved)
	s.tape.truncate(f.start)
	s.ids.Release(f.ids)
	s.floats.Release(f.floats)
	s.frames = s.frames[:depth]

	s.metrics.EpisodeEnded(nodes)
	if depth == 0 {
		s.metrics.SetArenaReserved(s.reserved())
	}
	s.log.Debug().Int("depth", depth+1).Int("nodes", nodes).Msg("episode ended")
}

// Depth returns the number of open episodes.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Tape returns the underlying tape.
func (s *Stack) Tape() *Tape {
	return s.tape
}

// Stats describes the current state of a Stack.
type Stats struct {
	Nodes    int   // Nodes on the tape.
	Depth    int   // Open episodes.
	Episodes int64 // Episodes begun over the stack lifetime.
	Sweeps   int64 // Reverse sweeps run over the stack lifetime.
	Tape     arena.Stats
	Operands arena.Stats
	Values   arena.Stats
}

// Arena returns the combined usage of all three arenas.
func (st Stats) Arena() arena.Stats {
	return st.Tape.Add(st.Operands).Add(st.Values)
}

// Stats reports usage counters.
func (s *Stack) Stats() Stats {
	return Stats{
		Nodes:    s.tape.Len(),
		Depth:    len(s.frames),
		Episodes: s.episodes,
		Sweeps:   s.sweeps,
		Tape:     s.tape.Stats(),
		Operands: s.ids.Stats(),
		Values:   s.floats.Stats(),
	}
}

func (s *Stack) reserved() int64 {
	return s.tape.Stats().BytesReserved + s.ids.Stats().BytesReserved + s.floats.Stats().BytesReserved
}

// rule returns the registered rule for k, refreshing the local copy of the
// table when k was registered after the stack was created.
func (s *Stack) rule(k ops.Kind) *ops.Rule {
	if int(k) >= len(s.rules) {
		s.rules = ops.Table()
	}
	return &s.rules[k]
}

// scratchN returns a reusable buffer of length n. Its contents are undefined.
func (s *Stack) scratchN(n int) []float64 {
	if cap(s.scratch) < n {
		s.scratch = make([]float64, n)
	}
	return s.scratch[:n]
}

// live panics unless v belongs to an open episode of s.
func (s *Stack) live(v Var) {
	d := int(v.depth)
	if d >= len(s.frames) || s.frames[d].serial != v.serial {
		panicf(ErrStaleVar, "node %d of episode %d", v.id, v.serial)
	}
}

// push records n in the innermost episode and returns it as a variable.
func (s *Stack) push(n Node) Var {
	top := len(s.frames) - 1
	if top < 0 {
		panicf(ErrNoEpisode, "recording %s", ops.Name(n.kind))
	}
	id := s.tape.push(n)
	return Var{s: s, id: id, val: n.val, depth: int32(top), serial: s.frames[top].serial}
}

// Episode is a handle to one open recording window of a Stack.
//
// Nodes built through an Episode land on its Stack's tape. Building through
// a handle that is not the innermost open episode panics with
// ErrNotInnermost.
type Episode struct {
	s      *Stack
	depth  int
	serial uint32
}

// Stack returns the owning stack.
func (e *Episode) Stack() *Stack {
	return e.s
}

// Depth returns the nesting depth, 0 for an outermost episode.
func (e *Episode) Depth() int {
	return e.depth
}

// Active reports whether the episode is still open.
func (e *Episode) Active() bool {
	return e.depth < len(e.s.frames) && e.s.frames[e.depth].serial == e.serial
}

// Nodes returns the number of nodes recorded since the episode began,
// including those of episodes nested in it.
func (e *Episode) Nodes() int {
	if !e.Active() {
		return 0
	}
	return e.s.tape.Len() - int(e.s.frames[e.depth].start)
}

func (e *Episode) requireTop() {
	if !e.Active() {
		panicf(ErrNotInnermost, "episode %d has ended", e.serial)
	}
	if top := len(e.s.frames) - 1; e.depth != top {
		panicf(ErrNotInnermost, "episode at depth %d used while depth %d is open", e.depth, top)
	}
}

// End closes the episode: its nodes are discarded and arena memory
// allocated since Begin is released for reuse. Variables created in it
// become stale. Ending an episode that is not the innermost panics.
func (e *Episode) End() {
	e.requireTop()
	e.s.release(e.depth)
}

// Var records an independent variable.
func (e *Episode) Var(x float64) Var {
	e.requireTop()
	return e.s.push(Node{kind: ops.Leaf, val: x, a: NoNode, b: NoNode})
}

// Vars records one independent variable per value.
func (e *Episode) Vars(xs []float64) []Var {
	e.requireTop()
	out := make([]Var, len(xs))
	for i, x := range xs {
		out[i] = e.s.push(Node{kind: ops.Leaf, val: x, a: NoNode, b: NoNode})
	}
	return out
}

// Const returns a constant. Constants take part in arithmetic without
// occupying a node.
func (e *Episode) Const(x float64) Var {
	return Const(x)
}
