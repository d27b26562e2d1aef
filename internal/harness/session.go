package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/entitystate/internal/command"
	"github.com/roach88/entitystate/internal/compiler"
	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/journal"
	"github.com/roach88/entitystate/internal/record"
	"github.com/roach88/entitystate/internal/testutil"
)

// ErrDefinitionChanged is returned when a run is resumed against a
// collection definition whose hash differs from the journaled one.
var ErrDefinitionChanged = errors.New("collection definition changed since the run was journaled")

// Session dispatches commands to one collection and journals every
// dispatch under a single run.
type Session struct {
	journal *journal.Journal
	store   *command.Store[record.Object]
	def     *compiler.CollectionDef
	defHash string
	logger  *slog.Logger
	entropy *entropyTape

	// last is the event of the most recent dispatch, set by the store's
	// observer before Dispatch returns.
	last command.Event[record.Object]
}

// Dispatched is the outcome of one journaled dispatch.
type Dispatched struct {
	Entry journal.Entry
	Next  entity.State[record.Object]
	// Err is the command's rejection, nil when it was applied.
	Err error
}

// ReplayStep compares one journaled entry with its re-dispatch.
type ReplayStep struct {
	Seq      int64  `json:"seq"`
	Type     string `json:"type"`
	Outcome  string `json:"outcome"`
	WantHash string `json:"want_hash"`
	GotHash  string `json:"got_hash"`
	Match    bool   `json:"match"`
}

// newSession builds the definition's collection in its initial state and a
// store whose run id is runID.
func newSession(j *journal.Journal, def *compiler.CollectionDef, runID string, cfg runConfig) (*Session, error) {
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	defHash, err := def.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash collection %s: %w", def.Name, err)
	}

	clock := testutil.NewDeterministicClock()
	entropy := newEntropyTape(cfg.entropy)
	entropy.queue(seedEntropy(defHash, len(def.Seed)))
	c, initial, err := def.BuildWithEntropy(entropy, entity.WithClock[record.Object](clock))
	if err != nil {
		return nil, fmt.Errorf("build collection %s: %w", def.Name, err)
	}
	entropy.take()
	d, err := command.NewDispatcher(c)
	if err != nil {
		return nil, err
	}

	s := &Session{
		journal: j,
		def:     def,
		defHash: defHash,
		logger:  logger,
		entropy: entropy,
	}
	s.store = command.NewStore(def.Name, d,
		command.WithInitialState(initial),
		command.WithLogger[record.Object](logger),
		command.WithRunIDGenerator[record.Object](testutil.NewFixedRunIDGenerator(runID)),
		command.WithObserver[record.Object](func(ev command.Event[record.Object]) { s.last = ev }),
	)
	return s, nil
}

// OpenSession resumes runID from the journal, or begins it when the journal
// has no such run. A resumed run is replayed first so new dispatches
// continue from its last state and seq.
func OpenSession(ctx context.Context, j *journal.Journal, def *compiler.CollectionDef, runID string, opts ...Option) (*Session, []ReplayStep, error) {
	_, err := j.ReadRun(ctx, runID)
	if err == nil {
		return Replay(ctx, j, def, runID, opts...)
	}
	if !errors.Is(err, journal.ErrRunNotFound) {
		return nil, nil, err
	}

	cfg := newRunConfig(opts)
	s, err := newSession(j, def, runID, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := j.BeginRun(ctx, runID, def.Name, s.defHash); err != nil {
		return nil, nil, err
	}
	return s, []ReplayStep{}, nil
}

// Replay rebuilds a journaled run by dispatching its entries again against
// a fresh collection, comparing each resulting state fingerprint with the
// journaled one. Nothing is written to the journal.
//
// Each entry's journaled entropy is fed back to the uuid strategy, so
// generated ids come out as they did when the run was recorded.
func Replay(ctx context.Context, j *journal.Journal, def *compiler.CollectionDef, runID string, opts ...Option) (*Session, []ReplayStep, error) {
	cfg := newRunConfig(opts)

	run, err := j.ReadRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if run.Collection != def.Name {
		return nil, nil, fmt.Errorf("run %q journals collection %q, not %q", runID, run.Collection, def.Name)
	}

	s, err := newSession(j, def, runID, cfg)
	if err != nil {
		return nil, nil, err
	}
	if run.DefHash != s.defHash {
		return nil, nil, fmt.Errorf("replay %s: %w", runID, ErrDefinitionChanged)
	}

	entries, err := j.Entries(ctx, runID)
	if err != nil {
		return nil, nil, err
	}

	steps := make([]ReplayStep, 0, len(entries))
	for _, e := range entries {
		v, err := record.UnmarshalValue([]byte(e.Args))
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: args: %w", e.Seq, err)
		}
		args, ok := v.(record.Object)
		if !ok {
			return nil, nil, fmt.Errorf("entry %d: args must be an object", e.Seq)
		}
		cmd, err := CommandFromArgs(e.Kind, args)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", e.Seq, err)
		}

		if err := s.entropy.load(e.Entropy); err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", e.Seq, err)
		}
		d, err := s.apply(ctx, cmd, args)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", e.Seq, err)
		}

		step := ReplayStep{
			Seq:      d.Entry.Seq,
			Type:     d.Entry.Type,
			Outcome:  d.Entry.Outcome,
			WantHash: e.StateHash,
			GotHash:  d.Entry.StateHash,
		}
		step.Match = d.Entry.Seq == e.Seq && d.Entry.Outcome == e.Outcome && d.Entry.StateHash == e.StateHash
		if !step.Match {
			s.logger.Warn("replay diverged",
				"run_id", runID,
				"seq", e.Seq,
				"want_outcome", e.Outcome,
				"got_outcome", d.Entry.Outcome)
		}
		steps = append(steps, step)
	}
	return s, steps, nil
}

// RunID returns the run the session journals under.
func (s *Session) RunID() string {
	return s.store.RunID()
}

// Collection returns the definition the session was built from.
func (s *Session) Collection() *compiler.CollectionDef {
	return s.def
}

// State returns the collection's current state.
func (s *Session) State() entity.State[record.Object] {
	return s.store.State()
}

// Store returns the underlying command store.
func (s *Session) Store() *command.Store[record.Object] {
	return s.store
}

// Dispatch builds a command from kind and args, applies it and journals
// the dispatch. A rejected command is journaled too and reported in the
// returned Dispatched, not as an error.
func (s *Session) Dispatch(ctx context.Context, kind string, args record.Object) (Dispatched, error) {
	cmd, err := CommandFromArgs(kind, args)
	if err != nil {
		return Dispatched{}, err
	}
	if args == nil {
		args = record.Object{}
	}

	d, err := s.apply(ctx, cmd, args)
	if err != nil {
		return Dispatched{}, err
	}
	if err := s.journal.Append(ctx, d.Entry); err != nil {
		return Dispatched{}, err
	}
	return d, nil
}

// apply dispatches cmd through the store and builds its journal entry
// without writing it.
func (s *Session) apply(ctx context.Context, cmd command.Command, args record.Object) (Dispatched, error) {
	if err := ctx.Err(); err != nil {
		return Dispatched{}, err
	}

	next, dispatchErr := s.store.Dispatch(ctx, cmd)
	entropy := s.entropy.take()
	entry, err := entryFor(s.last, args)
	if err != nil {
		return Dispatched{}, err
	}
	entry.Entropy = entropy
	return Dispatched{Entry: entry, Next: next, Err: dispatchErr}, nil
}

// entryFor converts a dispatch event into a journal entry.
func entryFor(ev command.Event[record.Object], args record.Object) (journal.Entry, error) {
	canonicalArgs, err := record.MarshalCanonical(args)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("canonical args: %w", err)
	}
	stateHash, err := StateHash(ev.Next)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("state hash: %w", err)
	}

	entry := journal.Entry{
		RunID:     ev.RunID,
		Seq:       ev.Seq,
		Kind:      ev.Command.Kind.String(),
		Type:      ev.Type,
		Args:      string(canonicalArgs),
		Outcome:   journal.OutcomeOK,
		Size:      ev.Next.Size(),
		StateHash: stateHash,
	}
	if ev.Err != nil {
		entry.Outcome = outcomeOf(ev.Err)
		entry.Message = ev.Err.Error()
	}
	return entry, nil
}
