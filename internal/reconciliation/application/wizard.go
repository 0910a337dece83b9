package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

var (
	ErrSubmissionInFlight = errors.New("wizard: submission already in flight")
	ErrWizardClosed       = errors.New("wizard: closed")
	ErrIndexOutOfRange    = errors.New("wizard: index out of range")
	ErrInvalidDate        = errors.New("wizard: invalid date")
)

// WizardOption configures a Wizard.
type WizardOption func(*Wizard)

// WithAutosave persists the draft under key.
func WithAutosave(store Autosave, key string) WizardOption {
	return func(w *Wizard) {
		if store != nil && key != "" {
			w.store = store
			w.key = key
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) WizardOption {
	return func(w *Wizard) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) WizardOption {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Wizard drives one employee's reconciliation from counting to submission.
// Every edit recomputes the full snapshot before the lock is released, so
// readers never see a partially updated state.
type Wizard struct {
	mu sync.Mutex

	provider  ConfigProvider
	submitter RecordSubmitter
	employee  string
	store     Autosave
	key       string
	clock     Clock
	logger    logrus.FieldLogger
	saver     *autosaver

	cfg        siteconfig.Config
	draft      Draft
	snapshot   reconciliation.Snapshot
	step       Step
	generation uint64
	submitting bool
	closed     bool
}

// NewWizard loads and normalizes the site config, then restores any autosaved
// draft on top of a blank one. An invalid config is fatal.
func NewWizard(ctx context.Context, provider ConfigProvider, submitter RecordSubmitter, employee string, opts ...WizardOption) (*Wizard, error) {
	if provider == nil {
		return nil, errors.New("wizard: nil config provider")
	}
	if submitter == nil {
		return nil, errors.New("wizard: nil submitter")
	}
	w := &Wizard{
		provider:  provider,
		submitter: submitter,
		employee:  employee,
		store:     noopAutosave{},
		clock:     SystemClock{},
		logger:    logrus.StandardLogger(),
		step:      RegisterStep(0),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := loadConfig(ctx, provider)
	if err != nil {
		return nil, err
	}
	w.cfg = cfg

	draft := NewDraft(cfg, w.today())
	saved, err := w.store.Get(ctx, w.key)
	if err != nil {
		w.logger.WithError(err).Warn("autosave unavailable, starting blank")
	} else if saved != nil {
		draft = MergeDraft(cfg, draft, *saved)
	}
	w.draft = draft
	w.recompute()
	w.saver = newAutosaver(w.store, w.key, w.logger)
	return w, nil
}

func loadConfig(ctx context.Context, provider ConfigProvider) (siteconfig.Config, error) {
	raw, err := provider.GetConfig(ctx)
	if err != nil {
		return siteconfig.Config{}, fmt.Errorf("wizard: load config: %w", err)
	}
	return siteconfig.Normalize(raw)
}

func (w *Wizard) today() time.Time {
	now := w.clock.Now()
	if loc, err := time.LoadLocation(w.cfg.Tenant.Timezone); err == nil && w.cfg.Tenant.Timezone != "" {
		now = now.In(loc)
	}
	return now
}

// recompute and touch must be called with mu held.
func (w *Wizard) recompute() {
	w.snapshot = reconciliation.ComputeSnapshot(w.cfg, w.draft.Input())
}

func (w *Wizard) touch() {
	w.recompute()
	w.generation++
	if w.saver != nil {
		w.saver.save(w.draft)
	}
}

func (w *Wizard) edit(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWizardClosed
	}
	if err := fn(); err != nil {
		return err
	}
	w.touch()
	return nil
}

// SetCount updates one denomination of register i from raw input.
func (w *Wizard) SetCount(register int, d reconciliation.Denomination, raw string) error {
	return w.edit(func() error {
		if register < 0 || register >= len(w.draft.Registers) {
			return fmt.Errorf("%w: register %d", ErrIndexOutOfRange, register)
		}
		return w.draft.Registers[register].Set(d, raw)
	})
}

// SetTotalSales updates total sales from raw input.
func (w *Wizard) SetTotalSales(raw string) error {
	return w.edit(func() error {
		w.draft.TotalSales = reconciliation.ParseMoney(raw)
		return nil
	})
}

// SetPayouts updates payouts from raw input.
func (w *Wizard) SetPayouts(raw string) error {
	return w.edit(func() error {
		w.draft.Payouts = reconciliation.ParseMoney(raw)
		return nil
	})
}

// SetTerminalAmount updates the amount of terminal i from raw input.
func (w *Wizard) SetTerminalAmount(terminal int, raw string) error {
	return w.edit(func() error {
		if terminal < 0 || terminal >= len(w.draft.TerminalAmounts) {
			return fmt.Errorf("%w: terminal %d", ErrIndexOutOfRange, terminal)
		}
		w.draft.TerminalAmounts[terminal] = reconciliation.ParseMoney(raw)
		return nil
	})
}

// SetDate sets the business date (YYYY-MM-DD).
func (w *Wizard) SetDate(date string) error {
	return w.edit(func() error {
		if _, err := time.Parse(reconciliation.DateLayout, date); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
		w.draft.Date = date
		return nil
	})
}

// SetBagNumber sets the deposit bag number.
func (w *Wizard) SetBagNumber(bag string) error {
	return w.edit(func() error {
		w.draft.BagNumber = bag
		return nil
	})
}

// SetComments sets the employee's comments.
func (w *Wizard) SetComments(comments string) error {
	return w.edit(func() error {
		w.draft.Comments = comments
		return nil
	})
}

// Config returns the normalized config in use.
func (w *Wizard) Config() siteconfig.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.Clone()
}

// Draft returns a copy of the current draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Clone()
}

// Snapshot returns the figures computed for the current draft.
func (w *Wizard) Snapshot() reconciliation.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := w.snapshot
	snap.Registers = append([]reconciliation.RegisterResult(nil), snap.Registers...)
	return snap
}

// Steps lists the step descriptors for the current config.
func (w *Wizard) Steps() []StepDescriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Steps(w.cfg)
}

// Current returns the current step and its one based number.
func (w *Wizard) Current() (Step, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step, w.step.Number(w.cfg)
}

// Next moves forward one step. It is a no-op on the last step.
func (w *Wizard) Next() {
	w.move(1)
}

// Prev moves back one step. It is a no-op on the first step.
func (w *Wizard) Prev() {
	w.move(-1)
}

func (w *Wizard) move(delta int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.step.Number(w.cfg) + delta
	if s, ok := StepAt(w.cfg, n); ok {
		w.step = s
	}
}

// GoToStep jumps to step n. It reports false, leaving the step unchanged,
// when n is out of range.
func (w *Wizard) GoToStep(n int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := StepAt(w.cfg, n)
	if ok {
		w.step = s
	}
	return ok
}

// Reload fetches the config again and resizes the draft to it. The current
// step keeps its identity; a register step past the new count moves to the
// last register. On error the previous config stays in use.
func (w *Wizard) Reload(ctx context.Context) error {
	cfg, err := loadConfig(ctx, w.provider)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWizardClosed
	}
	w.cfg = cfg
	w.draft = w.draft.Resized(cfg)
	if w.step.Kind == StepRegister && w.step.RegisterIndex >= cfg.Registers.Count {
		w.step = RegisterStep(cfg.Registers.Count - 1)
	}
	w.touch()
	return nil
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Submit builds a record from the current draft and hands it to the
// submitter. Only one submission may be in flight. The wizard stays usable
// while it runs; on success the draft is reset unless it was edited in the
// meantime, in which case the edits are kept under a fresh id. On failure the
// draft is left as it was.
func (w *Wizard) Submit(ctx context.Context) (SubmitResult, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return SubmitResult{}, ErrWizardClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return SubmitResult{}, ErrSubmissionInFlight
	}
	w.submitting = true
	rec := BuildRecord(w.cfg, w.draft, w.employee, w.clock.Now())
	generation := w.generation
	w.mu.Unlock()

	result, err := w.submitter.SubmitRecord(ctx, rec)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if w.closed || err != nil {
		return result, err
	}
	if w.generation == generation {
		w.draft = NewDraft(w.cfg, w.today())
		w.step = RegisterStep(0)
		w.recompute()
		w.generation++
		w.saver.clear()
	} else if w.draft.ID == rec.ID {
		w.draft.ID = uuid.NewString()
		w.touch()
	}
	return result, nil
}

// Close stops autosave after flushing the last pending write. A submission
// still in flight completes but its result is no longer applied.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.saver.stop()
}
