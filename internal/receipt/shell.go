package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/orbitravel/receipts/internal/suggestion"
)

var (
	// ErrGenerationInProgress is returned when a draft is submitted while another is being assembled
	ErrGenerationInProgress = errors.New("receipt generation already in progress")
	// ErrInvalidTransition is returned when an action is not allowed in the current phase
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrShellClosed is returned after the shell has been torn down
	ErrShellClosed = errors.New("shell closed")
	// ErrDescriptionRequired is returned when a suggestion is requested without a trip description
	ErrDescriptionRequired = errors.New("trip description required")
	// ErrSuggestionFailed wraps any failure of the suggestion service
	ErrSuggestionFailed = errors.New("suggestion failed")
	// ErrStaleSuggestion is returned for a response superseded by a newer request
	ErrStaleSuggestion = errors.New("suggestion superseded by a newer request")
)

// Phase is the display phase of the application
type Phase int

const (
	PhaseForm Phase = iota
	PhaseTransitioningToPreview
	PhasePreview
	PhaseTransitioningToForm
)

func (p Phase) String() string {
	switch p {
	case PhaseForm:
		return "FORM"
	case PhaseTransitioningToPreview:
		return "TRANSITIONING_TO_PREVIEW"
	case PhasePreview:
		return "PREVIEW"
	case PhaseTransitioningToForm:
		return "TRANSITIONING_TO_FORM"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Transitioning reports whether the phase is one of the timed handoffs
func (p Phase) Transitioning() bool {
	return p == PhaseTransitioningToPreview || p == PhaseTransitioningToForm
}

// State is the application state owned by a Shell
type State struct {
	Current              *Receipt `json:"currentReceipt"`
	PreviewVisible       bool     `json:"previewVisible"`
	GenerationInProgress bool     `json:"generationInProgress"`
	Phase                Phase    `json:"-"`
}

// Scheduler runs delayed callbacks
type Scheduler interface {
	// AfterFunc runs f after d and returns a function that cancels it
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// timerScheduler runs callbacks on time.AfterFunc timers. Zero delays run inline.
type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) func() {
	if d <= 0 {
		f()
		return func() {}
	}
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// ShellConfig holds the cosmetic delays of the form/preview handoff
type ShellConfig struct {
	GenerateDelay time.Duration
	ResetDelay    time.Duration
}

// DefaultShellConfig returns the delays used by the web interface
func DefaultShellConfig() ShellConfig {
	return ShellConfig{
		GenerateDelay: 500 * time.Millisecond,
		ResetDelay:    300 * time.Millisecond,
	}
}

// Shell owns the application state of one session and moves it between form and preview
type Shell struct {
	assembler *Assembler
	suggester suggestion.Suggester
	scheduler Scheduler
	config    ShellConfig

	mu         sync.Mutex
	state      State
	generation uint64 // invalidates callbacks of superseded transitions
	suggestSeq uint64
	pending    func()
	closed     bool
}

// NewShell creates a new Shell using real timers
func NewShell(assembler *Assembler, suggester suggestion.Suggester, config ShellConfig) *Shell {
	return NewShellWithScheduler(assembler, suggester, config, timerScheduler{})
}

// NewShellWithScheduler creates a new Shell with a custom scheduler for testing
func NewShellWithScheduler(assembler *Assembler, suggester suggestion.Suggester, config ShellConfig, scheduler Scheduler) *Shell {
	return &Shell{
		assembler: assembler,
		suggester: suggester,
		scheduler: scheduler,
		config:    config,
	}
}

// Snapshot returns a copy of the current state
func (s *Shell) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit starts generating a receipt from draft. It is only valid in the form
// phase and is a no-op returning ErrGenerationInProgress while a generation runs.
func (s *Shell) Submit(draft Draft) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrShellClosed
	case s.state.GenerationInProgress:
		s.mu.Unlock()
		return ErrGenerationInProgress
	case s.state.Phase != PhaseForm:
		phase := s.state.Phase
		s.mu.Unlock()
		return fmt.Errorf("%w: submit in %s", ErrInvalidTransition, phase)
	}

	s.state.GenerationInProgress = true
	s.state.Phase = PhaseTransitioningToPreview
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.schedule(s.config.GenerateDelay, func() { s.completeGeneration(gen, draft) })
	return nil
}

func (s *Shell) completeGeneration(gen uint64, draft Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation || s.state.Phase != PhaseTransitioningToPreview {
		return
	}

	r := s.assembler.Assemble(draft)
	s.state.Current = r
	s.state.PreviewVisible = true
	s.state.GenerationInProgress = false
	s.state.Phase = PhasePreview
	s.pending = nil

	slog.Info("Receipt generated", "receipt_number", r.ReceiptNumber, "client", r.ClientName)
}

// GenerateNew hides the preview immediately and, after the reset delay,
// discards the current receipt and returns to the form.
func (s *Shell) GenerateNew() error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrShellClosed
	case s.state.Phase != PhasePreview:
		phase := s.state.Phase
		s.mu.Unlock()
		return fmt.Errorf("%w: generate new in %s", ErrInvalidTransition, phase)
	}

	s.state.PreviewVisible = false
	s.state.Phase = PhaseTransitioningToForm
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.schedule(s.config.ResetDelay, func() { s.completeReset(gen) })
	return nil
}

func (s *Shell) completeReset(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation || s.state.Phase != PhaseTransitioningToForm {
		return
	}

	s.state.Current = nil
	s.state.Phase = PhaseForm
	s.pending = nil
}

// schedule must be called without s.mu held: zero delays run f inline
func (s *Shell) schedule(d time.Duration, f func()) {
	cancel := s.scheduler.AfterFunc(d, f)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		return
	}
	s.pending = cancel
}

// Suggest requests trip content for the form. Only the most recent request
// wins: a response that completes after a newer request was issued returns
// ErrStaleSuggestion.
func (s *Shell) Suggest(ctx context.Context, description, month string) (*suggestion.Suggestion, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrDescriptionRequired
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShellClosed
	}
	s.suggestSeq++
	seq := s.suggestSeq
	s.mu.Unlock()

	result, err := s.suggester.Suggest(ctx, description, month)

	s.mu.Lock()
	stale := seq != s.suggestSeq
	s.mu.Unlock()

	if stale {
		slog.Debug("Discarding stale suggestion", "seq", seq)
		return nil, ErrStaleSuggestion
	}
	if err != nil {
		slog.Error("Failed to get trip suggestion", "description", description, "month", month, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSuggestionFailed, err)
	}
	return result, nil
}

// Close cancels pending transitions. Callbacks that already fired are ignored.
func (s *Shell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
}
