// Package workflow drives the upload, processing, results and history screens
// and owns the state shown by every presentation layer.
package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/balance-validator/internal/analysis"
	"github.com/jonathan/balance-validator/internal/logging"
	"github.com/jonathan/balance-validator/internal/types"
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, doc analysis.Document) (*types.ValidationResult, error)
}

// Recorder persists a completed analysis. *history.Store satisfies it.
type Recorder interface {
	Add(ctx context.Context, fileName string, pdf []byte, result *types.ValidationResult, elapsed time.Duration) (types.HistoryEntry, error)
}

// Controller is the workflow state machine. Only one analysis may be in
// flight; Submit returns ErrBusy otherwise.
type Controller struct {
	analyzer Analyzer
	history  Recorder
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	busy bool
	// data survives navigation away from results; State exposes the result
	// only while the results screen is shown.
	data State
	subs map[chan State]struct{}

	wg sync.WaitGroup
}

// New creates a controller on the upload screen. A nil history disables recording.
func New(analyzer Analyzer, history Recorder, logger *zap.Logger) *Controller {
	return &Controller{
		analyzer: analyzer,
		history:  history,
		logger:   logging.OrNop(logger),
		now:      time.Now,
		data:     State{Screen: ScreenUpload},
		subs:     make(map[chan State]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Busy reports whether an analysis is running, whatever screen is shown.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Submit analyzes doc and blocks until the analysis finishes. The returned
// error is ErrBusy, an *InputError, or the sanitized failure also stored in
// State.Error.
func (c *Controller) Submit(ctx context.Context, doc analysis.Document) (State, error) {
	if err := c.begin(doc); err != nil {
		return c.Snapshot(), err
	}
	return c.run(ctx, doc)
}

// SubmitAsync validates doc and enters processing, then runs the analysis in
// the background. Use Subscribe or Wait to observe completion.
func (c *Controller) SubmitAsync(ctx context.Context, doc analysis.Document) error {
	if err := c.begin(doc); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, doc) //nolint:errcheck
	}()
	return nil
}

// Wait blocks until background analyses and history writes have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) begin(doc analysis.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrBusy
	}
	if c.data.Screen != ScreenUpload {
		return &InputError{Message: MsgNotOnUpload}
	}
	if !isPDF(doc.MIMEType) {
		c.logger.Info("rejected non-PDF upload",
			zap.String("file", doc.Name), zap.String("mime_type", doc.MIMEType))
		c.setLocked(State{Screen: ScreenUpload, Error: MsgNotPDF})
		return &InputError{Message: MsgNotPDF}
	}

	c.busy = true
	c.setLocked(State{Screen: ScreenProcessing, FileName: doc.Name})
	return nil
}

func (c *Controller) run(ctx context.Context, doc analysis.Document) (State, error) {
	start := c.now()
	result, err := c.analyzer.Analyze(ctx, doc)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if err == nil && result == nil {
		err = errors.New("analysis returned no result")
	}
	if err != nil {
		var aerr *analysis.Error
		if !errors.As(err, &aerr) {
			c.logger.Error("unexpected analysis failure", zap.String("file", doc.Name), zap.Error(err))
			aerr = &analysis.Error{Kind: analysis.KindGeneric, UserMessage: analysis.MsgUnexpected, Cause: err}
		}
		c.setLocked(State{Screen: ScreenUpload, FileName: doc.Name, Error: aerr.UserMessage})
		return c.viewLocked(), aerr
	}

	c.logger.Info("analysis completed",
		zap.String("file", doc.Name),
		zap.String("status", string(result.Summary.Status)),
		zap.Int("items", len(result.Items)),
		zap.Duration("elapsed", elapsed),
	)
	c.setLocked(State{
		Screen:         ScreenResults,
		FileName:       doc.Name,
		Result:         result.Clone(),
		ProcessingTime: elapsed.Seconds(),
	})

	if c.history != nil {
		c.record(ctx, doc, result.Clone(), elapsed)
	}
	return c.viewLocked(), nil
}

// record appends the run to history without holding up the transition.
// Failures are logged only.
func (c *Controller) record(ctx context.Context, doc analysis.Document, result *types.ValidationResult, elapsed time.Duration) {
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		entry, err := c.history.Add(ctx, doc.Name, doc.Data, result, elapsed)
		if err != nil {
			c.logger.Warn("analysis not saved to history", zap.String("file", doc.Name), zap.Error(err))
			return
		}
		c.logger.Debug("analysis saved to history", zap.String("entry_id", entry.ID))
	}()
}

// Navigate jumps to target. Going to upload clears the file name, result and
// error; other targets keep the current data.
func (c *Controller) Navigate(target Screen) error {
	if !target.Valid() {
		return &InputError{Message: "pantalla desconocida: " + string(target)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case target == ScreenUpload:
		c.setLocked(State{Screen: ScreenUpload})
		return nil
	case target == ScreenProcessing && !c.busy:
		return &InputError{Message: "no hay un análisis en curso"}
	case target == ScreenResults && c.data.Result == nil:
		return &InputError{Message: "no hay resultados para mostrar"}
	}

	next := c.data
	next.Screen = target
	c.setLocked(next)
	return nil
}

// SelectEntry shows a past analysis on the results screen without re-running it.
func (c *Controller) SelectEntry(entry types.HistoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := entry.Result
	c.setLocked(State{
		Screen:         ScreenResults,
		FileName:       entry.FileName,
		Result:         result.Clone(),
		ProcessingTime: entry.ProcessingTime,
		EntryID:        entry.ID,
	})
}

// Subscribe returns a channel receiving the state after every transition.
// A slow reader only sees the latest state. Call the returned func to stop.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) viewLocked() State {
	s := c.data.clone()
	if s.Screen != ScreenResults {
		s.Result = nil
	}
	return s
}

// setLocked replaces the state and notifies subscribers. c.mu must be held.
func (c *Controller) setLocked(s State) {
	c.data = s
	view := c.viewLocked()
	for ch := range c.subs {
		snap := view.clone()
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func isPDF(mimeType string) bool {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), types.PDFMIMEType)
}
