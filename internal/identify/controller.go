// Package identify drives the capture -> analyze -> confirm -> review flow as
// an explicit state machine, so every transition is testable without any UI.
package identify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robeeeeeet/bottle-keep/internal/ai"
)

type State string

const (
	StateSelect     State = "select"
	StatePhoto      State = "photo"
	StateManual     State = "manual"
	StateAnalyzing  State = "analyzing"
	StateConfirm    State = "confirm"
	StateCandidates State = "candidates"
	StateReview     State = "review"
	StateSaved      State = "saved"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoCandidate       = errors.New("no such candidate")
)

// Analyzer is the AI identification service.
type Analyzer interface {
	Analyze(ctx context.Context, q ai.Query) (*ai.Result, error)
}

// Review is the user's input on the review screen.
type Review struct {
	PhotoURL     *string
	DrinkingDate *time.Time
	Rating       int
	Memo         *string
}

// Saver persists the final entry.
type Saver interface {
	Save(ctx context.Context, item ai.AlcoholInfo, existingAlcoholID string, review Review) error
}

// Controller holds the current step and its payload. Zero value is not
// usable; construct with New.
type Controller struct {
	analyzer Analyzer
	saver    Saver

	state  State
	origin State // which input step (photo|manual) produced the current query

	query          ai.Query
	item           *ai.AlcoholInfo
	candidates     []ai.AlcoholInfo
	fromCandidates bool
	existingID     string // set by the review-existing entry point
	lastErr        string
}

func New(analyzer Analyzer, saver Saver) *Controller {
	return &Controller{analyzer: analyzer, saver: saver, state: StateSelect}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Item() *ai.AlcoholInfo { return c.item }

func (c *Controller) Candidates() []ai.AlcoholInfo { return c.candidates }

func (c *Controller) LastError() string { return c.lastErr }

// StartPhoto and StartManual leave the selection screen.
func (c *Controller) StartPhoto() error  { return c.enterInput(StatePhoto) }
func (c *Controller) StartManual() error { return c.enterInput(StateManual) }

func (c *Controller) enterInput(to State) error {
	if c.state != StateSelect {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, to)
	}
	c.state = to
	c.lastErr = ""
	return nil
}

// StartReviewExisting bypasses identification entirely: the user is adding
// their own review to a bottle already in the catalog.
func (c *Controller) StartReviewExisting(alcoholID string, info ai.AlcoholInfo) {
	c.state = StateReview
	c.item = &info
	c.existingID = alcoholID
	c.candidates = nil
	c.fromCandidates = false
	c.lastErr = ""
}

// SubmitPhoto sends the captured image off for identification.
func (c *Controller) SubmitPhoto(ctx context.Context, imageURL, imageBase64 string) error {
	if c.state != StatePhoto {
		return fmt.Errorf("%w: submit photo in %s", ErrInvalidTransition, c.state)
	}
	return c.analyze(ctx, ai.Query{ImageURL: imageURL, ImageBase64: imageBase64}, StatePhoto)
}

// SubmitText sends a typed name (and optional type) for identification.
func (c *Controller) SubmitText(ctx context.Context, name, typ string) error {
	if c.state != StateManual {
		return fmt.Errorf("%w: submit text in %s", ErrInvalidTransition, c.state)
	}
	return c.analyze(ctx, ai.Query{Text: name, Type: typ}, StateManual)
}

// analyze runs the query and lands on confirm or candidates. A service
// failure rolls the machine back to the input step that triggered the call.
func (c *Controller) analyze(ctx context.Context, q ai.Query, from State) error {
	c.state = StateAnalyzing
	c.lastErr = ""

	res, err := c.analyzer.Analyze(ctx, q)
	if err != nil {
		c.state = from
		c.lastErr = err.Error()
		return err
	}

	c.query = q
	c.origin = from
	if res.Unique && res.Result != nil {
		c.item = res.Result
		c.candidates = nil
		c.state = StateConfirm
		return nil
	}
	c.item = nil
	c.candidates = res.Candidates
	c.state = StateCandidates
	return nil
}

// Confirm accepts the single confident match and moves to review.
func (c *Controller) Confirm() error {
	if c.state != StateConfirm || c.item == nil {
		return fmt.Errorf("%w: confirm in %s", ErrInvalidTransition, c.state)
	}
	c.fromCandidates = false
	c.state = StateReview
	return nil
}

// Reject re-runs the original query with the turned-down name as an
// exclusion hint. The outcome is always the candidates screen: the user has
// already distrusted one confident answer, so even a unique re-query result
// is presented as a choice, and the rejected item stays in the list in case
// of a mis-tap.
func (c *Controller) Reject(ctx context.Context) error {
	if c.state != StateConfirm || c.item == nil {
		return fmt.Errorf("%w: reject in %s", ErrInvalidTransition, c.state)
	}
	rejected := *c.item

	c.state = StateAnalyzing
	c.lastErr = ""
	q := c.query
	q.RejectedName = rejected.Name

	res, err := c.analyzer.Analyze(ctx, q)
	if err != nil {
		c.state = StateConfirm
		c.item = &rejected
		c.lastErr = err.Error()
		return err
	}

	var list []ai.AlcoholInfo
	if res.Unique && res.Result != nil {
		list = []ai.AlcoholInfo{*res.Result}
	} else {
		list = res.Candidates
	}
	found := false
	for _, cand := range list {
		if cand.Name == rejected.Name {
			found = true
			break
		}
	}
	if !found {
		// Keep the rejected item selectable even when the list is full.
		if len(list) >= ai.MaxCandidates {
			list = list[:ai.MaxCandidates-1]
		}
		list = append(list, rejected)
	}
	if len(list) > ai.MaxCandidates {
		list = list[:ai.MaxCandidates]
	}

	c.item = nil
	c.candidates = list
	c.state = StateCandidates
	return nil
}

// SelectCandidate picks one proposal and goes straight to review; an
// explicit pick needs no second confirmation.
func (c *Controller) SelectCandidate(i int) error {
	if c.state != StateCandidates {
		return fmt.Errorf("%w: select candidate in %s", ErrInvalidTransition, c.state)
	}
	if i < 0 || i >= len(c.candidates) {
		return ErrNoCandidate
	}
	item := c.candidates[i]
	c.item = &item
	c.fromCandidates = true
	c.state = StateReview
	return nil
}

// Save persists the entry and terminates the flow. A failed save keeps the
// machine in review so the user can retry.
func (c *Controller) Save(ctx context.Context, review Review) error {
	if c.state != StateReview || c.item == nil {
		return fmt.Errorf("%w: save in %s", ErrInvalidTransition, c.state)
	}
	if review.Rating < 1 || review.Rating > 5 {
		c.lastErr = "rating is required"
		return errors.New("rating is required")
	}
	if err := c.saver.Save(ctx, *c.item, c.existingID, review); err != nil {
		c.lastErr = err.Error()
		return err
	}
	c.state = StateSaved
	return nil
}

// Back steps one screen backwards. Input steps return to selection; result
// steps return to the input step that produced them and drop the stale
// query, so a fresh capture is required.
func (c *Controller) Back() error {
	switch c.state {
	case StatePhoto, StateManual:
		c.state = StateSelect
		c.query = ai.Query{}
		c.lastErr = ""
	case StateConfirm, StateCandidates:
		c.item = nil
		c.candidates = nil
		c.query = ai.Query{}
		c.state = c.origin
	case StateReview:
		switch {
		case c.existingID != "":
			c.state = StateSelect
			c.item = nil
			c.existingID = ""
		case c.fromCandidates:
			c.item = nil
			c.fromCandidates = false
			c.state = StateCandidates
		default:
			c.state = StateConfirm
		}
	default:
		return fmt.Errorf("%w: back in %s", ErrInvalidTransition, c.state)
	}
	return nil
}
