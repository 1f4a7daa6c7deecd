package identify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robeeeeeet/bottle-keep/internal/ai"
)

type scriptedAnalyzer struct {
	results []*ai.Result
	errs    []error
	queries []ai.Query
}

func (s *scriptedAnalyzer) Analyze(_ context.Context, q ai.Query) (*ai.Result, error) {
	s.queries = append(s.queries, q)
	i := len(s.queries) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.results[i], nil
}

type recordingSaver struct {
	calls  int
	item   ai.AlcoholInfo
	id     string
	review Review
	err    error
}

func (s *recordingSaver) Save(_ context.Context, item ai.AlcoholInfo, existingID string, review Review) error {
	s.calls++
	s.item = item
	s.id = existingID
	s.review = review
	return s.err
}

func info(name string) ai.AlcoholInfo { return ai.AlcoholInfo{Name: name, Type: "日本酒"} }

func unique(name string) *ai.Result {
	i := info(name)
	return &ai.Result{Unique: true, Result: &i}
}

func candidates(names ...string) *ai.Result {
	r := &ai.Result{}
	for _, n := range names {
		r.Candidates = append(r.Candidates, info(n))
	}
	return r
}

func TestPhotoFlowConfidentMatch(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{unique("獺祭")}}
	c := New(an, &recordingSaver{})

	require.NoError(t, c.StartPhoto())
	assert.Equal(t, StatePhoto, c.State())

	require.NoError(t, c.SubmitPhoto(context.Background(), "https://x/photo.jpg", ""))
	assert.Equal(t, StateConfirm, c.State())
	require.NotNil(t, c.Item())
	assert.Equal(t, "獺祭", c.Item().Name)
	assert.Equal(t, "https://x/photo.jpg", an.queries[0].ImageURL)
}

func TestManualFlowAmbiguousMatch(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{candidates("獺祭 純米大吟醸45", "獺祭 磨き二割三分")}}
	c := New(an, &recordingSaver{})

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "獺祭", "日本酒"))
	assert.Equal(t, StateCandidates, c.State())
	assert.Nil(t, c.Item())
	assert.Len(t, c.Candidates(), 2)
	assert.Equal(t, "獺祭", an.queries[0].Text)
	assert.Equal(t, "日本酒", an.queries[0].Type)
}

func TestAnalyzeFailureReturnsToInputStep(t *testing.T) {
	an := &scriptedAnalyzer{errs: []error{errors.New("model unavailable")}}
	c := New(an, &recordingSaver{})

	require.NoError(t, c.StartManual())
	err := c.SubmitText(context.Background(), "獺祭", "")
	require.Error(t, err)
	assert.Equal(t, StateManual, c.State())
	assert.Equal(t, "model unavailable", c.LastError())

	// the step stays usable for a retry.
	an.errs = nil
	an.results = []*ai.Result{nil, unique("獺祭")}
	require.NoError(t, c.SubmitText(context.Background(), "獺祭", ""))
	assert.Equal(t, StateConfirm, c.State())
}

func TestRejectAsksForAlternatives(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{
		unique("獺祭"),
		candidates("獺祭 磨き二割三分", "獺祭 純米大吟醸45"),
	}}
	c := New(an, &recordingSaver{})

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "獺祭", ""))
	require.NoError(t, c.Reject(context.Background()))

	assert.Equal(t, StateCandidates, c.State())
	assert.Equal(t, "獺祭", an.queries[1].RejectedName, "re-query carries the turned-down name")
	assert.Equal(t, "獺祭", an.queries[1].Text, "original query is preserved")

	names := candidateNames(c)
	assert.Contains(t, names, "獺祭", "rejected item stays selectable")
	assert.Contains(t, names, "獺祭 磨き二割三分")
}

func TestRejectWithUniqueRequeryStillShowsChoices(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{unique("X"), unique("Y")}}
	c := New(an, &recordingSaver{})

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "x", ""))
	require.NoError(t, c.Reject(context.Background()))

	assert.Equal(t, StateCandidates, c.State())
	assert.ElementsMatch(t, []string{"Y", "X"}, candidateNames(c))
}

func TestRejectDoesNotDuplicateRejectedItem(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{unique("X"), candidates("Y", "X")}}
	c := New(an, &recordingSaver{})

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "x", ""))
	require.NoError(t, c.Reject(context.Background()))

	assert.Equal(t, []string{"Y", "X"}, candidateNames(c))
}

func TestRejectKeepsRejectedWithinCap(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{
		unique("X"),
		candidates("A", "B", "C", "D", "E"),
	}}
	c := New(an, &recordingSaver{})

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "x", ""))
	require.NoError(t, c.Reject(context.Background()))

	names := candidateNames(c)
	assert.Len(t, names, ai.MaxCandidates)
	assert.Contains(t, names, "X")
}

func TestRejectFailureStaysOnConfirm(t *testing.T) {
	an := &scriptedAnalyzer{
		results: []*ai.Result{unique("X"), nil},
		errs:    []error{nil, errors.New("timeout")},
	}
	c := New(an, &recordingSaver{})

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "x", ""))
	require.Error(t, c.Reject(context.Background()))

	assert.Equal(t, StateConfirm, c.State())
	require.NotNil(t, c.Item())
	assert.Equal(t, "X", c.Item().Name)
	assert.Equal(t, "timeout", c.LastError())
}

func TestConfirmThenSave(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{unique("獺祭")}}
	sv := &recordingSaver{}
	c := New(an, sv)

	require.NoError(t, c.StartPhoto())
	require.NoError(t, c.SubmitPhoto(context.Background(), "", "base64data"))
	require.NoError(t, c.Confirm())
	assert.Equal(t, StateReview, c.State())

	memo := "最高"
	require.NoError(t, c.Save(context.Background(), Review{Rating: 5, Memo: &memo}))
	assert.Equal(t, StateSaved, c.State())
	assert.Equal(t, 1, sv.calls)
	assert.Equal(t, "獺祭", sv.item.Name)
	assert.Empty(t, sv.id)
	assert.Equal(t, 5, sv.review.Rating)
}

func TestSaveRejectsMissingRating(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{unique("X")}}
	sv := &recordingSaver{}
	c := New(an, sv)

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "x", ""))
	require.NoError(t, c.Confirm())

	for _, rating := range []int{0, -1, 6} {
		err := c.Save(context.Background(), Review{Rating: rating})
		require.Error(t, err, "rating %d", rating)
	}
	assert.Zero(t, sv.calls, "saver must not run without a valid rating")
	assert.Equal(t, StateReview, c.State())
}

func TestSaveFailureStaysInReview(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{unique("X")}}
	sv := &recordingSaver{err: errors.New("db down")}
	c := New(an, sv)

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "x", ""))
	require.NoError(t, c.Confirm())

	require.Error(t, c.Save(context.Background(), Review{Rating: 3}))
	assert.Equal(t, StateReview, c.State())

	sv.err = nil
	require.NoError(t, c.Save(context.Background(), Review{Rating: 3}))
	assert.Equal(t, StateSaved, c.State())
	assert.Equal(t, 2, sv.calls)
}

func TestSelectCandidateGoesToReview(t *testing.T) {
	an := &scriptedAnalyzer{results: []*ai.Result{candidates("A", "B")}}
	sv := &recordingSaver{}
	c := New(an, sv)

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "a", ""))

	assert.ErrorIs(t, c.SelectCandidate(5), ErrNoCandidate)
	assert.ErrorIs(t, c.SelectCandidate(-1), ErrNoCandidate)

	require.NoError(t, c.SelectCandidate(1))
	assert.Equal(t, StateReview, c.State())
	assert.Equal(t, "B", c.Item().Name)

	require.NoError(t, c.Save(context.Background(), Review{Rating: 4}))
	assert.Equal(t, "B", sv.item.Name)
}

func TestReviewExistingBottle(t *testing.T) {
	sv := &recordingSaver{}
	c := New(&scriptedAnalyzer{}, sv)

	c.StartReviewExisting("alc-1", info("友達の酒"))
	assert.Equal(t, StateReview, c.State())

	require.NoError(t, c.Save(context.Background(), Review{Rating: 4}))
	assert.Equal(t, "alc-1", sv.id, "existing catalog id is passed through")
}

func TestBackNavigation(t *testing.T) {
	t.Run("input step back to selection", func(t *testing.T) {
		c := New(&scriptedAnalyzer{}, &recordingSaver{})
		require.NoError(t, c.StartPhoto())
		require.NoError(t, c.Back())
		assert.Equal(t, StateSelect, c.State())
	})

	t.Run("confirm back to originating input step", func(t *testing.T) {
		an := &scriptedAnalyzer{results: []*ai.Result{unique("X"), unique("X")}}
		c := New(an, &recordingSaver{})
		require.NoError(t, c.StartManual())
		require.NoError(t, c.SubmitText(context.Background(), "x", ""))
		require.NoError(t, c.Back())
		assert.Equal(t, StateManual, c.State())
		assert.Nil(t, c.Item())
	})

	t.Run("candidates back to originating input step", func(t *testing.T) {
		an := &scriptedAnalyzer{results: []*ai.Result{candidates("A")}}
		c := New(an, &recordingSaver{})
		require.NoError(t, c.StartPhoto())
		require.NoError(t, c.SubmitPhoto(context.Background(), "", "img"))
		require.NoError(t, c.Back())
		assert.Equal(t, StatePhoto, c.State())
	})

	t.Run("review back to confirm after confident match", func(t *testing.T) {
		an := &scriptedAnalyzer{results: []*ai.Result{unique("X")}}
		c := New(an, &recordingSaver{})
		require.NoError(t, c.StartManual())
		require.NoError(t, c.SubmitText(context.Background(), "x", ""))
		require.NoError(t, c.Confirm())
		require.NoError(t, c.Back())
		assert.Equal(t, StateConfirm, c.State())
	})

	t.Run("review back to candidates after a pick", func(t *testing.T) {
		an := &scriptedAnalyzer{results: []*ai.Result{candidates("A", "B")}}
		c := New(an, &recordingSaver{})
		require.NoError(t, c.StartManual())
		require.NoError(t, c.SubmitText(context.Background(), "a", ""))
		require.NoError(t, c.SelectCandidate(0))
		require.NoError(t, c.Back())
		assert.Equal(t, StateCandidates, c.State())
		assert.Len(t, c.Candidates(), 2)
	})

	t.Run("review of an existing bottle backs out to selection", func(t *testing.T) {
		c := New(&scriptedAnalyzer{}, &recordingSaver{})
		c.StartReviewExisting("alc-1", info("X"))
		require.NoError(t, c.Back())
		assert.Equal(t, StateSelect, c.State())
	})
}

func TestInvalidTransitions(t *testing.T) {
	c := New(&scriptedAnalyzer{}, &recordingSaver{})

	assert.ErrorIs(t, c.Confirm(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Reject(context.Background()), ErrInvalidTransition)
	assert.ErrorIs(t, c.SelectCandidate(0), ErrInvalidTransition)
	assert.ErrorIs(t, c.Save(context.Background(), Review{Rating: 5}), ErrInvalidTransition)
	assert.ErrorIs(t, c.SubmitPhoto(context.Background(), "u", ""), ErrInvalidTransition)
	assert.ErrorIs(t, c.SubmitText(context.Background(), "x", ""), ErrInvalidTransition)
	assert.ErrorIs(t, c.Back(), ErrInvalidTransition)

	require.NoError(t, c.StartPhoto())
	assert.ErrorIs(t, c.StartManual(), ErrInvalidTransition)
}

func candidateNames(c *Controller) []string {
	var names []string
	for _, cand := range c.Candidates() {
		names = append(names, cand.Name)
	}
	return names
}
