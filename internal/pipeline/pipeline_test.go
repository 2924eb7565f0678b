// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-digest/internal/cache"
	"github.com/pdiddy/arxiv-digest/internal/relevance"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// 2024-07-10 09:00 in New York.
var fixedNow = time.Date(2024, 7, 10, 13, 0, 0, 0, time.UTC)

type fakeSource struct {
	papers []types.Paper
	err    error
	calls  []string
}

func (f *fakeSource) Fetch(_ context.Context, subject string, kind types.WindowKind) ([]types.Paper, error) {
	f.calls = append(f.calls, subject+"/"+string(kind))
	return f.papers, f.err
}

// scoreJudge scores every paper by its entry in scores; missing IDs are omitted.
type scoreJudge struct {
	scores map[string]int
	err    error
	calls  int
}

func (j *scoreJudge) Rank(_ context.Context, req relevance.Request) ([]relevance.Entry, error) {
	j.calls++
	if j.err != nil {
		return nil, j.err
	}
	var out []relevance.Entry
	for _, p := range req.Papers {
		if s, ok := j.scores[p.ID]; ok {
			out = append(out, relevance.Entry{ID: p.ID, Score: []byte(fmt.Sprint(s)), Reason: "because"})
		}
	}
	return out, nil
}

func paper(id, submitted, subjects string) types.Paper {
	return types.Paper{ID: id, Title: "T" + id, Abstract: "A" + id, Submitted: submitted, Subjects: subjects}
}

func listing() []types.Paper {
	return []types.Paper{
		paper("1", "2024-07-09", "Machine Learning (cs.LG)"),
		paper("2", "2024-06-01", "Machine Learning (cs.LG)"),
		paper("3", "2024-07-08", "Robotics (cs.RO)"),
		paper("1", "2024-07-09", "Machine Learning (cs.LG)"),
		paper("4", "2024-07-05", "Sound (cs.SD); Machine Learning (cs.LG)"),
	}
}

func newRunner(t *testing.T, src *fakeSource, judge relevance.Judge) *Runner {
	now := func() time.Time { return fixedNow }
	return &Runner{
		Source: src,
		Cache:  &cache.Store{Dir: t.TempDir(), Now: now},
		Judge:  judge,
		Now:    now,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	src := &fakeSource{papers: listing()}
	judge := &scoreJudge{scores: map[string]int{"1": 9, "4": 6}}
	r := newRunner(t, src, judge)

	res, err := r.Run(context.Background(), Options{
		Topic:          "Computer Science",
		Categories:     []string{"Machine Learning"},
		CategoryFilter: true,
		LookbackDays:   7,
		Interest:       "efficient training",
		Threshold:      7,
		BatchSize:      16,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cs/pastweek"}, src.calls)
	assert.Equal(t, types.WindowPastWeek, res.Kind)
	assert.Equal(t, "cs", res.Topic.Code)
	assert.True(t, res.Scored)
	require.Len(t, res.Papers, 1)
	assert.Equal(t, "1", res.Papers[0].ID)
	assert.Equal(t, 9, res.Papers[0].Relevance.Score)
	assert.Equal(t, 5, res.Build.Raw)
	assert.Equal(t, 2, res.Build.InCategories)
}

func TestRun_SecondRunSameDayHitsCache(t *testing.T) {
	src := &fakeSource{papers: listing()}
	r := newRunner(t, src, nil)
	opts := Options{Topic: "Computer Science", LookbackDays: 7}

	first, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Len(t, src.calls, 1)
	assert.Equal(t, first.Papers, second.Papers)
}

func TestRun_CategoryFilterOffIgnoresCategories(t *testing.T) {
	src := &fakeSource{papers: listing()}
	r := newRunner(t, src, nil)

	res, err := r.Run(context.Background(), Options{
		Topic:        "Computer Science",
		Categories:   []string{"Not A Category"},
		LookbackDays: 7,
	})
	require.NoError(t, err)
	assert.False(t, res.Scored)
	assert.Len(t, res.Papers, 3)
	for _, p := range res.Papers {
		assert.Nil(t, p.Relevance)
	}
}

func TestRun_SingleDayUsesNewListing(t *testing.T) {
	src := &fakeSource{papers: listing()}
	r := newRunner(t, src, nil)

	res, err := r.Run(context.Background(), Options{Topic: "Computer Science", LookbackDays: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"cs/new"}, src.calls)
	// The single-day listing is not window-filtered.
	assert.Len(t, res.Papers, 4)
}

func TestRun_Limit(t *testing.T) {
	src := &fakeSource{papers: listing()}
	judge := &scoreJudge{scores: map[string]int{"1": 9, "3": 9, "4": 9}}
	r := newRunner(t, src, judge)

	res, err := r.Run(context.Background(), Options{
		Topic: "Computer Science", LookbackDays: 7, Interest: "x", Threshold: 1, Limit: 2,
	})
	require.NoError(t, err)
	assert.Len(t, res.Papers, 2)
}

func TestRun_InvalidTopic(t *testing.T) {
	src := &fakeSource{}
	r := newRunner(t, src, nil)

	for _, topic := range []string{"Physics", "Alchemy"} {
		_, err := r.Run(context.Background(), Options{Topic: topic, LookbackDays: 7})
		var ite *types.InvalidTopicError
		assert.True(t, errors.As(err, &ite), topic)
	}
	assert.Empty(t, src.calls)
}

func TestRun_FetchErrorPropagates(t *testing.T) {
	src := &fakeSource{err: &types.FetchError{URL: "u", Err: errors.New("refused")}}
	r := newRunner(t, src, nil)

	_, err := r.Run(context.Background(), Options{Topic: "Computer Science", LookbackDays: 7})
	var fe *types.FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestRun_InvalidCategory(t *testing.T) {
	src := &fakeSource{papers: listing()}
	r := newRunner(t, src, nil)

	_, err := r.Run(context.Background(), Options{
		Topic: "Computer Science", Categories: []string{"Robotics", "Cooking"}, CategoryFilter: true, LookbackDays: 7,
	})
	var ice *types.InvalidCategoryError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, []string{"Cooking"}, ice.Invalid)
}

func TestRun_AllBatchesFailReportsDropped(t *testing.T) {
	src := &fakeSource{papers: listing()}
	judge := &scoreJudge{err: errors.New("overloaded")}
	r := newRunner(t, src, judge)

	res, err := r.Run(context.Background(), Options{
		Topic: "Computer Science", LookbackDays: 7, Interest: "x", Threshold: 1, BatchSize: 2,
	})
	var nre *types.NoResultsError
	require.True(t, errors.As(err, &nre))
	assert.Equal(t, "score", nre.Stage)
	assert.Equal(t, 2, nre.DroppedBatches)
	assert.True(t, res.Score.HasFailures())
}

func TestRun_InterestWithoutJudge(t *testing.T) {
	r := newRunner(t, &fakeSource{papers: listing()}, nil)
	_, err := r.Run(context.Background(), Options{Topic: "Computer Science", LookbackDays: 7, Interest: "x"})
	assert.ErrorContains(t, err, "no judge")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := types.Config{
		Topic: "Statistics", Categories: []string{"Methodology"}, CategoryFilter: true,
		LookbackDays: 3, Interest: "i", Threshold: 8, BatchSize: 4, Limit: 10,
	}
	assert.Equal(t, Options{
		Topic: "Statistics", Categories: []string{"Methodology"}, CategoryFilter: true,
		LookbackDays: 3, Interest: "i", Threshold: 8, BatchSize: 4, Limit: 10,
	}, OptionsFromConfig(cfg))
}
