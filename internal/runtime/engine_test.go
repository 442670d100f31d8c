package runtime_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/adapters/sqlite"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// survey is intro -> dev (is_dev = true) | review (is_dev = false); dev -> review once fav_lang is set.
type survey struct {
	store  *sqlite.Store
	form   *domain.Form
	intro  *domain.Step
	dev    *domain.Step
	review *domain.Step
}

func newSurvey(t *testing.T) *survey {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "engine.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	sv := &survey{store: store}
	sv.form = &domain.Form{Code: "survey", Title: "Survey", IsActive: true}
	require.NoError(t, store.CreateForm(ctx, sv.form))

	step := func(code string, order int, terminal bool) *domain.Step {
		st := &domain.Step{FormID: sv.form.ID, Code: code, Title: code, Type: domain.StepQuestionnaire,
			SortOrder: order, IsTerminal: terminal}
		require.NoError(t, store.CreateStep(ctx, st))
		return st
	}
	sv.intro = step("intro", 10, false)
	sv.dev = step("dev", 20, false)
	sv.review = step("review", 30, true)
	require.NoError(t, store.SetStartStep(ctx, sv.form.ID, &sv.intro.ID))

	field := func(st *domain.Step, code string, dt domain.DataType, it domain.InputType, opts ...domain.Option) *domain.Field {
		f := &domain.Field{StepID: st.ID, Code: code, Title: code, DataType: dt, InputType: it, Options: opts}
		require.NoError(t, store.CreateField(ctx, f))
		return f
	}
	isDev := field(sv.intro, "is_dev", domain.DataBoolean, domain.InputCheckbox)
	lang := field(sv.intro, "fav_lang", domain.DataString, domain.InputSelect,
		domain.Option{Code: "go", Label: "Go"}, domain.Option{Code: "py", Label: "Python"})
	field(sv.dev, "dev_years", domain.DataInteger, domain.InputText)

	route := func(from, to *domain.Step, priority int, c domain.Condition) {
		tr := &domain.Transition{FormID: sv.form.ID, SourceStepID: from.ID, TargetStepID: to.ID, Priority: priority,
			Guard: domain.ConditionGroup{Conditions: []domain.Condition{c}}}
		require.NoError(t, store.CreateTransition(ctx, tr))
	}
	route(sv.intro, sv.dev, 10, domain.Condition{FieldID: isDev.ID, Operator: domain.OpEq, Operand: domain.LiteralOperand(domain.Bool(true))})
	route(sv.intro, sv.review, 20, domain.Condition{FieldID: isDev.ID, Operator: domain.OpEq, Operand: domain.LiteralOperand(domain.Bool(false))})
	route(sv.dev, sv.review, 100, domain.Condition{FieldID: lang.ID, Operator: domain.OpNotEmpty})
	return sv
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInstanceStart:    func(_ context.Context, e *domain.InstanceEvent) { r.add("start:" + e.StepCode) },
		OnStepEnter:        func(_ context.Context, e *domain.StepEvent) { r.add("enter:" + e.StepCode) },
		OnStepLeave:        func(_ context.Context, e *domain.StepEvent) { r.add("leave:" + e.StepCode) },
		OnInstanceComplete: func(_ context.Context, e *domain.InstanceEvent) { r.add("complete:" + e.StepCode) },
		OnInstanceStuck:    func(_ context.Context, e *domain.InstanceEvent) { r.add("stuck:" + e.StepCode) },
		OnNavigationDenied: func(_ context.Context, e *domain.StepEvent) { r.add("denied:" + e.StepCode) },
	}
}

func answer(code string, v any) domain.AnswerInput {
	return domain.AnswerInput{FieldCode: code, Value: v}
}

func TestEngine_ScenarioA_PriorityWins(t *testing.T) {
	sv := newSurvey(t)
	engine := runtime.NewEngine(sv.store)
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)
	require.NoError(t, engine.SaveAnswers(ctx, inst.ID, sv.intro.ID, []domain.AnswerInput{answer("is_dev", true)}))

	next, ok, err := engine.DetermineNextStep(ctx, inst.ID, sv.intro.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sv.dev.ID, next)

	forward, err := engine.ResolveForwardSteps(ctx, inst.ID, sv.intro.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{sv.dev.ID}, forward)
}

func TestEngine_ScenarioB_NoAnswer(t *testing.T) {
	sv := newSurvey(t)
	engine := runtime.NewEngine(sv.store)
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)

	forward, err := engine.ResolveForwardSteps(ctx, inst.ID, sv.intro.ID)
	require.NoError(t, err)
	assert.Empty(t, forward)

	_, ok, err := engine.DetermineNextStep(ctx, inst.ID, sv.intro.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_ScenarioC_CompleteOnTerminal(t *testing.T) {
	sv := newSurvey(t)
	rec := &recorder{}
	engine := runtime.NewEngine(sv.store, runtime.WithLifecycleHooks(rec.hooks()))
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)

	res, err := engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{answer("is_dev", true), answer("fav_lang", "go")})
	require.NoError(t, err)
	require.NotNil(t, res.NextStepCode)
	assert.Equal(t, "dev", *res.NextStepCode)
	assert.False(t, res.IsComplete)
	assert.Equal(t, []string{"intro"}, res.Completed)
	assert.Equal(t, []string{"intro", "dev", "review"}, res.Available)

	res, err = engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{answer("dev_years", "4")})
	require.NoError(t, err)
	assert.Equal(t, "review", *res.NextStepCode)

	res, err = engine.SubmitStep(ctx, inst.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.IsComplete)
	assert.Nil(t, res.NextStepID)

	got, err := sv.store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceCompleted, got.Status)
	assert.Nil(t, got.CurrentStepID)

	nav, err := engine.ComputeNavigation(ctx, inst.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", "dev", "review"}, nav.Completed)
	assert.Equal(t, []string{"intro", "dev", "review"}, nav.Available)
	assert.Nil(t, nav.CurrentStepCode)

	assert.Equal(t, []string{
		"start:intro", "enter:intro",
		"leave:intro", "enter:dev",
		"leave:dev", "enter:review",
		"leave:review", "complete:review",
	}, rec.events)

	_, err = engine.SubmitStep(ctx, inst.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_ScenarioD_NavigationGuard(t *testing.T) {
	sv := newSurvey(t)
	rec := &recorder{}
	engine := runtime.NewEngine(sv.store, runtime.WithLifecycleHooks(rec.hooks()))
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)
	require.NoError(t, engine.SaveAnswers(ctx, inst.ID, sv.intro.ID, []domain.AnswerInput{answer("is_dev", true)}))

	current := &sv.intro.ID
	for _, tc := range []struct {
		target int64
		want   bool
	}{
		{sv.intro.ID, true},
		{sv.dev.ID, true},
		{sv.review.ID, false},
	} {
		ok, err := engine.ValidateNavigation(ctx, inst.ID, current, tc.target)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "target %d", tc.target)
	}

	_, err = engine.OpenStep(ctx, "survey", inst.ID, "review")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Contains(t, rec.events, "denied:review")

	view, err := engine.OpenStep(ctx, "survey", inst.ID, "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", view.StepCode)
	require.NotNil(t, view.CurrentStepCode)
	assert.Equal(t, "intro", *view.CurrentStepCode)
}

func TestEngine_Stuck(t *testing.T) {
	sv := newSurvey(t)
	rec := &recorder{}
	engine := runtime.NewEngine(sv.store, runtime.WithLifecycleHooks(rec.hooks()))
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)
	_, err = engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{answer("is_dev", true)})
	require.NoError(t, err)

	before, err := sv.store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)

	// fav_lang was never answered, so dev has no eligible transition.
	_, err = engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{answer("dev_years", 3)})
	assert.ErrorIs(t, err, domain.ErrStuck)
	assert.Equal(t, domain.KindStuck, domain.KindOf(err))
	assert.Contains(t, rec.events, "stuck:dev")

	after, err := sv.store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceInProgress, after.Status)
	assert.Equal(t, sv.dev.ID, *after.CurrentStepID)
	assert.Greater(t, after.Version, before.Version)

	view, err := engine.CurrentStep(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, view.Values["dev_years"].Equal(domain.Number(3)), "answers survive a stuck submit")
}

func TestEngine_StartInstance(t *testing.T) {
	sv := newSurvey(t)
	rec := &recorder{}
	engine := runtime.NewEngine(sv.store, runtime.WithLifecycleHooks(rec.hooks()))
	ctx := context.Background()

	first, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)
	again, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, []string{"start:intro", "enter:intro"}, rec.events)

	other, err := engine.StartInstance(ctx, sv.form.ID, "u2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	_, err = engine.StartInstance(ctx, sv.form.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = engine.StartInstance(ctx, 999, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_StartInstance_Concurrent(t *testing.T) {
	sv := newSurvey(t)
	engine := runtime.NewEngine(sv.store)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[int64]struct{}{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := engine.StartInstance(ctx, sv.form.ID, "same-user")
			if assert.NoError(t, err) {
				mu.Lock()
				ids[inst.ID] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 1)
}

func TestEngine_SaveAnswers_DropsUnknownFields(t *testing.T) {
	sv := newSurvey(t)
	engine := runtime.NewEngine(sv.store)
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)

	err = engine.SaveAnswers(ctx, inst.ID, sv.intro.ID, []domain.AnswerInput{
		answer("is_dev", "false"),
		answer("dev_years", 3), // belongs to another step
		answer("nonsense", "x"),
	})
	require.NoError(t, err)

	snap, err := sv.store.Snapshot(ctx, inst.ID)
	require.NoError(t, err)
	assert.Len(t, snap, 1)

	next, ok, err := engine.DetermineNextStep(ctx, inst.ID, sv.intro.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sv.review.ID, next)
}

func TestEngine_SaveAnswers_NonFiniteNumbersAreNull(t *testing.T) {
	sv := newSurvey(t)
	engine := runtime.NewEngine(sv.store)
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)
	_, err = engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{answer("is_dev", true)})
	require.NoError(t, err)

	for _, raw := range []any{"NaN", "Inf", "-Infinity", json.Number("NaN")} {
		require.NoError(t, engine.SaveAnswers(ctx, inst.ID, sv.dev.ID, []domain.AnswerInput{answer("dev_years", raw)}))

		view, err := engine.StepView(ctx, inst.ID, sv.dev.ID)
		require.NoError(t, err)
		assert.True(t, view.Values["dev_years"].IsNull(), "%v", raw)

		_, err = json.Marshal(view)
		assert.NoError(t, err, "%v", raw)
	}
}

func TestEngine_TerminalStepIgnoresRoutes(t *testing.T) {
	sv := newSurvey(t)
	engine := runtime.NewEngine(sv.store)
	ctx := context.Background()

	// An empty guard always holds, so only the terminal check can keep it out.
	require.NoError(t, sv.store.CreateTransition(ctx, &domain.Transition{
		FormID: sv.form.ID, SourceStepID: sv.review.ID, TargetStepID: sv.intro.ID, Priority: 1,
	}))

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)

	steps, err := engine.ResolveForwardSteps(ctx, inst.ID, sv.review.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)

	_, ok, err := engine.DetermineNextStep(ctx, inst.ID, sv.review.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	steps, err = engine.ResolveForwardSteps(ctx, inst.ID, sv.intro.ID)
	require.NoError(t, err)
	assert.Empty(t, steps, "no answers yet, so intro's guarded routes stay closed")
}

func TestEngine_UpdateStep(t *testing.T) {
	sv := newSurvey(t)
	engine := runtime.NewEngine(sv.store)
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)
	_, err = engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{answer("is_dev", true)})
	require.NoError(t, err)

	// Going back to a completed step to fill in fav_lang unblocks dev.
	view, err := engine.UpdateStep(ctx, "survey", inst.ID, "intro", []domain.AnswerInput{answer("fav_lang", "py")})
	require.NoError(t, err)
	assert.Equal(t, "intro", view.StepCode)
	assert.True(t, view.Values["fav_lang"].Equal(domain.Choice("py")))
	assert.Equal(t, []string{"intro", "dev", "review"}, view.Available)

	got, err := sv.store.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, sv.dev.ID, *got.CurrentStepID, "update never advances")

	_, err = engine.UpdateStep(ctx, "survey", inst.ID, "review", nil)
	assert.NoError(t, err, "review is now in the forward set of dev")

	_, err = engine.UpdateStep(ctx, "other", inst.ID, "intro", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_StateCache(t *testing.T) {
	sv := newSurvey(t)
	cache := memory.NewCache()
	engine := runtime.NewEngine(sv.store, runtime.WithSessionManager(session.NewManager(cache)))
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)

	cached, err := cache.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.Version, cached.Version)
	assert.Equal(t, "survey", cached.FormCode)

	require.NoError(t, engine.SaveAnswers(ctx, inst.ID, sv.intro.ID, []domain.AnswerInput{answer("is_dev", true)}))

	state, err := engine.State(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.Version+1, state.Version)
	assert.Equal(t, []string{"intro", "dev"}, state.Navigation.Available)

	// A stale entry is never served.
	require.NoError(t, cache.Delete(ctx, inst.ID))
	_, _ = cache.Put(ctx, &domain.SessionState{InstanceID: inst.ID, Version: inst.Version})
	state, err = engine.State(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro", "dev"}, state.Navigation.Available)
}

func TestEngine_StepView(t *testing.T) {
	sv := newSurvey(t)
	engine := runtime.NewEngine(sv.store)
	ctx := context.Background()

	inst, err := engine.StartInstance(ctx, sv.form.ID, "u1")
	require.NoError(t, err)

	view, err := engine.StepView(ctx, inst.ID, sv.intro.ID)
	require.NoError(t, err)
	require.Len(t, view.Fields, 2)
	assert.Equal(t, "is_dev", view.Fields[0].Code)
	assert.Len(t, view.Fields[1].Options, 2)
	assert.Empty(t, view.Values)

	_, err = engine.StepView(ctx, inst.ID, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
