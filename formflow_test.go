package formflow_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/formflow"
	redisadapter "github.com/aretw0/formflow/pkg/adapters/redis"
	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const branching = `
forms:
  - code: branching
    title: Branching
    steps:
      - code: S1
        title: First
        type: questionnaire
        sort_order: 10
        fields:
          - {code: is_dev, title: "Developer?", data_type: boolean, input_type: checkbox}
      - {code: S2, title: Developer details, type: questionnaire, sort_order: 20, is_terminal: true}
      - {code: S3, title: Everyone else, type: review, sort_order: 30, is_terminal: true}
    routes:
      - from: S1
        to: S2
        priority: 10
        conditions:
          - {field: is_dev, op: eq, bool: true}
      - from: S1
        to: S3
        priority: 20
        conditions:
          - {field: is_dev, op: eq, bool: false}
`

type flow struct {
	engine *formflow.Engine
	form   domain.Form
	steps  map[string]int64
}

func newFlow(t *testing.T, opts ...formflow.Option) *flow {
	t.Helper()
	ctx := context.Background()
	eng, err := formflow.Open(ctx, filepath.Join(t.TempDir(), "formflow.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	bp, err := authoring.ParseBlueprint(strings.NewReader(branching))
	require.NoError(t, err)
	forms, err := authoring.NewService(eng.Store()).Apply(ctx, bp)
	require.NoError(t, err)

	steps, err := eng.Store().ListSteps(ctx, forms[0].ID)
	require.NoError(t, err)
	f := &flow{engine: eng, form: forms[0], steps: map[string]int64{}}
	for _, s := range steps {
		f.steps[s.Code] = s.ID
	}
	return f
}

func TestScenarioA_FirstTrueWins(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()

	inst, err := f.engine.StartInstance(ctx, f.form.ID, "alice")
	require.NoError(t, err)
	require.NoError(t, f.engine.SaveAnswers(ctx, inst.ID, f.steps["S1"], []domain.AnswerInput{{FieldCode: "is_dev", Value: true}}))

	next, ok, err := f.engine.DetermineNextStep(ctx, inst.ID, f.steps["S1"])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.steps["S2"], next)

	forward, err := f.engine.ResolveForwardSteps(ctx, inst.ID, f.steps["S1"])
	require.NoError(t, err)
	assert.Equal(t, []int64{f.steps["S2"]}, forward)
}

func TestScenarioB_NoAnswerNoRoute(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()

	inst, err := f.engine.StartInstance(ctx, f.form.ID, "bob")
	require.NoError(t, err)

	forward, err := f.engine.ResolveForwardSteps(ctx, inst.ID, f.steps["S1"])
	require.NoError(t, err)
	assert.Empty(t, forward)

	_, ok, err := f.engine.DetermineNextStep(ctx, inst.ID, f.steps["S1"])
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.engine.SubmitStep(ctx, inst.ID, nil)
	assert.ErrorIs(t, err, domain.ErrStuck)
}

func TestScenarioC_TerminalCompletes(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()

	inst, err := f.engine.StartInstance(ctx, f.form.ID, "carol")
	require.NoError(t, err)

	res, err := f.engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{{FieldCode: "is_dev", Value: "false"}})
	require.NoError(t, err)
	require.NotNil(t, res.NextStepCode)
	assert.Equal(t, "S3", *res.NextStepCode)

	res, err = f.engine.SubmitStep(ctx, inst.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.IsComplete)
	assert.Nil(t, res.CurrentStepCode)

	stored, err := f.engine.Store().GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceCompleted, stored.Status)
	assert.Nil(t, stored.CurrentStepID)

	state, err := f.engine.State(ctx, inst.ID)
	require.NoError(t, err)
	assert.Nil(t, state.CurrentStepID)

	nav, err := f.engine.ComputeNavigation(ctx, inst.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S3"}, nav.Completed)
	assert.Equal(t, nav.Completed, nav.Available, "nothing beyond the completed steps")
	assert.Nil(t, nav.CurrentStepCode)
}

func TestScenarioD_NavigationGuard(t *testing.T) {
	f := newFlow(t)
	ctx := context.Background()

	inst, err := f.engine.StartInstance(ctx, f.form.ID, "dave")
	require.NoError(t, err)
	require.NoError(t, f.engine.SaveAnswers(ctx, inst.ID, f.steps["S1"], []domain.AnswerInput{{FieldCode: "is_dev", Value: true}}))

	current := f.steps["S1"]
	ok, err := f.engine.ValidateNavigation(ctx, inst.ID, &current, f.steps["S2"])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.ValidateNavigation(ctx, inst.ID, &current, f.steps["S3"])
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.engine.OpenStep(ctx, "branching", inst.ID, "S3")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	view, err := f.engine.OpenStep(ctx, "branching", inst.ID, "S2")
	require.NoError(t, err)
	assert.Equal(t, "S2", view.StepCode)
}

func TestEngine_Hooks(t *testing.T) {
	var (
		mu     sync.Mutex
		events []domain.EventType
	)
	record := func(t domain.EventType) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, t)
	}
	hooks := domain.LifecycleHooks{
		OnInstanceStart:    func(_ context.Context, e *domain.InstanceEvent) { record(e.Type) },
		OnStepEnter:        func(_ context.Context, e *domain.StepEvent) { record(e.Type) },
		OnStepLeave:        func(_ context.Context, e *domain.StepEvent) { record(e.Type) },
		OnInstanceComplete: func(_ context.Context, e *domain.InstanceEvent) { record(e.Type) },
	}

	f := newFlow(t, formflow.WithLifecycleHooks(hooks))
	ctx := context.Background()
	inst, err := f.engine.StartInstance(ctx, f.form.ID, "erin")
	require.NoError(t, err)
	_, err = f.engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{{FieldCode: "is_dev", Value: true}})
	require.NoError(t, err)
	_, err = f.engine.SubmitStep(ctx, inst.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventInstanceStart,
		domain.EventStepEnter,
		domain.EventStepLeave,
		domain.EventStepEnter,
		domain.EventStepLeave,
		domain.EventInstanceComplete,
	}, events)
}

func TestEngine_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisadapter.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })
	locker := redisadapter.NewLocker(cache.Client(), redisadapter.DefaultPrefix)

	f := newFlow(t, formflow.WithSessionCache(cache), formflow.WithLocker(locker, 0))
	ctx := context.Background()

	inst, err := f.engine.StartInstance(ctx, f.form.ID, "frank")
	require.NoError(t, err)

	ids, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{inst.ID}, ids)

	_, err = f.engine.SubmitStep(ctx, inst.ID, []domain.AnswerInput{{FieldCode: "is_dev", Value: true}})
	require.NoError(t, err)

	cached, err := cache.Get(ctx, inst.ID)
	require.NoError(t, err)
	require.NotNil(t, cached.Navigation.CurrentStepCode)
	assert.Equal(t, "S2", *cached.Navigation.CurrentStepCode)
	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "lock:", "locks are released")
	}
}

func TestEngine_WithoutCache(t *testing.T) {
	f := newFlow(t, formflow.WithSessionCache(nil))
	ctx := context.Background()

	inst, err := f.engine.StartInstance(ctx, f.form.ID, "gina")
	require.NoError(t, err)
	view, err := f.engine.CurrentStep(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "S1", view.StepCode)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(formflow.Version))
}
