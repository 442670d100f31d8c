package dsl_test

import (
	"context"
	"testing"

	"github.com/aretw0/formflow/internal/testutils"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onboarding() *dsl.Builder {
	b := dsl.New("onboarding", "Onboarding").Describe("built in Go")

	b.Add("profile").
		Title("Profile").
		Order(10).
		Field("is_dev", domain.DataBoolean, domain.InputCheckbox).Title("Developer?").Required()

	stack := b.Add("stack").Order(20)
	stack.Field("lang", domain.DataString, domain.InputSelect).Options("go", "Go", "py", "Python")
	stack.Field("country", domain.DataString, domain.InputSelect).From("countries")
	stack.Field("years", domain.DataInteger, domain.InputText)

	b.Add("done").Type(domain.StepReview).Order(30).Terminal()

	b.Route("profile", "stack").Priority(10).Scenario("developer").When("is_dev", domain.OpIsTrue, nil)
	b.Route("profile", "done").Priority(20).When("is_dev", domain.OpEq, false)
	b.Route("stack", "done").Any().
		WhenOption("lang", domain.OpEq, "go").
		When("years", domain.OpGte, 5).
		When("lang", domain.OpIn, []string{"py"}).
		WhenField("country", domain.OpNe, "lang")
	return b
}

func TestBuilder_Form(t *testing.T) {
	b := onboarding()

	// Add returns the existing step.
	assert.Same(t, b.Add("profile"), b.Add("profile"))

	fb := b.Form()
	assert.Equal(t, "onboarding", fb.Code)
	assert.Equal(t, "built in Go", fb.Description)
	require.Len(t, fb.Steps, 3)
	assert.Equal(t, []string{"profile", "stack", "done"},
		[]string{fb.Steps[0].Code, fb.Steps[1].Code, fb.Steps[2].Code})
	assert.Equal(t, "Developer?", fb.Steps[0].Fields[0].Title)
	assert.True(t, fb.Steps[0].Fields[0].IsRequired)
	assert.Equal(t, "stack", fb.Steps[1].Title, "title defaults to code")
	assert.Len(t, fb.Steps[1].Fields[0].Options, 2)
	assert.Equal(t, "countries", *fb.Steps[1].Fields[1].DictionaryCode)
	assert.Equal(t, string(domain.StepReview), fb.Steps[2].StepTypeCode)
	assert.True(t, fb.Steps[2].IsTerminal)

	require.Len(t, fb.Routes, 3)
	assert.Equal(t, "developer", fb.Routes[0].ScenarioDescription)
	assert.Nil(t, fb.Routes[0].Conditions[0].ValueBool)
	assert.False(t, *fb.Routes[1].Conditions[0].ValueBool)

	last := fb.Routes[2]
	assert.Equal(t, "OR", last.LogicOp)
	require.Len(t, last.Conditions, 4)
	assert.Equal(t, "go", *last.Conditions[0].OptionCode)
	assert.Equal(t, 5.0, *last.Conditions[1].ValueNum)
	assert.Equal(t, []string{"py"}, last.Conditions[2].ValueList)
	assert.Equal(t, "lang", *last.Conditions[3].RHSFieldCode)

	assert.Panics(t, func() { b.Route("a", "b").When("x", domain.OpEq, struct{}{}) })
}

func TestBuilder_Apply(t *testing.T) {
	store := testutils.SetupStore(t)
	ctx := context.Background()

	bp := onboarding().Start("profile").Build(dsl.Dictionary("countries", "Countries", "br", "Brazil", "pt", "Portugal"))
	form := testutils.ApplyBlueprint(t, store, bp)

	profile, err := store.GetStepByCode(ctx, form.ID, "profile")
	require.NoError(t, err)
	require.NotNil(t, form.StartStepID)
	assert.Equal(t, profile.ID, *form.StartStepID)

	routes, err := store.ListFormTransitions(ctx, form.ID)
	require.NoError(t, err)
	assert.Len(t, routes, 3)

	dict, err := store.GetDictionaryByCode(ctx, "countries")
	require.NoError(t, err)
	assert.Len(t, dict.Values, 2)
}

func TestBuilder_Inactive(t *testing.T) {
	fb := dsl.New("off", "Off").Inactive().Form()
	require.NotNil(t, fb.IsActive)
	assert.False(t, *fb.IsActive)
	assert.Empty(t, fb.Steps)
}
