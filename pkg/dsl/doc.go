/*
Package dsl provides a Go DSL for programmatically constructing form blueprints.

It is an alternative to YAML blueprints when forms are generated in code or assembled in
tests. The builder produces an authoring.Blueprint, so the result goes through the same
validation as any other authoring request.

Example usage:

	b := dsl.New("onboarding", "Onboarding")

	b.Add("profile").
		Title("Profile").
		Field("is_dev", domain.DataBoolean, domain.InputCheckbox).Required()

	b.Add("stack").
		Field("lang", domain.DataString, domain.InputSelect).Options("go", "Go", "py", "Python")

	b.Add("done").Type(domain.StepReview).Terminal()

	b.Route("profile", "stack").Priority(10).When("is_dev", domain.OpIsTrue, nil)
	b.Route("profile", "done").Priority(20).When("is_dev", domain.OpIsFalse, nil)
	b.Route("stack", "done").WhenOption("lang", domain.OpNe, "cobol")

	forms, err := authoring.NewService(store).Apply(ctx, b.Build())
*/
package dsl
