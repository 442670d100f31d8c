/*
Package formflow is a questionnaire flow engine: forms are graphs of steps joined by
guarded transitions, and each respondent walks one instance of a form.

A step holds typed fields. A transition leaving a step carries a condition group over the
instance's saved answers; on submit the highest-priority transition whose guard holds wins,
while every transition whose guard holds is offered for direct navigation.

# Concept

The engine keeps no per-instance state in memory. Forms, answers and the step ledger live in
a Store (SQLite by default), and derived session state (completed and available steps) is
recomputed on every mutation and published to a versioned cache, in memory or in Redis.
Mutations of one instance are serialized by a per-instance lock, optionally shared across
processes through Redis.

# Usage

	ctx := context.Background()
	eng, err := formflow.Open(ctx, "formflow.db")
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	// Authoring: load the bundled demo survey (or Apply your own blueprint).
	form, err := authoring.NewService(eng.Store()).SeedDemo(ctx)
	if err != nil {
		log.Fatal(err)
	}

	inst, err := eng.StartInstance(ctx, form.ID, "user-1")
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.SubmitStep(ctx, inst.ID, []domain.AnswerInput{
		{FieldCode: "is_dev", Value: true},
	})
	switch {
	case errors.Is(err, domain.ErrStuck):
		// no transition applies; answers were kept
	case err != nil:
		log.Fatal(err)
	}
	fmt.Println(*res.NextStepCode, res.Available)

The same surface is served over HTTP by pkg/adapters/http and the formflow command.
*/
package formflow
