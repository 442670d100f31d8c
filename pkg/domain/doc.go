/*
Package domain contains the core models of the formflow engine.

It describes the authored questionnaire graph (Forms, Steps, Fields, Transitions guarded by
ConditionGroups) and the runtime records of one user's walk through it (Instances, the step
ledger, Answers). The package is kept free of I/O; storage and transport live behind the
interfaces in package ports.

# Key Entities

  - Form / Step / Field: the authored graph and its typed data slots.
  - Transition / ConditionGroup / Condition: guarded, prioritised edges between Steps.
  - Value: a tagged union holding exactly one typed answer or operand.
  - Instance / StepVisit / Answer: the runtime state of a single run.
  - Navigation / SessionState: the derived breadcrumb served to user interfaces.
*/
package domain
