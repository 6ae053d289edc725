// Package pipeline runs lanes through a sequence of steps.
//
// A Pipeline executes Steps in order against one model.LaneResult. Each step
// fills in part of the result (the fetched payload, the written payload path,
// the derived report path) and a failing step is recorded on the lane as its
// failed stage.
//
// The Driver builds two pipelines per run:
//
//	acquisition: fetch -> write   (stops at the first failing step)
//	processing:  process          (reads the payload back from disk)
//
// All lanes pass through acquisition before any lane is processed. Lanes are
// independent: a failure in one lane is logged and recorded, and the run
// continues with the next lane. Driver.Run always returns a complete
// model.RunReport rather than an aggregate error.
package pipeline
