// Package pipeline executes the checks of one site run in sequence and runs
// independent sites concurrently.
//
// A run is a fixed list of steps: sitemap fingerprinting, status mode,
// deep-crawl mode and the configuration audit. Each step receives the
// run's model.RunReport and its outcome is recorded as a model.CheckResult.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling, timing and logging across steps
// 3. It supports cancellation via context when the run timeout expires
//
// BatchProcessor runs several sites with errgroup and a concurrency limit.
// Each run builds its own pipeline, so no crawl state crosses runs.
package pipeline
