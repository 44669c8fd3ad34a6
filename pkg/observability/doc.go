/*
Package observability provides tools for monitoring the cubeflow engine.

It turns engine lifecycle hooks into Prometheus metrics and structured log
records, so any frontend can attach them to a run with one option.
*/
package observability
