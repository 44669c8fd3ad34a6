/*
Package runtime contains the workflow engine.

The engine starts every run at the orchestration stage, executes one stage at a
time, merges the returned update into the run state and follows the routing table
until the run reaches the end. Observers receive stage and tool events through
domain.LifecycleHooks; the state carried in events is a private copy.
*/
package runtime
