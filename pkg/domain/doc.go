/*
Package domain contains the core domain models of the cubeflow workflow engine.

It defines the session state threaded through a run, the partial updates produced by
stage handlers, the routing vocabulary (steps and stages), the tool-call audit trail
and the events emitted for observers. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - State: The single record owned by a run (query, selected model, members, query text, response).
  - Update: A partial state change returned by one stage; State.Apply merges it.
  - Step / Stage: The routing signal written by a stage and the stage names of the graph.
  - ToolCallRecord: One data-service invocation, successful or not.
  - StageEvent / ToolEvent: Observable, stage-tagged progress for UIs and metrics.
*/
package domain
