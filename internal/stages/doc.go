/*
Package stages implements the workflow stage handlers.

Each handler receives a snapshot of the run state and returns a domain.Update.
Handlers never mutate the state they are given and never return errors: failures
are expressed as an Update with Error set and NextStep = ERROR, which the router
sends to the error handler.
*/
package stages
