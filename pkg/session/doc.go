/*
Package session coordinates runs that belong to the same conversation.

A Manager serializes runs per conversation id (in-process, plus an optional
distributed lock across replicas) and archives every finished run's transcript
in a ports.TranscriptStore for later audit or replay.
*/
package session
