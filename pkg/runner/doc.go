/*
Package runner drives cubeflow from an interactive or scripted frontend.

It is the bridge between the workflow engine and the outside world: user input is
sanitized, sent through a session (which serializes a conversation and archives
the transcript) and the run's progress and answer are written through a pluggable
IOHandler.

# Key Components

  - Runner: one-shot Ask and the Chat loop, including clarification follow-ups.
  - IOHandler: decouples presentation (text for humans, NDJSON for scripts).
  - SanitizeQuery: size, encoding and control-character checks for user input.

# Usage

	r := runner.NewRunner(manager,
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Chat(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
