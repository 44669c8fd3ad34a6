/*
Package cubeflow answers natural-language financial questions against OLAP cubes.

A question travels through a fixed graph of stages: orchestration decides where to
start, model selection picks the cube, member prediction extracts and verifies the
hierarchy members the question mentions, query generation writes (and validates) a
query in the cube's query language, and response generation explains the result.
Any stage can divert to the error handler. Every stage talks to the outside world
only through a language model and a small table of data-service tools.

# Concept

The engine owns a single State per run. Stages never mutate it; they return a
partial Update that the engine merges with fixed rules (set-once model and
response, append-only members and tool calls) and then routes on the stage's
NextStep signal. Observers receive stage and tool events with private snapshots.

# Usage

	llm, err := openai.New(openai.Config{LocalModel: "llama3.1"})
	if err != nil {
		log.Fatal(err)
	}
	eng, err := cubeflow.New(
		cubeflow.WithLanguageModel(llm),
		cubeflow.WithDataService(vena.New(endpoint, user, key)),
	)
	if err != nil {
		log.Fatal(err)
	}

	tr, err := eng.Run(ctx, "What is top revenue across all departments in 2022?")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tr.State.ResponseText())

# Frontends

The cubeflow command exposes the engine as a one-shot CLI (ask), an interactive
chat, an HTTP API with server-sent events (serve) and an MCP server (mcp).
*/
package cubeflow
