/*
Package ports defines the driven ports (interfaces) for the cubeflow workflow.

These interfaces decouple the stages from external implementations, allowing
the workflow to run against the real services, local models, or test fakes.

# Key Interfaces

  - LanguageModel: Sends chat messages to a completion service.
  - DataService: Reads models, dimensions and hierarchies from Vena and validates MQL.
  - TranscriptStore: Archives finished runs for audit and replay in the UI.
  - DistributedLocker: Serializes runs of the same conversation across replicas.
*/
package ports
