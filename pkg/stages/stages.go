// Package stages implements the content-producing collaborators of the story
// pipeline. Each stage wraps one LLM client configured per stage, parses the
// model's output into typed results, and reports failures as errors so the
// workflow engine can apply its fallbacks.
package stages

import (
	"fmt"

	"starlit/pkg/config"
	"starlit/pkg/llm"
	"starlit/pkg/llm/factory"
	"starlit/pkg/retrieval"
	"starlit/pkg/workflow"
)

// New builds the full collaborator set from per-stage configuration. Each
// stage gets its own client so stages can run on different models.
func New(clients *factory.ClientFactory, cfg *config.Config) (workflow.Collaborators, error) {
	clientFor := func(stage string) (llm.Client, float32, error) {
		sc := cfg.Stage(stage)
		client, err := clients.CreateClient(sc.Model)
		if err != nil {
			return nil, 0, fmt.Errorf("stage %s: %w", stage, err)
		}
		return client, float32(sc.Temperature), nil
	}

	classifyClient, classifyTemp, err := clientFor(config.StageClassify)
	if err != nil {
		return workflow.Collaborators{}, err
	}
	generateClient, generateTemp, err := clientFor(config.StageGenerate)
	if err != nil {
		return workflow.Collaborators{}, err
	}
	validateClient, validateTemp, err := clientFor(config.StageValidate)
	if err != nil {
		return workflow.Collaborators{}, err
	}
	retrieveClient, retrieveTemp, err := clientFor(config.StageRetrieve)
	if err != nil {
		return workflow.Collaborators{}, err
	}
	summarizeClient, summarizeTemp, err := clientFor(config.StageSummarize)
	if err != nil {
		return workflow.Collaborators{}, err
	}
	formatClient, formatTemp, err := clientFor(config.StageFormat)
	if err != nil {
		return workflow.Collaborators{}, err
	}

	catalog, err := retrieval.LoadCatalog()
	if err != nil {
		return workflow.Collaborators{}, fmt.Errorf("loading story catalog: %w", err)
	}

	return workflow.Collaborators{
		Classifier: NewClassifier(classifyClient, classifyTemp),
		Generator:  NewGenerator(generateClient, generateTemp),
		Validator:  NewValidator(validateClient, validateTemp),
		Retriever:  NewRetriever(retrieveClient, retrieveTemp, catalog),
		Summarizer: NewSummarizer(summarizeClient, summarizeTemp),
		Formatter:  NewFormatter(formatClient, formatTemp),
	}, nil
}
