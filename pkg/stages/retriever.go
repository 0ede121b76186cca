package stages

import (
	"context"
	"fmt"

	"starlit/pkg/llm"
	"starlit/pkg/logx"
	"starlit/pkg/retrieval"
	"starlit/pkg/utils"
	"starlit/pkg/workflow"
)

// Retriever supplies canonical classic stories. The embedded catalog is
// consulted first; only queries it cannot answer go to the model.
type Retriever struct {
	client      llm.Client
	temperature float32
	catalog     *retrieval.Catalog
	logger      *logx.Logger
}

// NewRetriever creates the lookup stage. The catalog may be nil, in which
// case every query goes straight to the model.
func NewRetriever(client llm.Client, temperature float32, catalog *retrieval.Catalog) *Retriever {
	return &Retriever{
		client:      client,
		temperature: temperature,
		catalog:     catalog,
		logger:      logx.NewLogger("retriever"),
	}
}

type retrieverReply struct {
	Title      string `json:"title"`
	Story      string `json:"story"`
	Provenance string `json:"provenance"`
	Found      bool   `json:"found"`
	Reason     string `json:"reason"`
}

// Retrieve implements workflow.Retriever.
func (r *Retriever) Retrieve(ctx context.Context, query string) (workflow.RetrievalResult, error) {
	if r.catalog != nil {
		if entry, ok := r.catalog.Lookup(query); ok {
			r.logger.Info("Catalog hit for %q: %s", query, entry.Title)
			return workflow.RetrievalResult{
				Title:      entry.Title,
				Body:       entry.Body,
				Provenance: entry.Provenance,
				Found:      true,
			}, nil
		}
	}

	r.logger.Debug("Catalog miss for %q, asking model", query)

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(retrieverSystemPrompt),
		llm.NewUserMessage(fmt.Sprintf(
			"Retrieve the canonical, child-appropriate version of this story:\n\nQuery: %s\n\nProvide output as JSON with keys: title, story, provenance, found, reason (if not found)",
			query)),
	})
	req.Temperature = r.temperature

	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		return workflow.RetrievalResult{}, fmt.Errorf("retrieve completion: %w", err)
	}

	var reply retrieverReply
	if err := utils.UnmarshalLLMJSON(resp.Content, &reply); err != nil {
		return workflow.RetrievalResult{Found: false, Reason: "failed to parse retrieval response"}, nil
	}

	// A "found" reply without an actual story is a miss.
	if reply.Found && (reply.Title == "" || reply.Story == "") {
		reply.Found = false
		reply.Reason = "retrieved story was incomplete"
	}

	if reply.Found {
		r.logger.Info("Retrieved story %q (%s)", reply.Title, reply.Provenance)
	} else {
		r.logger.Info("Story not found for %q: %s", query, reply.Reason)
	}

	return workflow.RetrievalResult{
		Title:      reply.Title,
		Body:       reply.Story,
		Provenance: reply.Provenance,
		Found:      reply.Found,
		Reason:     reply.Reason,
	}, nil
}
