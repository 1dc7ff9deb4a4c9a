package core

import "context"

type AIProvider interface {
	Chat(ctx context.Context, history []Message, tools []Tool) (Message, error)
}

// Embedder produces vectors for retrieval. Query and passage encodings are
// separate because asymmetric models embed them differently.
type Embedder interface {
	EncodeQuery(ctx context.Context, text string) ([]float32, error)
	EncodePassage(ctx context.Context, text string) ([]float32, error)
}

type DocumentExtractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// Toolbox exposes the external tools a responder may call.
type Toolbox interface {
	GetTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args string) (string, error)
}
