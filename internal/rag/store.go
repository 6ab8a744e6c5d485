package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// NoKnowledgeFound is returned by SerializedKnowledge when retrieval
// yields nothing usable.
const NoKnowledgeFound = "No relevant financial knowledge found."

const collectionName = "financial-knowledge"

// Document is one retrieved passage with its index-time annotations.
type Document struct {
	Source  string
	Intent  string
	Content string
}

// Store wraps the embedded vector database holding the knowledge corpus.
// Indexing appends; re-indexing the same directory duplicates entries.
type Store struct {
	collection *chromem.Collection
	log        zerolog.Logger
}

// NewStore opens (or creates) the persistent vector store at path.
func NewStore(path string, embed chromem.EmbeddingFunc, log zerolog.Logger) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("rag: opening vector store at %s: %w", path, err)
	}
	return newStore(db, embed, log)
}

// NewMemoryStore builds a non-persistent store, used by tests and
// short-lived tooling.
func NewMemoryStore(embed chromem.EmbeddingFunc, log zerolog.Logger) (*Store, error) {
	return newStore(chromem.NewDB(), embed, log)
}

func newStore(db *chromem.DB, embed chromem.EmbeddingFunc, log zerolog.Logger) (*Store, error) {
	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("rag: creating collection: %w", err)
	}
	return &Store{
		collection: collection,
		log:        log.With().Str("component", "rag").Logger(),
	}, nil
}

// GeminiEmbedding adapts the Gemini embedding endpoint to the vector
// store's embedding interface.
func GeminiEmbedding(client *genai.Client, model string) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.Models.EmbedContent(ctx, model, genai.Text(text), nil)
		if err != nil {
			return nil, fmt.Errorf("rag: embedding content: %w", err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return nil, fmt.Errorf("rag: embedding response is empty")
		}
		return resp.Embeddings[0].Values, nil
	}
}

// IndexDirectory loads every markdown file under dir into the store,
// tagging each with its source filename and inferred intent. Returns the
// number of documents added.
func (s *Store) IndexDirectory(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return 0, fmt.Errorf("rag: scanning %s: %w", dir, err)
	}
	if len(paths) == 0 {
		s.log.Warn().Str("dir", dir).Msg("No markdown files found to index")
		return 0, nil
	}

	docs := make([]chromem.Document, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			s.log.Error().Err(err).Str("file", path).Msg("Skipping unreadable file")
			continue
		}

		filename := filepath.Base(path)
		intent := InferIntent(filename)
		docs = append(docs, chromem.Document{
			ID: uuid.New().String(),
			Metadata: map[string]string{
				"source": filename,
				"intent": intent,
			},
			Content: string(content),
		})
		s.log.Info().Str("file", filename).Str("intent", intent).Msg("Loaded document")
	}

	if len(docs) == 0 {
		return 0, nil
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("rag: adding documents: %w", err)
	}

	s.log.Info().Int("count", len(docs)).Msg("Documents indexed")
	return len(docs), nil
}

// Retrieve runs a similarity search, optionally filtered by metadata
// (e.g. {"intent": "budgeting"}). k is clamped to the collection size.
func (s *Store) Retrieve(ctx context.Context, query string, k int, where map[string]string) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	if k < 1 {
		k = 1
	}

	results, err := s.collection.Query(ctx, query, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("rag: querying %q: %w", query, err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, Document{
			Source:  r.Metadata["source"],
			Intent:  r.Metadata["intent"],
			Content: r.Content,
		})
	}

	s.log.Info().Str("query", query).Int("k", k).Int("hits", len(docs)).Msg("Knowledge retrieved")
	return docs, nil
}

// SerializedKnowledge retrieves for the query and renders the matches as
// a prompt-ready text block. Retrieval failures degrade to the empty
// result so a bad index never breaks a chat turn.
func (s *Store) SerializedKnowledge(ctx context.Context, query string, k int) string {
	if s == nil {
		return NoKnowledgeFound
	}
	docs, err := s.Retrieve(ctx, query, k, nil)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("Retrieval failed")
		return NoKnowledgeFound
	}
	return Serialize(docs)
}

// Serialize renders retrieved documents as one three-line block each, or
// the fixed no-knowledge string when there are none.
func Serialize(docs []Document) string {
	if len(docs) == 0 {
		return NoKnowledgeFound
	}

	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		blocks = append(blocks, fmt.Sprintf("Source: %s\nIntent: %s\nContent: %s",
			doc.Source, doc.Intent, doc.Content))
	}
	return strings.Join(blocks, "\n\n")
}
