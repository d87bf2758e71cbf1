package knowledge

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/turn"
)

// Indexer streams finished turns and plan versions into the vector store so
// later sessions can search prior work. Indexing is best effort: it runs in
// the background and failures only log.
type Indexer struct {
	store   *VectorStore
	timeout time.Duration
}

func NewIndexer(store *VectorStore) *Indexer {
	return &Indexer{store: store, timeout: 30 * time.Second}
}

// IndexTurn indexes the latest exchange of a session in the background.
func (ix *Indexer) IndexTurn(sessionID string, st *turn.State) {
	if ix == nil || ix.store == nil {
		return
	}
	user := st.LastUserMessage()
	ai := st.LastAIMessage()
	if user == "" && ai == "" {
		return
	}
	text := fmt.Sprintf("User: %s\nAssistant: %s", user, ai)

	go ix.index(sessionID+"/turn", text, map[string]string{
		"session": sessionID,
		"kind":    "turn",
	})
}

// IndexPlan indexes the rendered plan document in the background.
func (ix *Indexer) IndexPlan(p *plan.Plan) {
	if ix == nil || ix.store == nil || p == nil {
		return
	}
	go ix.index(
		fmt.Sprintf("%s/v%d", p.ID, p.Version),
		p.Render(),
		map[string]string{"plan": p.ID, "kind": "plan"},
	)
}

func (ix *Indexer) index(idPrefix, text string, meta map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), ix.timeout)
	defer cancel()

	chunks := Chunk(text, 0, 0)
	docs := make([]Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, Document{
			ID:   fmt.Sprintf("%s/%d", idPrefix, i),
			Text: chunk,
			Meta: meta,
		})
	}
	if err := ix.store.Add(ctx, docs); err != nil {
		log.Printf("WARNING: knowledge: indexing %s failed: %v", idPrefix, err)
	}
}
