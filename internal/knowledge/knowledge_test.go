package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_ShortTextIsSingleChunk(t *testing.T) {
	chunks := Chunk("short text", 0, 0)

	assert.Equal(t, []string{"short text"}, chunks)
	assert.Nil(t, Chunk("", 0, 0))
}

func TestChunk_BreaksAtSentenceBoundary(t *testing.T) {
	text := strings.Repeat("word ", 12) + ". " + strings.Repeat("tail ", 30)
	chunks := Chunk(text, 100, 20)

	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], "."),
		"the first chunk should end at the sentence break")
}

func TestChunk_OverlapRepeatsTail(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("0123456789")
	}
	chunks := Chunk(b.String(), 100, 20)

	require.Greater(t, len(chunks), 1)
	tail := chunks[0][len(chunks[0])-10:]
	assert.Contains(t, chunks[1], tail, "consecutive chunks share overlapping text")
}

// keywordEmbedder maps texts to tiny deterministic vectors so similarity is
// exact: axis 0 counts "alpha", axis 1 counts "beta".
type keywordEmbedder struct {
	err error
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{
		float32(strings.Count(text, "alpha")),
		float32(strings.Count(text, "beta")),
		1,
	}, nil
}

func TestVectorStore_SearchRanksBySimilarity(t *testing.T) {
	vs := NewVectorStore(&keywordEmbedder{})
	ctx := context.Background()

	require.NoError(t, vs.Add(ctx, []Document{
		{ID: "a", Text: "alpha alpha alpha"},
		{ID: "b", Text: "beta beta beta"},
		{ID: "c", Text: "nothing relevant"},
	}))
	require.Equal(t, 3, vs.Len())

	matches, err := vs.Search(ctx, "alpha alpha", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Document.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestVectorStore_AddFailureIndexesNothing(t *testing.T) {
	vs := NewVectorStore(&keywordEmbedder{err: errors.New("embed down")})

	err := vs.Add(context.Background(), []Document{{ID: "a", Text: "alpha"}})

	assert.Error(t, err)
	assert.Zero(t, vs.Len())
}
