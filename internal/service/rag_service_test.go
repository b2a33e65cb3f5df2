package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"parlrag/internal/answer"
	"parlrag/internal/domain"
)

type fakeRetriever struct {
	passages []domain.RetrievedPassage
	err      error
	gotK     []int
}

func (f *fakeRetriever) Search(_ context.Context, _ string, k int) ([]domain.RetrievedPassage, error) {
	f.gotK = append(f.gotK, k)
	if f.err != nil {
		return nil, f.err
	}
	if k <= 0 {
		return []domain.RetrievedPassage{}, nil
	}
	return f.passages[:min(k, len(f.passages))], nil
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Version() string { return "mock" }

func testLogger() *slog.Logger { return slog.New(slog.NewJSONHandler(io.Discard, nil)) }

func newTestService(t *testing.T, gen *mockGenerator, emb, bm25 *fakeRetriever) *RAGService {
	t.Helper()
	svc, err := NewRAGService(map[string]domain.Retriever{"emb": emb, "bm25": bm25}, "emb",
		answer.NewRouter(gen, 0, testLogger()), 3, testLogger())
	require.NoError(t, err)
	return svc
}

func samplePassages() []domain.RetrievedPassage {
	return []domain.RetrievedPassage{
		{Rank: 1, ChunkID: "c2", Filename: "b.txt", Date: "2019-05-02", Parliament: "42", Text: "fisheries"},
		{Rank: 2, ChunkID: "c1", Filename: "a.txt", Date: "2019-04-01", Parliament: "42", Text: "budget"},
	}
}

func TestAsk_DateQuestionIsDeterministic(t *testing.T) {
	gen := new(mockGenerator)
	emb := &fakeRetriever{passages: samplePassages()}
	svc := newTestService(t, gen, emb, &fakeRetriever{})

	ans, err := svc.Ask(context.Background(), "On what date did the minister speak?", 0, "")
	require.NoError(t, err)

	assert.Equal(t, []int{3}, emb.gotK)
	assert.Equal(t, "emb", ans.Representation)
	assert.True(t, ans.Deterministic)
	assert.Equal(t, "The speech dates are: 2019-04-01, 2019-05-02. (Doc 1, Doc 2)", ans.Text)
	assert.Equal(t, []string{"a.txt | c1 | 2019-04-01 | 42", "b.txt | c2 | 2019-05-02 | 42"}, ans.Sources)
	assert.Len(t, ans.Passages, 2)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAsk_GeneralQuestionUsesGenerator(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return answer.QuestionFromPrompt(p) == "What was said about budget?"
	})).Return("Budget talk [Doc 1]", nil).Once()
	bm25 := &fakeRetriever{passages: samplePassages()[1:]}
	svc := newTestService(t, gen, &fakeRetriever{}, bm25)

	ans, err := svc.Ask(context.Background(), "What was said about budget?", 5, "bm25")
	require.NoError(t, err)
	assert.False(t, ans.Deterministic)
	assert.Equal(t, "Budget talk [Doc 1]", ans.Text)
	assert.Equal(t, []int{5}, bm25.gotK)
	gen.AssertExpectations(t)
}

func TestAsk_Errors(t *testing.T) {
	boom := errors.New("encoder offline")
	svc := newTestService(t, new(mockGenerator), &fakeRetriever{err: boom}, &fakeRetriever{})

	_, err := svc.Ask(context.Background(), "q", 2, "")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Ask(context.Background(), "q", 2, "splade")
	assert.ErrorContains(t, err, `unknown representation "splade"`)
}

func TestNewRAGService_UnknownDefault(t *testing.T) {
	_, err := NewRAGService(map[string]domain.Retriever{}, "emb", nil, 3, nil)
	assert.Error(t, err)
}

func TestRepresentationsSorted(t *testing.T) {
	svc := newTestService(t, new(mockGenerator), &fakeRetriever{}, &fakeRetriever{})
	assert.Equal(t, []string{"bm25", "emb"}, svc.Representations())
}
