package judge

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/prospect-match/pkg/anthropic"
	"github.com/sells-group/prospect-match/pkg/gemini"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) Complete(ctx context.Context, req anthropic.Request) (*anthropic.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.Response), args.Error(1)
}

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) GenerateJSON(ctx context.Context, req gemini.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func kindIs(k Kind) any {
	return mock.MatchedBy(func(p Prompt) bool { return p.Kind == k })
}
