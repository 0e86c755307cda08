package llm

import "context"

// FakeClient is a scripted Client used by planner/reflector/orchestrator
// tests so they don't depend on a live provider.
type FakeClient struct {
	Responses []string
	Err error
	calls int
	Requests [][]Message
}

var _ Client = (*FakeClient)(nil)

func (f *FakeClient) Complete(_ context.Context, messages []Message, _ CompleteOptions) (*Completion, error) {
	f.Requests = append(f.Requests, messages)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.calls >= len(f.Responses) {
		return &Completion{Content: ""}, nil
	}
	out := f.Responses[f.calls]
	f.calls++
	return &Completion{Content: out}, nil
}
