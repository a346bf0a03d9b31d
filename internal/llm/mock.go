package llm

import "context"

// mockResponse is a minimal but complete React component so that the full
// parse, validate and commit pipeline works offline.
const mockResponse = `FILE: src/App.tsx
export default function App() {
  return (
    <main>
      <h1>Hello from the mock provider</h1>
      <p>Set provider to googleai or openai for real generation.</p>
    </main>
  );
}
`

// MockGenerator returns a canned response without calling any model.
// It backs the "mock" provider setting, which keeps the whole pipeline
// runnable without network access or API keys.
type MockGenerator struct {
	// Response overrides the default canned output when non-empty.
	Response string
}

// Generate implements Generator.
func (m *MockGenerator) Generate(_ context.Context, _ string) (string, error) {
	if m.Response != "" {
		return m.Response, nil
	}
	return mockResponse, nil
}
