package run_test

import (
	"testing"

	. "github.com/onsi/gomega"
)

// assertContainsAll checks every fragment against the generated source, reporting each miss.
func assertContainsAll(t *testing.T, content string, fragments []string) {
	t.Helper()

	g := NewWithT(t)
	for _, fragment := range fragments {
		g.Expect(content).To(ContainSubstring(fragment), "generated source:\n%s", content)
	}
}

// getGeneratedContent returns what was written to path, failing the test if nothing was.
func getGeneratedContent(t *testing.T, mockFS *MockFileSystem, path string) string {
	t.Helper()

	content, ok := mockFS.files[path]
	if !ok {
		t.Fatalf("expected %s to be written; wrote %d other file(s)", path, len(mockFS.files))
	}

	return string(content)
}
