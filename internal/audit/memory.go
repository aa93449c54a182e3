package audit

import (
	"strings"
	"sync"
)

// AnswerMemory remembers the option chosen for each (category, key) pair
// during one run.
type AnswerMemory struct {
	mu      sync.Mutex
	answers map[string]int
}

func NewAnswerMemory() *AnswerMemory {
	return &AnswerMemory{answers: make(map[string]int)}
}

func memoryKey(category Category, key []string) string {
	return category.String() + "\x00" + strings.Join(key, "\x00")
}

// Lookup returns the option last chosen for category and key.
func (m *AnswerMemory) Lookup(category Category, key []string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	choice, ok := m.answers[memoryKey(category, key)]
	return choice, ok
}

func (m *AnswerMemory) Remember(category Category, key []string, choice int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[memoryKey(category, key)] = choice
}

func (m *AnswerMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.answers)
}
