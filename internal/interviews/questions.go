package interviews

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultPoolYAML []byte

// QuestionPool is the set of questions sessions sample from.
type QuestionPool struct {
	Questions []string `yaml:"questions"`
}

// ParsePool decodes a YAML question pool, dropping blank entries.
func ParsePool(data []byte) (QuestionPool, error) {
	var pool QuestionPool
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return QuestionPool{}, fmt.Errorf("parse question pool: %w", err)
	}
	out := pool.Questions[:0]
	for _, q := range pool.Questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	pool.Questions = out
	if len(pool.Questions) == 0 {
		return QuestionPool{}, errors.New("question pool is empty")
	}
	return pool, nil
}

// DefaultPool returns the embedded pool.
func DefaultPool() QuestionPool {
	pool, err := ParsePool(defaultPoolYAML)
	if err != nil {
		panic(err)
	}
	return pool
}

// Sample returns n distinct questions in random order, clamped to the pool size.
func (p QuestionPool) Sample(n int, shuffle func(n int, swap func(i, j int))) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, len(p.Questions))
	copy(out, p.Questions)
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n < len(out) {
		out = out[:n]
	}
	return out
}
