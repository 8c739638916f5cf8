package interviews

import "testing"

func TestDefaultPoolHasTenQuestions(t *testing.T) {
	pool := DefaultPool()
	if len(pool.Questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(pool.Questions))
	}
}

func TestParsePool(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    int
		wantErr bool
	}{
		{name: "drops blanks", yaml: "questions:\n  - one\n  - '  '\n  - two\n", want: 2},
		{name: "empty", yaml: "questions: []\n", wantErr: true},
		{name: "malformed", yaml: "questions: [unterminated\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := ParsePool([]byte(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePool: %v", err)
			}
			if len(pool.Questions) != tt.want {
				t.Fatalf("expected %d questions, got %d", tt.want, len(pool.Questions))
			}
		})
	}
}

func TestSampleIsDistinctAndClamped(t *testing.T) {
	pool := QuestionPool{Questions: []string{"a", "b", "c", "d"}}

	got := pool.Sample(3, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, q := range got {
		if seen[q] {
			t.Fatalf("duplicate question %q", q)
		}
		seen[q] = true
	}

	if got := pool.Sample(10, nil); len(got) != 4 {
		t.Fatalf("expected clamp to 4, got %d", len(got))
	}
	if got := pool.Sample(0, nil); got != nil {
		t.Fatalf("expected nil for zero, got %v", got)
	}

	identity := func(int, func(int, int)) {}
	if got := pool.Sample(2, identity); got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected pool order with identity shuffle, got %v", got)
	}
}
