package health

import (
	"context"
	"errors"
	"testing"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestStatus(t *testing.T) {
	cases := []struct {
		name   string
		db     Pinger
		wantOK bool
		wantDB string
	}{
		{"memory", nil, true, "memory"},
		{"database up", pingerFunc(func(context.Context) error { return nil }), true, "up"},
		{"database down", pingerFunc(func(context.Context) error { return errors.New("refused") }), false, "down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ok := NewService(tc.db).Status(context.Background())
			if ok != tc.wantOK || body["database"] != tc.wantDB || body["ok"] != tc.wantOK {
				t.Fatalf("got %v %v", body, ok)
			}
		})
	}
}
