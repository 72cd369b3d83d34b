package core

import (
	"context"
	"testing"
)

func TestOriginFromContext(t *testing.T) {
	if got := OriginFromContext(context.Background()); got != (Origin{}) {
		t.Errorf("OriginFromContext(empty) = %+v, want zero", got)
	}

	want := Origin{Source: "http", IPAddress: "203.0.113.7", UserAgent: "curl/8"}
	ctx := ContextWithOrigin(context.Background(), want)
	if got := OriginFromContext(ctx); got != want {
		t.Errorf("OriginFromContext() = %+v, want %+v", got, want)
	}
}

func TestOrigin_LogArgs(t *testing.T) {
	tests := []struct {
		name   string
		origin Origin
		want   int
	}{
		{"zero", Origin{}, 0},
		{"cli", Origin{Source: "cli"}, 2},
		{"http", Origin{Source: "http", IPAddress: "10.0.0.1", UserAgent: "ua"}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(tt.origin.logArgs()); got != tt.want {
				t.Errorf("len(logArgs()) = %d, want %d", got, tt.want)
			}
		})
	}
}
