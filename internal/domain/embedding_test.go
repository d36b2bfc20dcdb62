package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type stubHealthEmbedder struct {
	stubEmbedder
	healthErr error
}

func (s *stubHealthEmbedder) HealthCheck(_ context.Context) error { return s.healthErr }

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "passage: ")

	result, err := emb.Embed(context.Background(), "senior go developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "passage: senior go developer" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}
	emb := NewInstructionEmbedder(inner, "passage: ")

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_EmptyInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}}}
	emb := NewInstructionEmbedder(inner, "")

	if _, err := emb.Embed(context.Background(), "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "test" {
		t.Errorf("expected 'test', got %q", inner.got)
	}
}

func TestInstructionEmbedder_HealthCheck(t *testing.T) {
	t.Run("inner without health check", func(t *testing.T) {
		emb := NewInstructionEmbedder(&stubEmbedder{}, "q: ")
		if err := emb.HealthCheck(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("inner health failure", func(t *testing.T) {
		down := errors.New("down")
		emb := NewInstructionEmbedder(&stubHealthEmbedder{healthErr: down}, "q: ")
		if err := emb.HealthCheck(context.Background()); !errors.Is(err, down) {
			t.Fatalf("expected %v, got %v", down, err)
		}
	})
}

func TestDimensionError(t *testing.T) {
	err := NewDimensionError(384, 3)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	var de *DimensionError
	if !errors.As(err, &de) {
		t.Fatal("expected *DimensionError")
	}
	if de.Want != 384 || de.Got != 3 {
		t.Errorf("unexpected sizes: %+v", de)
	}
	if err.Error() != "vector dimension mismatch: want 384, got 3" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
