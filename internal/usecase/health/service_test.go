package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error        { return f(ctx) }
func (f pingFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func ok(context.Context) error { return nil }

func fail(msg string) pingFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestCheck_Status(t *testing.T) {
	tests := []struct {
		name      string
		store     pingFunc
		embedding pingFunc
		want      Status
		wantStore CheckResult
		wantEmb   CheckResult
	}{
		{"all healthy", ok, ok, Healthy, CheckOK, CheckOK},
		{"store down", fail("conn refused"), ok, Unhealthy, CheckError, CheckOK},
		{"embedding down", ok, fail("timeout"), Degraded, CheckOK, CheckError},
		{"both down", fail("db down"), fail("emb down"), Unhealthy, CheckError, CheckError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.store, tt.embedding).Check(context.Background())

			if r.Status != tt.want {
				t.Errorf("status = %q, want %q", r.Status, tt.want)
			}
			if got := r.Checks[ComponentVectorStore].Result; got != tt.wantStore {
				t.Errorf("vector_store = %q, want %q", got, tt.wantStore)
			}
			if got := r.Checks[ComponentEmbedding].Result; got != tt.wantEmb {
				t.Errorf("embedding = %q, want %q", got, tt.wantEmb)
			}
		})
	}
}

func TestCheck_RecordsErrorMessage(t *testing.T) {
	r := New(fail("conn refused"), nil).Check(context.Background())

	if got := r.Checks[ComponentVectorStore].Error; got != "conn refused" {
		t.Errorf("error = %q", got)
	}
}

func TestCheck_NilEmbeddingIsSkipped(t *testing.T) {
	r := New(pingFunc(ok), nil).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("status = %q, want %q", r.Status, Healthy)
	}
	if _, found := r.Checks[ComponentEmbedding]; found {
		t.Error("embedding check should be absent when embedding is nil")
	}
}

func TestCheck_ProbeTimeout(t *testing.T) {
	hang := pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	svc := New(pingFunc(ok), hang).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	r := svc.Check(context.Background())

	if time.Since(start) > time.Second {
		t.Fatal("probe timeout not applied")
	}
	if r.Status != Degraded {
		t.Errorf("status = %q, want %q", r.Status, Degraded)
	}
	if r.Checks[ComponentEmbedding].Error != context.DeadlineExceeded.Error() {
		t.Errorf("error = %q", r.Checks[ComponentEmbedding].Error)
	}
}

func TestCheck_ProbesRunConcurrently(t *testing.T) {
	slow := pingFunc(func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	start := time.Now()
	r := New(slow, slow).Check(context.Background())
	elapsed := time.Since(start)

	if elapsed >= 95*time.Millisecond {
		t.Errorf("probes ran sequentially: %v", elapsed)
	}
	if r.Checks[ComponentVectorStore].Latency < 50*time.Millisecond {
		t.Errorf("latency = %v", r.Checks[ComponentVectorStore].Latency)
	}
}
