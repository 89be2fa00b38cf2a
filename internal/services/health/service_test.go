package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusWithoutChecks(t *testing.T) {
	ok, checks := NewService().Status(context.Background())
	if !ok || len(checks) != 0 {
		t.Fatalf("expected ok with no checks, got %v %v", ok, checks)
	}
}

func TestStatusReportsFailingCheck(t *testing.T) {
	svc := NewService()
	svc.Register("postgres", func(context.Context) error { return nil })
	svc.Register("redis", func(context.Context) error { return errors.New("dial tcp: refused") })
	svc.Register("skipped", nil)

	ok, checks := svc.Status(context.Background())
	if ok {
		t.Fatalf("expected not ok")
	}
	if checks["postgres"] != "ok" || checks["redis"] != "dial tcp: refused" {
		t.Fatalf("unexpected checks %v", checks)
	}
	if _, present := checks["skipped"]; present {
		t.Fatalf("nil checker should not be registered")
	}
}
