package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "bookstay/internal/adapters/redis"
)

func TestCache_SetGetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	type page struct {
		Total int      `json:"total"`
		Names []string `json:"names"`
	}

	if ok, err := c.Get(ctx, "search:empty", &page{}); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	in := page{Total: 2, Names: []string{"Seaside Inn", "City Lodge"}}
	if err := c.Set(ctx, "search:p1", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out page
	ok, err := c.Get(ctx, "search:p1", &out)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if out.Total != 2 || len(out.Names) != 2 || out.Names[0] != "Seaside Inn" {
		t.Fatalf("unexpected value: %+v", out)
	}

	if err := c.Del(ctx, "search:p1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := c.Get(ctx, "search:p1", &out); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestCache_TTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	if err := c.Set(ctx, "hotel:abc", map[string]string{"name": "Palm Court"}, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(31 * time.Second)

	var out map[string]string
	if ok, _ := c.Get(ctx, "hotel:abc", &out); ok {
		t.Fatalf("expected entry to expire")
	}
}
