package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	s := Session{ID: "s1", Subject: "Jane Doe", Status: StatusRunning, StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := st.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Create(ctx, s); err == nil {
		t.Fatal("duplicate create must fail")
	}
	if _, err := st.Get(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if err := st.Update(ctx, Session{ID: "nope"}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("update missing: %v", err)
	}

	s.Calls = 2
	if err := st.Update(ctx, s); err != nil {
		t.Fatalf("update running: %v", err)
	}
	end := s.StartTime.Add(time.Minute)
	s.Status, s.EndTime = StatusCompleted, &end
	s.Results = &Results{TotalMatches: 1, Domains: []string{"a.example"}}
	if err := st.Update(ctx, s); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := st.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCompleted || got.Calls != 2 || got.Results.TotalMatches != 1 || !got.EndTime.Equal(end) {
		t.Fatalf("got %+v", got)
	}

	s.Status = StatusError
	if err := st.Update(ctx, s); !errors.Is(err, ErrTerminal) {
		t.Fatalf("terminal update: %v", err)
	}
	got, _ = st.Get(ctx, "s1")
	if got.Status != StatusCompleted {
		t.Fatalf("terminal session changed to %s", got.Status)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	st := NewRedisStore(client)
	exerciseStore(t, st)

	if ttl := mr.TTL(redisKeyPrefix + "s1"); ttl <= 0 || ttl > DefaultSessionTTL {
		t.Fatalf("ttl=%v", ttl)
	}
	mr.FastForward(DefaultSessionTTL + time.Second)
	if _, err := st.Get(context.Background(), "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session: %v", err)
	}
}

func TestStatus_Terminal(t *testing.T) {
	for s, want := range map[Status]bool{StatusRunning: false, StatusCompleted: true, StatusError: true} {
		if s.Terminal() != want {
			t.Fatalf("%s terminal=%v", s, !want)
		}
	}
}
