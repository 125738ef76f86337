package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestBoltJournalMarksAndExpires(t *testing.T) {
	j, err := openBolt(filepath.Join(t.TempDir(), "journal.db"), Options{
		TTL:             time.Minute,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer j.Close()

	clock := time.Now()
	j.now = func() time.Time { return clock }

	done, err := j.Done("upload")
	if err != nil || done {
		t.Fatalf("expected unmarked id, done=%v err=%v", done, err)
	}
	if err := j.MarkDone("upload"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	done, err = j.Done("upload")
	if err != nil || !done {
		t.Fatalf("expected marked id, done=%v err=%v", done, err)
	}

	clock = clock.Add(2 * time.Minute)
	done, err = j.Done("upload")
	if err != nil || done {
		t.Fatalf("expected mark to expire, done=%v err=%v", done, err)
	}
}

func TestBoltJournalCleanupSweepsExpired(t *testing.T) {
	j, err := openBolt(filepath.Join(t.TempDir(), "nested", "journal.db"), Options{
		TTL:             time.Minute,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer j.Close()

	clock := time.Now()
	j.now = func() time.Time { return clock }
	for _, id := range []string{"a", "b"} {
		if err := j.MarkDone(id); err != nil {
			t.Fatalf("MarkDone(%s): %v", id, err)
		}
	}

	clock = clock.Add(5 * time.Minute)
	if err := j.MarkDone("c"); err != nil {
		t.Fatalf("MarkDone(c): %v", err)
	}

	var keys int
	_ = j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(requestBucket)).ForEach(func(_, _ []byte) error {
			keys++
			return nil
		})
	})
	if keys != 1 {
		t.Fatalf("expected only the fresh mark to remain, got %d keys", keys)
	}
}

func TestOpenSupportsNoop(t *testing.T) {
	j, err := Open("none", "", Options{})
	if err != nil {
		t.Fatalf("Open none: %v", err)
	}
	if err := j.MarkDone("x"); err != nil {
		t.Fatalf("noop MarkDone: %v", err)
	}
	if done, _ := j.Done("x"); done {
		t.Fatalf("noop journal should never report done")
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := Open("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
