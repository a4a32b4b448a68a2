package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipmarker/clipmarker-agent/internal/db"
	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewRepository(database.Conn())
}

func TestConfig_GetSet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	got, err := repo.GetConfig(ctx, "basename")
	if err != nil || got != "" {
		t.Fatalf("GetConfig(missing) = %q, %v", got, err)
	}

	if err := repo.SetConfig(ctx, "basename", "trip"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "basename", "hike"); err != nil {
		t.Fatalf("SetConfig() overwrite error = %v", err)
	}

	got, err = repo.GetConfig(ctx, "basename")
	if err != nil || got != "hike" {
		t.Fatalf("GetConfig() = %q, %v, want hike", got, err)
	}
}

func TestCommands_Journal(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if seq, err := repo.LastCommandSeq(ctx); err != nil || seq != 0 {
		t.Fatalf("LastCommandSeq(empty) = %d, %v", seq, err)
	}

	now := time.Now()
	for i, tag := range []dispatch.Tag{dispatch.TagStartTime, dispatch.TagEndTime, dispatch.TagQuickAdd} {
		cmd := &dispatch.Command{
			Seq:        int64(i + 1),
			Tag:        string(tag),
			Origin:     dispatch.OriginHotkey,
			State:      dispatch.StateReceived,
			ReceivedAt: now,
			UpdatedAt:  now,
		}
		if err := repo.RecordCommand(ctx, cmd); err != nil {
			t.Fatalf("RecordCommand() error = %v", err)
		}
	}

	if err := repo.UpdateCommandState(ctx, 1, dispatch.StateApplied, ""); err != nil {
		t.Fatalf("UpdateCommandState() error = %v", err)
	}
	if err := repo.UpdateCommandState(ctx, 3, dispatch.StateRejected, "draft needs both start and end time"); err != nil {
		t.Fatalf("UpdateCommandState() error = %v", err)
	}

	cmds, err := repo.ListCommands(ctx, 2)
	if err != nil {
		t.Fatalf("ListCommands() error = %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("ListCommands() len = %d, want 2", len(cmds))
	}
	if cmds[0].Seq != 3 || cmds[0].State != dispatch.StateRejected || cmds[0].Error == "" {
		t.Errorf("newest command = %+v", cmds[0])
	}
	if cmds[0].ReceivedAt.IsZero() {
		t.Error("received_at not parsed")
	}
	if cmds[1].Seq != 2 || cmds[1].State != dispatch.StateReceived {
		t.Errorf("second command = %+v", cmds[1])
	}

	if seq, err := repo.LastCommandSeq(ctx); err != nil || seq != 3 {
		t.Fatalf("LastCommandSeq() = %d, %v, want 3", seq, err)
	}
}

func TestRepository_ImplementsJournal(t *testing.T) {
	var _ dispatch.Journal = setupTestRepo(t)
}
