package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/pkg/pagination"
)

type lockedRow struct {
	ID    int64
	Value int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:repo_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&lockedRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}

	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseTxRebinds(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.Tx(nil).db != db {
		t.Fatal("nil tx should keep the handle")
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if base.Tx(tx).db != tx {
			return fmt.Errorf("expected tx handle")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestForUpdateRunsOnSQLite(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&lockedRow{Value: 3}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	var row lockedRow
	if err := NewBase(db).ForUpdate(context.Background()).First(&row).Error; err != nil {
		t.Fatalf("locked select: %v", err)
	}
	if row.Value != 3 {
		t.Fatalf("unexpected row %+v", row)
	}

	var missing lockedRow
	err := NewBase(db).DB(context.Background()).First(&missing, 999).Error
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type datedRow struct {
	ID        int64
	CreatedAt time.Time
}

func TestNewestFirstPagesByCursor(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&datedRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	// Rows 2 and 3 share a timestamp so the id breaks the tie.
	seed := []datedRow{{ID: 1, CreatedAt: at}, {ID: 2, CreatedAt: at.Add(time.Minute)}, {ID: 3, CreatedAt: at.Add(time.Minute)}, {ID: 4, CreatedAt: at.Add(2 * time.Minute)}}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	var first []datedRow
	if err := db.Scopes(NewestFirst(nil, 2)).Find(&first).Error; err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 || first[0].ID != 4 || first[1].ID != 3 {
		t.Fatalf("unexpected first page %+v", first)
	}

	var second []datedRow
	cursor := &pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	if err := db.Scopes(NewestFirst(cursor, 10)).Find(&second).Error; err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 2 || second[0].ID != 2 || second[1].ID != 1 {
		t.Fatalf("unexpected second page %+v", second)
	}
}
