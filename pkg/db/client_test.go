package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quickmed/quickmed-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:dbclient_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestWithTxRetry_RetriesSerializationFailures(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	var attempts, observed int
	err := client.WithTxRetry(context.Background(), 3, func(int, error) { observed++ }, func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("lock rows: %w", &pgconn.PgError{Code: "40001"})
		}
		return tx.Create(&testModel{Name: "third time"}).Error
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 || observed != 2 {
		t.Fatalf("expected 3 attempts and 2 retry notifications, got %d/%d", attempts, observed)
	}
}

func TestWithTxRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	client := Wrap(newTestDB(t))

	attempts := 0
	err := client.WithTxRetry(context.Background(), 2, nil, func(tx *gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: "40P01"}
	})
	if !IsRetryableTxError(err) {
		t.Fatalf("expected last deadlock error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestWithTxRetry_DoesNotRetryDomainErrors(t *testing.T) {
	client := Wrap(newTestDB(t))

	attempts := 0
	boom := errors.New("cart is empty")
	err := client.WithTxRetry(context.Background(), 5, nil, func(tx *gorm.DB) error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) || attempts != 1 {
		t.Fatalf("expected single attempt with domain error, got %d %v", attempts, err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_cart_items_cart_medicine"}
	if !IsUniqueViolation(pgErr, "") {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(pgErr, "idx_cart_items_cart_medicine") {
		t.Fatal("expected constraint match")
	}
	if IsUniqueViolation(pgErr, "other") {
		t.Fatal("did not expect other constraint to match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: carts.user_id"), "") {
		t.Fatal("expected sqlite unique violation")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a violation")
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "half"}).Error; err != nil {
				return err
			}
			panic("stock math went wrong")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback after panic, got %d rows", count)
	}
}

func TestWithTxRetry_StopsWhenContextDone(t *testing.T) {
	client := Wrap(newTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := client.WithTxRetry(ctx, 5, func(int, error) { cancel() }, func(tx *gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: "40001"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestQueryLoggerWritesSlowStatements(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: "json"})

	if queryLogger(logg, 0) != gormlogger.Discard {
		t.Fatal("zero threshold should discard")
	}
	if queryLogger(nil, time.Second) != gormlogger.Discard {
		t.Fatal("nil logger should discard")
	}

	queryLogWriter{logg: logg}.Printf("%s [%.3fms] %s\n", "SLOW SQL >= 250ms", 412.5, "SELECT * FROM medicines")
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"component":"gorm"`) {
		t.Fatalf("expected gorm warn entry, got %s", out)
	}
	if !strings.Contains(out, "SELECT * FROM medicines") {
		t.Fatalf("expected statement in entry, got %s", out)
	}
}
