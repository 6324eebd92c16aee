package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hookbill/hookbill/internal/billing/domain"
	"github.com/hookbill/hookbill/internal/billing/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	stmt := `CREATE TABLE transactions (
		id BIGINT PRIMARY KEY,
		member_id BIGINT NOT NULL,
		method_id BIGINT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		gw_id TEXT,
		status TEXT NOT NULL,
		billing_agreement_id BIGINT,
		invoice_id BIGINT,
		fraud_blocked TEXT,
		extra TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("schema exec failed: %v", err)
	}

	return db
}

func TestClaimTransactionGatewayID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	node, err := snowflake.NewNode(21)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	txnID := node.Generate()
	now := time.Now().UTC()
	if err := db.Exec(
		"INSERT INTO transactions (id, member_id, method_id, amount, currency, gw_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?)",
		txnID, node.Generate(), node.Generate(), 2000, "USD", domain.TransactionStatusGatewayPending, now, now,
	).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	claimed, err := repo.ClaimTransactionGatewayID(ctx, db, txnID, "SALE-1", now)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to win")
	}

	var gwID string
	if err := db.Raw("SELECT gw_id FROM transactions WHERE id = ?", txnID).Scan(&gwID).Error; err != nil {
		t.Fatalf("scan gw_id: %v", err)
	}
	if gwID != "SALE-1" {
		t.Fatalf("expected gw_id SALE-1, got %s", gwID)
	}

	// A second claim for the same row must lose, even with the same
	// gateway id: only one delivery may proceed to approval.
	claimed, err = repo.ClaimTransactionGatewayID(ctx, db, txnID, "SALE-1", now)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to lose")
	}
}
