package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/internal/cache"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createTransactionTable(db)
	if err != nil {
		return nil, err
	}
	err = createTransferTable(db)
	if err != nil {
		return nil, err
	}
	err = createEscrowTable(db)
	if err != nil {
		return nil, err
	}
	err = createMilestoneTable(db)
	if err != nil {
		return nil, err
	}
	err = createDisputeTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createTransactionTable creates a PostgreSQL table for the Transaction struct
func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			reference TEXT NOT NULL UNIQUE,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			buyer_ref TEXT NOT NULL,
			seller_ref TEXT NOT NULL,
			hash TEXT,
			meta_data JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createTransferTable creates a PostgreSQL table for the DirectTransfer struct
func createTransferTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS direct_transfers (
			id SERIAL PRIMARY KEY,
			transfer_id TEXT NOT NULL UNIQUE,
			transaction_id TEXT NOT NULL REFERENCES transactions(transaction_id),
			buyer_ref TEXT NOT NULL,
			seller_ref TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			transaction_fee BIGINT NOT NULL,
			gst_amount BIGINT NOT NULL,
			total_fees BIGINT NOT NULL,
			net_amount BIGINT NOT NULL,
			status TEXT NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			requeued BOOLEAN NOT NULL DEFAULT FALSE,
			failure_reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP
		)
	`)
	return err
}

// createEscrowTable creates a PostgreSQL table for the Escrow struct.
// The version column backs optimistic concurrency on status updates.
func createEscrowTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS escrows (
			id SERIAL PRIMARY KEY,
			escrow_id TEXT NOT NULL UNIQUE,
			transaction_id TEXT NOT NULL REFERENCES transactions(transaction_id),
			buyer_ref TEXT NOT NULL,
			seller_ref TEXT NOT NULL,
			total_amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			transaction_fee BIGINT NOT NULL,
			gst_amount BIGINT NOT NULL,
			total_fees BIGINT NOT NULL,
			net_amount BIGINT NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createMilestoneTable creates a PostgreSQL table for the Milestone struct
func createMilestoneTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS milestones (
			id SERIAL PRIMARY KEY,
			milestone_id TEXT NOT NULL UNIQUE,
			escrow_id TEXT NOT NULL REFERENCES escrows(escrow_id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT,
			amount BIGINT NOT NULL,
			percentage NUMERIC NOT NULL,
			status TEXT NOT NULL,
			required_confirmations INT NOT NULL DEFAULT 1,
			current_confirmations INT NOT NULL DEFAULT 0,
			evidence JSONB,
			due_date TIMESTAMP,
			completed_date TIMESTAMP
		)
	`)
	return err
}

// createDisputeTable creates a PostgreSQL table for the Dispute struct.
// The partial unique index enforces the one-open-dispute-per-escrow
// rule at the storage layer, closing the race the application-level
// pre-check cannot.
func createDisputeTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS disputes (
			id SERIAL PRIMARY KEY,
			dispute_id TEXT NOT NULL UNIQUE,
			escrow_id TEXT NOT NULL REFERENCES escrows(escrow_id),
			milestone_id TEXT,
			raised_by TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL,
			outcome TEXT,
			note TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			resolved_at TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS one_open_dispute_per_escrow
		ON disputes (escrow_id) WHERE status = 'open'
	`)
	return err
}
