package dbtest

// Schema is the sqlite rendition of the migrations, in dependency order.
var Schema = []string{
	`CREATE TABLE tbl_stores (
		store_id INTEGER PRIMARY KEY AUTOINCREMENT,
		store_name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE tbl_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		firstname TEXT NOT NULL DEFAULT '',
		lastname TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL,
		store_id INTEGER NULL REFERENCES tbl_stores(store_id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE tbl_category (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category_name TEXT NOT NULL,
		store_id INTEGER NULL REFERENCES tbl_stores(store_id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE tbl_products (
		products_id INTEGER PRIMARY KEY AUTOINCREMENT,
		products_name TEXT NOT NULL,
		price NUMERIC NOT NULL DEFAULT 0 CHECK (price >= 0),
		stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		category_id INTEGER NOT NULL REFERENCES tbl_category(id),
		barcode_id TEXT NOT NULL,
		store_id INTEGER NULL REFERENCES tbl_stores(store_id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE tbl_order (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL,
		products_id INTEGER NOT NULL REFERENCES tbl_products(products_id),
		products_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		disquantity INTEGER NOT NULL DEFAULT 0 CHECK (disquantity >= 0 AND disquantity <= quantity),
		email TEXT NOT NULL,
		receipt_barcode TEXT NULL,
		store_id INTEGER NOT NULL REFERENCES tbl_stores(store_id),
		price_per_unit NUMERIC NOT NULL DEFAULT 0,
		order_date DATETIME NOT NULL
	)`,
	`CREATE INDEX ix_order_store_order ON tbl_order (store_id, order_id)`,
	`CREATE INDEX ix_order_receipt ON tbl_order (receipt_barcode)`,
	`CREATE TABLE tbl_bin (
		category_id INTEGER NOT NULL,
		store_id INTEGER NOT NULL,
		value INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (category_id, store_id)
	)`,
	`CREATE TABLE tbl_order_sequences (
		store_id INTEGER PRIMARY KEY,
		last_order_id INTEGER NOT NULL
	)`,
	`CREATE TABLE tbl_stock_movements (
		id INTEGER PRIMARY KEY,
		products_id INTEGER NOT NULL,
		store_id INTEGER NULL,
		kind TEXT NOT NULL,
		quantity_delta INTEGER NOT NULL,
		stock_before INTEGER NOT NULL,
		stock_after INTEGER NOT NULL,
		reference_type TEXT NOT NULL DEFAULT '',
		reference_id TEXT NOT NULL DEFAULT '',
		correlation_id TEXT NOT NULL DEFAULT '',
		metadata TEXT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE tbl_sessions (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE tbl_audit_logs (
		id INTEGER PRIMARY KEY,
		store_id INTEGER NULL,
		actor_type TEXT NOT NULL,
		actor_id TEXT NULL,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NULL,
		metadata TEXT NULL,
		ip_address TEXT NULL,
		user_agent TEXT NULL,
		created_at DATETIME NOT NULL
	)`,
}
