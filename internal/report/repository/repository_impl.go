package repository

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/report/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func count(ctx context.Context, db *gorm.DB, table string, scope access.Scope, storeCol, emailCol string, where ...string) (int64, error) {
	var total int64
	stmt := scope.Apply(db.WithContext(ctx).Table(table), storeCol, emailCol)
	for _, clause := range where {
		stmt = stmt.Where(clause)
	}
	if err := stmt.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) CountStores(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error) {
	return count(ctx, db, "tbl_stores", scope, "store_id", "")
}

func (r *repo) CountUsers(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error) {
	return count(ctx, db, "tbl_users", scope, "store_id", "")
}

func (r *repo) CountCategories(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error) {
	return count(ctx, db, "tbl_category", scope, "store_id", "")
}

func (r *repo) CountProducts(ctx context.Context, db *gorm.DB, scope access.Scope, lowStock int64) (int64, int64, int64, error) {
	var row struct {
		Products   int64 `gorm:"column:products"`
		LowStock   int64 `gorm:"column:low_stock"`
		StockUnits int64 `gorm:"column:stock_units"`
	}
	err := scope.Apply(db.WithContext(ctx).Table("tbl_products"), "store_id", "").
		Select(
			`COUNT(*) AS products,
			 COALESCE(SUM(CASE WHEN stock_quantity <= ? THEN 1 ELSE 0 END), 0) AS low_stock,
			 COALESCE(SUM(stock_quantity), 0) AS stock_units`,
			lowStock,
		).
		Scan(&row).Error
	if err != nil {
		return 0, 0, 0, err
	}
	return row.Products, row.LowStock, row.StockUnits, nil
}

// CountOrders counts checked out orders. Every order carries exactly one receipt barcode.
func (r *repo) CountOrders(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error) {
	var total int64
	err := scope.Apply(db.WithContext(ctx).Table("tbl_order"), "store_id", "email").
		Where("receipt_barcode IS NOT NULL AND receipt_barcode <> ''").
		Select("COUNT(DISTINCT receipt_barcode)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) CountOpenLines(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error) {
	return count(ctx, db, "tbl_order", scope, "store_id", "email", "(receipt_barcode IS NULL OR receipt_barcode = '')")
}

func (r *repo) CountFlaggedBins(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error) {
	return count(ctx, db, "tbl_bin", scope, "store_id", "", "value = 1")
}

func (r *repo) ListOrders(ctx context.Context, db *gorm.DB, filter domain.OrderFilter) ([]domain.OrderRow, int64, error) {
	listQuery := func() *gorm.DB {
		stmt := db.WithContext(ctx).
			Table("tbl_order AS o").
			Joins("JOIN tbl_products AS p ON p.products_id = o.products_id").
			Joins("JOIN tbl_category AS c ON c.id = p.category_id").
			Joins("JOIN tbl_stores AS s ON s.store_id = o.store_id")
		stmt = filter.Scope.Apply(stmt, "o.store_id", "o.email")
		if code := strings.TrimSpace(filter.ReceiptBarcode); code != "" {
			stmt = stmt.Where("o.receipt_barcode = ?", code)
		}
		if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
			like := "%" + search + "%"
			stmt = stmt.Where("(LOWER(o.products_name) LIKE ? OR LOWER(o.email) LIKE ? OR o.order_id = ?)", like, like, search)
		}
		if filter.From != nil {
			stmt = stmt.Where("o.order_date >= ?", *filter.From)
		}
		if filter.To != nil {
			stmt = stmt.Where("o.order_date < ?", *filter.To)
		}
		if filter.CompletedOnly {
			stmt = stmt.Where("o.receipt_barcode IS NOT NULL AND o.receipt_barcode <> ''")
		}
		return stmt
	}

	var total int64
	if err := listQuery().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []domain.OrderRow
	err := listQuery().
		Select(
			`o.id AS line_id, o.order_id, o.receipt_barcode, o.order_date, o.email,
			 o.store_id, s.store_name, o.products_id, o.products_name,
			 p.category_id, c.category_name, o.quantity, o.disquantity,
			 o.price_per_unit, p.price AS catalog_price`,
		).
		Order("o.order_date DESC").
		Order("o.id DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	for i := range rows {
		rows[i].Subtotal = rows[i].PricePerUnit.Mul(decimal.NewFromInt(rows[i].Quantity))
	}
	return rows, total, nil
}

// StoreSnapshots covers store owned rows only; global products belong to no store.
func (r *repo) StoreSnapshots(ctx context.Context, db *gorm.DB, lowStock int64) ([]domain.StoreSnapshot, error) {
	var rows []domain.StoreSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT s.store_id, s.store_name, s.slug,
		        (SELECT COUNT(*) FROM tbl_products p WHERE p.store_id = s.store_id) AS products,
		        (SELECT COALESCE(SUM(p.stock_quantity), 0) FROM tbl_products p WHERE p.store_id = s.store_id) AS stock_units,
		        (SELECT COUNT(*) FROM tbl_products p WHERE p.store_id = s.store_id AND p.stock_quantity <= ?) AS low_stock,
		        (SELECT COUNT(*) FROM tbl_bin b WHERE b.store_id = s.store_id AND b.value = 1) AS flagged_bins,
		        (SELECT COUNT(*) FROM tbl_order o WHERE o.store_id = s.store_id
		            AND (o.receipt_barcode IS NULL OR o.receipt_barcode = '')) AS open_cart_lines
		 FROM tbl_stores s
		 ORDER BY s.store_id ASC`,
		lowStock,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
