package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/order/domain"
	productdomain "github.com/smallbiznis/trashforcoin/internal/product/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const lineColumns = `id, order_id, products_id, products_name, quantity, disquantity, email, receipt_barcode, store_id, price_per_unit, order_date`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindProduct(ctx context.Context, db *gorm.DB, productID int64) (*productdomain.Product, error) {
	var product productdomain.Product
	err := db.WithContext(ctx).Where("products_id = ?", productID).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductByBarcode prefers the store's own product over a global one sharing the code.
func (r *repo) FindProductByBarcode(ctx context.Context, db *gorm.DB, code string, storeID int64) (*productdomain.Product, error) {
	var product productdomain.Product
	err := db.WithContext(ctx).
		Where("barcode_id = ?", code).
		Where("(store_id = ? OR store_id IS NULL)", storeID).
		Order("CASE WHEN store_id IS NULL THEN 1 ELSE 0 END").
		Order("products_id").
		Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) LockLine(ctx context.Context, db *gorm.DB, lineID int64) (*domain.Line, error) {
	var line domain.Line
	err := db.WithContext(ctx).Raw(
		`SELECT `+lineColumns+`
		 FROM tbl_order
		 WHERE id = ?
		 FOR UPDATE`,
		lineID,
	).Scan(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (r *repo) LockOpenLine(ctx context.Context, db *gorm.DB, key domain.OpenLineKey) (*domain.Line, error) {
	var line domain.Line
	err := db.WithContext(ctx).Raw(
		`SELECT `+lineColumns+`
		 FROM tbl_order
		 WHERE order_id = ? AND products_id = ? AND store_id = ? AND LOWER(email) = ? AND receipt_barcode IS NULL
		 ORDER BY id
		 LIMIT 1
		 FOR UPDATE`,
		key.OrderID,
		key.ProductID,
		key.StoreID,
		strings.ToLower(strings.TrimSpace(key.Email)),
	).Scan(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (r *repo) FindLine(ctx context.Context, db *gorm.DB, lineID int64, scope access.Scope) (*domain.Line, error) {
	var line domain.Line
	stmt := scope.Apply(db.WithContext(ctx).Model(&domain.Line{}), "store_id", "email")
	err := stmt.Where("id = ?", lineID).Take(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *domain.Line) error {
	return db.WithContext(ctx).Create(line).Error
}

func (r *repo) UpdateLine(ctx context.Context, db *gorm.DB, line *domain.Line) error {
	return db.WithContext(ctx).Model(&domain.Line{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{
			"products_id":    line.ProductID,
			"products_name":  line.ProductName,
			"quantity":       line.Quantity,
			"disquantity":    line.Disquantity,
			"price_per_unit": line.PricePerUnit,
		}).Error
}

func (r *repo) DeleteLine(ctx context.Context, db *gorm.DB, lineID int64) error {
	return db.WithContext(ctx).Where("id = ?", lineID).Delete(&domain.Line{}).Error
}

func (r *repo) ListOpenLines(ctx context.Context, db *gorm.DB, filter domain.OpenLinesFilter) ([]*domain.Line, error) {
	var lines []*domain.Line
	stmt := db.WithContext(ctx).
		Where("order_id = ? AND store_id = ?", filter.OrderID, filter.StoreID).
		Where("receipt_barcode IS NULL")
	if email := strings.ToLower(strings.TrimSpace(filter.Email)); email != "" {
		stmt = stmt.Where("LOWER(email) = ?", email)
	}
	if err := stmt.Order("id").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) LockReceiptLines(ctx context.Context, db *gorm.DB, receiptBarcode string) ([]*domain.Line, error) {
	var lines []*domain.Line
	err := db.WithContext(ctx).Raw(
		`SELECT `+lineColumns+`
		 FROM tbl_order
		 WHERE receipt_barcode = ?
		 ORDER BY id
		 FOR UPDATE`,
		receiptBarcode,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) FindReceiptLines(ctx context.Context, db *gorm.DB, receiptBarcode string, scope access.Scope) ([]*domain.Line, error) {
	var lines []*domain.Line
	stmt := scope.Apply(db.WithContext(ctx).Model(&domain.Line{}), "store_id", "email")
	if err := stmt.Where("receipt_barcode = ?", receiptBarcode).Order("id").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Line, int64, error) {
	stmt := r.listQuery(db.WithContext(ctx), filter)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var lines []*domain.Line
	err := r.listQuery(db.WithContext(ctx), filter).
		Order("id desc").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		Find(&lines).Error
	if err != nil {
		return nil, 0, err
	}
	return lines, total, nil
}

func (r *repo) listQuery(db *gorm.DB, filter domain.ListFilter) *gorm.DB {
	stmt := filter.Scope.Apply(db.Model(&domain.Line{}), "store_id", "email")
	if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
		stmt = stmt.Where("order_id = ?", orderID)
	}
	if receipt := strings.TrimSpace(filter.ReceiptBarcode); receipt != "" {
		stmt = stmt.Where("receipt_barcode = ?", receipt)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where(
			"(LOWER(order_id) LIKE ? OR LOWER(products_name) LIKE ? OR LOWER(email) LIKE ? OR receipt_barcode LIKE ?)",
			like, like, like, like,
		)
	}
	return stmt
}

// MaxNumericOrderID returns the largest all-digit order id used in the store, or 0.
// Ids entered by hand may be free text; those are skipped.
func (r *repo) MaxNumericOrderID(ctx context.Context, db *gorm.DB, storeID int64) (int64, error) {
	var ids []string
	err := db.WithContext(ctx).Model(&domain.Line{}).
		Where("store_id = ?", storeID).
		Distinct("order_id").
		Pluck("order_id", &ids).Error
	if err != nil {
		return 0, err
	}

	var highest int64
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || strings.TrimLeft(id, "0123456789") != "" {
			continue
		}
		value, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		if value > highest {
			highest = value
		}
	}
	return highest, nil
}

func (r *repo) LockSequence(ctx context.Context, db *gorm.DB, storeID int64) (*domain.Sequence, error) {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Sequence{StoreID: storeID}).Error
	if err != nil {
		return nil, err
	}

	var seq domain.Sequence
	err = db.WithContext(ctx).Raw(
		`SELECT store_id, last_order_id
		 FROM tbl_order_sequences
		 WHERE store_id = ?
		 FOR UPDATE`,
		storeID,
	).Scan(&seq).Error
	if err != nil {
		return nil, err
	}
	if seq.StoreID == 0 {
		return nil, nil
	}
	return &seq, nil
}

func (r *repo) SaveSequence(ctx context.Context, db *gorm.DB, seq *domain.Sequence) error {
	return db.WithContext(ctx).Model(&domain.Sequence{}).
		Where("store_id = ?", seq.StoreID).
		Update("last_order_id", seq.LastOrderID).Error
}

func (r *repo) CountReceiptBarcode(ctx context.Context, db *gorm.DB, code string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Line{}).
		Where("receipt_barcode = ?", code).
		Count(&count).Error
	return count, err
}

func (r *repo) StampReceipt(ctx context.Context, db *gorm.DB, lineIDs []int64, code string) error {
	if len(lineIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&domain.Line{}).
		Where("id IN ?", lineIDs).
		Update("receipt_barcode", code).Error
}
