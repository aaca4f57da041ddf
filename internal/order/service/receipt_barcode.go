package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/smallbiznis/trashforcoin/internal/order/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	receiptFloor = big.NewInt(1_000_000_000_000)
	receiptSpan  = big.NewInt(9_000_000_000_000)
)

// randomReceiptBarcode draws a 13 digit code with no leading zero.
func randomReceiptBarcode() (string, error) {
	n, err := rand.Int(rand.Reader, receiptSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%013d", n.Add(n, receiptFloor)), nil
}

// issueReceiptBarcode draws codes until one is unused by any order line.
func (s *Service) issueReceiptBarcode(ctx context.Context, tx *gorm.DB) (string, error) {
	attempts := s.operations.Get().ReceiptBarcodeAttempts
	for i := 0; i < attempts; i++ {
		code, err := s.receiptCode()
		if err != nil {
			return "", err
		}
		count, err := s.repo.CountReceiptBarcode(ctx, tx, code)
		if err != nil {
			return "", db.Infra(err)
		}
		if count == 0 {
			return code, nil
		}
		s.consistency.IncReceiptBarcodeCollision()
	}
	return "", domain.ErrReceiptBarcodeExhausted
}

func derefLines(items []*domain.Line) []domain.Line {
	lines := make([]domain.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, *item)
	}
	return lines
}

func paginationInfo(page pagination.Pagination, total int64) pagination.PageInfo {
	return pagination.BuildPageInfo(page, total)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
