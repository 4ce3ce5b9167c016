package credit

import (
	"context"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
)

// ReceiptNumberGenerator issues the receipt number shared by the ledger lines of one payment
type ReceiptNumberGenerator interface {
	NextReceiptNo() string
}

// PortfolioRenderer turns the installment portfolio into a downloadable file
type PortfolioRenderer interface {
	RenderPortfolio(rows []PortfolioRow, stats credit.PortfolioStats, generatedAt time.Time) ([]byte, error)
	ContentType() string
}

// ExportStorage keeps rendered exports and hands out download links
type ExportStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}
