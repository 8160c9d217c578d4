// Package receipts renders the PDF settlement artifact and hands it to
// the document store. Receipt issuance is best-effort: a failed render
// or upload is logged by the caller and never reverts a settlement.
package receipts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"

	"rentdesk/config"
	"rentdesk/database"
	"rentdesk/utils"
)

// Store persists a binary artifact and returns a durable URL for it.
type Store interface {
	Put(key string, data []byte) (string, error)
}

// S3Store uploads artifacts to an S3 bucket.
type S3Store struct {
	uploader *s3manager.Uploader
	bucket   string
	region   string
}

// NewS3Store builds an uploader against the configured bucket.
func NewS3Store(bucket, region string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}
	return &S3Store{
		uploader: s3manager.NewUploader(sess),
		bucket:   bucket,
		region:   region,
	}, nil
}

func (s *S3Store) Put(key string, data []byte) (string, error) {
	out, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", err
	}
	return out.Location, nil
}

// LocalStore writes artifacts to a directory. Development and test
// fallback when no bucket is configured.
type LocalStore struct {
	Dir string
}

func (s *LocalStore) Put(key string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, os.ModePerm); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return "file://" + path, nil
}

// NewStoreFromConfig picks S3 when a bucket is configured, local disk
// otherwise.
func NewStoreFromConfig() (Store, error) {
	if config.AppConfig.S3Bucket != "" {
		return NewS3Store(config.AppConfig.S3Bucket, config.AppConfig.S3Region)
	}
	return &LocalStore{Dir: config.AppConfig.ReceiptDir}, nil
}

// GeneratePDF renders the receipt document.
func GeneratePDF(payment *database.Payment, receiptNumber, tenantName, propertyName string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "RentDesk Payment Receipt")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 11)
	paidAt := time.Now()
	if payment.PaidDate != nil {
		paidAt = *payment.PaidDate
	}

	rows := [][2]string{
		{"Receipt No", receiptNumber},
		{"Payment ID", fmt.Sprintf("%d", payment.ID)},
		{"Tenant", tenantName},
		{"Property", propertyName},
		{"Amount", utils.FormatCents(payment.AmountCents)},
		{"Method", payment.Method},
		{"Transaction ID", payment.TransactionID},
		{"Paid On", paidAt.Format("2006-01-02")},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Issue renders, stores and records the receipt for a settled payment.
// A re-settled payment gets a fresh Receipt row; existing rows are
// never touched.
func Issue(db *gorm.DB, store Store, payment *database.Payment) (*database.Receipt, error) {
	var lease database.Lease
	if err := db.Preload("Tenant.User").Preload("Property").First(&lease, payment.LeaseID).Error; err != nil {
		return nil, err
	}

	receiptNumber := "RCPT-" + time.Now().Format("20060102") + "-" +
		strings.ToUpper(uuid.New().String()[:8])

	pdfData, err := GeneratePDF(payment, receiptNumber, lease.Tenant.User.Name, lease.Property.Name)
	if err != nil {
		return nil, fmt.Errorf("receipt render failed: %w", err)
	}

	url, err := store.Put(receiptNumber+".pdf", pdfData)
	if err != nil {
		return nil, fmt.Errorf("receipt upload failed: %w", err)
	}

	receipt := database.Receipt{
		PaymentID:     payment.ID,
		ReceiptNumber: receiptNumber,
		AmountCents:   payment.AmountCents,
		URL:           url,
	}
	if err := db.Create(&receipt).Error; err != nil {
		return nil, fmt.Errorf("receipt record failed: %w", err)
	}
	return &receipt, nil
}
