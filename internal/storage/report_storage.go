package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

const reportFileName = "report.pdf"

var (
	// ErrNotPDF содержимое файла не является PDF.
	ErrNotPDF = errors.New("storage: only PDF files are supported")
	// ErrTooLarge файл превышает лимит загрузки.
	ErrTooLarge = errors.New("storage: file exceeds upload limit")
	// ErrReportMissing отчёт для консультации ещё не загружен.
	ErrReportMissing = errors.New("storage: report not found")
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// ReportStorage хранит PDF-отчёты консультаций на диске: один файл на консультацию.
type ReportStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewReportStorage создаёт файловое хранилище отчётов.
func NewReportStorage(rootPath string, maxUploadMB int64) (*ReportStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &ReportStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// MaxUploadBytes лимит размера отчёта.
func (s *ReportStorage) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Save проверяет магические байты и атомарно заменяет отчёт консультации.
func (s *ReportStorage) Save(ctx context.Context, consultationID uuid.UUID, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	head := make([]byte, 262)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	head = head[:n]
	if !filetype.Is(head, "pdf") {
		return 0, ErrNotPDF
	}

	dir := filepath.Join(s.rootPath, consultationID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("storage: не удалось создать каталог консультации: %w", err)
	}

	targetPath := filepath.Join(dir, reportFileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return 0, ErrTooLarge
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return written, nil
}

// Open открывает отчёт консультации на чтение.
func (s *ReportStorage) Open(ctx context.Context, consultationID uuid.UUID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.rootPath, consultationID.String(), reportFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrReportMissing
		}
		return nil, fmt.Errorf("storage: не удалось открыть файл: %w", err)
	}
	return f, nil
}

// Delete удаляет отчёт консультации.
func (s *ReportStorage) Delete(ctx context.Context, consultationID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, consultationID.String(), reportFileName)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// SanitizeFilename оставляет в имени только безопасные символы.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" {
		name = "consultation-report.pdf"
	}
	return name
}
