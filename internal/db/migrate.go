package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
)

// migrationLockKey ключ pg_advisory_lock: несколько инстансов не накатывают схему одновременно.
const migrationLockKey int64 = 0x617374726f

// Migration один SQL файл схемы.
type Migration struct {
	Name     string
	SQL      string
	Checksum string
}

// LoadMigrations читает *.sql из корня fsys по возрастанию имени. Пустые файлы пропускаются.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось прочитать каталог миграций: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		body, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("postgres: не удалось прочитать миграцию %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(body)) == "" {
			continue
		}
		sum := sha256.Sum256(body)
		migrations = append(migrations, Migration{
			Name:     entry.Name(),
			SQL:      string(body),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})
	return migrations, nil
}

// PlanMigrations делит миграции на ещё не выполненные и выполненные, но изменённые после наката.
// applied: имя -> checksum из schema_migrations, пустой checksum у старых записей не сверяется.
func PlanMigrations(all []Migration, applied map[string]string) (pending []Migration, drifted []string) {
	for _, m := range all {
		sum, ok := applied[m.Name]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if sum != "" && sum != m.Checksum {
			drifted = append(drifted, m.Name)
		}
	}
	return pending, drifted
}

// RunMigrations выполняет SQL файлы из каталога с миграциями.
func RunMigrations(ctx context.Context, conn *sqlx.DB, migrationsDir string) error {
	return RunMigrationsFS(ctx, conn, os.DirFS(migrationsDir))
}

// RunMigrationsFS накатывает миграции из fsys под advisory lock, каждую в своей транзакции.
func RunMigrationsFS(ctx context.Context, conn *sqlx.DB, fsys fs.FS) error {
	all, err := LoadMigrations(fsys)
	if err != nil {
		return err
	}

	// advisory lock живёт на соединении, поэтому вся работа идёт через одно
	c, err := conn.Connx(ctx)
	if err != nil {
		return fmt.Errorf("postgres: не удалось получить соединение для миграций: %w", err)
	}
	defer c.Close()

	if _, err := c.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("postgres: не удалось взять блокировку миграций: %w", err)
	}
	defer func() {
		if _, err := c.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockKey); err != nil {
			logger.Entry(logrus.Fields{"error": err}).Warn("Migration lock release failed")
		}
	}()

	if err := initMigrationsTable(ctx, c); err != nil {
		return fmt.Errorf("postgres: не удалось инициализировать таблицу миграций: %w", err)
	}

	applied, err := appliedMigrations(ctx, c)
	if err != nil {
		return fmt.Errorf("postgres: не удалось прочитать выполненные миграции: %w", err)
	}

	pending, drifted := PlanMigrations(all, applied)
	for _, name := range drifted {
		logger.Entry(logrus.Fields{"migration": name}).Warn("Applied migration file changed on disk")
	}

	for _, m := range pending {
		if err := applyMigration(ctx, c, m); err != nil {
			return err
		}
		logger.Entry(logrus.Fields{"migration": m.Name, "checksum": m.Checksum[:12]}).Info("Migration applied")
	}
	return nil
}

func initMigrationsTable(ctx context.Context, c *sqlx.Conn) error {
	_, err := c.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		ALTER TABLE schema_migrations ADD COLUMN IF NOT EXISTS checksum TEXT NOT NULL DEFAULT ''
	`)
	return err
}

func appliedMigrations(ctx context.Context, c *sqlx.Conn) (map[string]string, error) {
	var rows []struct {
		Name     string `db:"name"`
		Checksum string `db:"checksum"`
	}
	if err := c.SelectContext(ctx, &rows, `SELECT name, checksum FROM schema_migrations`); err != nil {
		return nil, err
	}
	applied := make(map[string]string, len(rows))
	for _, r := range rows {
		applied[r.Name] = r.Checksum
	}
	return applied, nil
}

func applyMigration(ctx context.Context, c *sqlx.Conn, m Migration) error {
	tx, err := c.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: не удалось начать транзакцию для миграции %s: %w", m.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("postgres: не удалось выполнить миграцию %s: %w", m.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (name, checksum) VALUES ($1, $2)`, m.Name, m.Checksum); err != nil {
		return fmt.Errorf("postgres: не удалось отметить миграцию %s как выполненную: %w", m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: не удалось зафиксировать миграцию %s: %w", m.Name, err)
	}
	return nil
}
