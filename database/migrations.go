package database

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"gorm.io/gorm"
)

// BackupDatabase writes a SQL dump to outPath via mysqldump. Transaction
// state cannot be rebuilt from the gateway, so schema changes get a dump
// first when a backup path is configured.
func BackupDatabase(outPath string) error {
	if _, err := exec.LookPath("mysqldump"); err != nil {
		return fmt.Errorf("mysqldump not found in PATH: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	// Connection flags come from DB_BACKUP_FLAGS (e.g. --defaults-file)
	cmd := exec.Command("mysqldump", strings.Fields(os.Getenv("DB_BACKUP_FLAGS"))...)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysqldump failed: %w", err)
	}
	return nil
}

// RunMigrationsWithBackup runs AutoMigrate for the given models. When
// DB_BACKUP_PATH is set the dump runs first and a dump failure aborts the
// migration.
func RunMigrationsWithBackup(db *gorm.DB, models ...interface{}) error {
	if backupPath := os.Getenv("DB_BACKUP_PATH"); backupPath != "" {
		if err := BackupDatabase(backupPath); err != nil {
			return fmt.Errorf("pre-migration backup: %w", err)
		}
		log.Printf("[database] wrote pre-migration dump to %s", backupPath)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.AutoMigrate(models...); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
