package db

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migration применяет все миграции из migratePath к базе dbDSN.
func Migration(dbDSN, migratePath string) error {
	if dbDSN == "" {
		return fmt.Errorf("пустая строка подключения к БД")
	}
	if migratePath == "" {
		return fmt.Errorf("не указан путь к миграциям")
	}

	m, err := migrate.New("file://"+migratePath, dbDSN)
	if err != nil {
		log.Println("[ERROR] Не удалось инициализировать миграции:", err)
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Println("[WARN] Ошибка закрытия миграций:", srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Println("[ERROR] Ошибка применения миграций:", err)
		return err
	}
	version, dirty, err := m.Version()
	if err == nil {
		log.Printf("[SUCCESS] Версия схемы: %d (dirty=%v)", version, dirty)
	}
	return nil
}
