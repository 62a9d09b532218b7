package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskmanager/internal/app"
	"taskmanager/internal/server"
)

func main() {
	log.Println("Запуск сервиса задач...")

	cfg := server.ReadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.Open(ctx, cfg, app.Options{AllowMemoryFallback: true})
	if err != nil {
		log.Fatalf("[ERROR] Не удалось инициализировать хранилище: %v", err)
	}
	defer application.Close()

	if cfg.Seed {
		seeded, err := application.Services.Seeder.Seed(ctx)
		if err != nil {
			log.Printf("[ERROR] Ошибка заполнения демо-данными: %v", err)
		} else if seeded {
			log.Println("[SUCCESS] База заполнена демо-данными")
		}
	}

	api := server.NewTaskAPI(application.Services, cfg)
	if api == nil {
		log.Fatal("[ERROR] Не удалось инициализировать API")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Сервис запущен на %s", cfg.ListenAddr())
		if err := api.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] Получен сигнал %v, начинаем graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] Ошибка при graceful shutdown: %v", err)
		} else {
			log.Println("[SUCCESS] Graceful shutdown выполнен успешно")
		}

	case err := <-serverErr:
		log.Printf("[ERROR] Ошибка сервера: %v", err)
		cancel()
	}

	log.Println("Сервис завершен")
}
