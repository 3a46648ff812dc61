// Rowpipe — превращает строки CSV в упорядоченные серии HTTP-запросов.
//
// Использование:
//
//	rowpipe [--settings FILE] [--json] <command> [flags]
//
// Команды:
//
//	run       Обработать таблицу
//	init      Сгенерировать файл запросов по заголовкам CSV
//	validate  Проверить файл запросов
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shaiso/Rowpipe/internal/cli"
	"github.com/shaiso/Rowpipe/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// .env необязателен
	_ = godotenv.Load()

	logger := telemetry.SetupLogger()

	// graceful shutdown: прерывание останавливает пакет между строками
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd(version, logger).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
