package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/pdf-rag/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "pdf-rag",
		Usage: "PDFナレッジベース向けマルチテナント RAG システム",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "HTTPサーバを起動",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "HTTPポート（省略時は環境変数またはデフォルトの8080）",
					},
				},
				Action: appcli.ServeAction,
			},
			{
				Name:      "index",
				Usage:     "ローカルファイルをインデックス化",
				ArgsUsage: "<file> [<file>...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "テナント名",
						Required: true,
					},
				},
				Action: appcli.IndexAction,
			},
			{
				Name:      "ask",
				Usage:     "ナレッジベースを参照して質問に回答",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "テナント名",
					},
					&cli.BoolFlag{
						Name:  "no-rag",
						Usage: "ナレッジベースを参照せずモデルの知識のみで回答",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "delete",
				Usage: "ドキュメントを削除",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "tenant",
						Usage:    "テナント名",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "document-id",
						Usage:    "削除するドキュメントのID",
						Required: true,
					},
				},
				Action: appcli.DeleteAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
