package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/jinford/pdf-rag/internal/core/ingestion"
)

// IndexAction はローカルファイルをインデックス化するコマンドのアクション
func IndexAction(ctx context.Context, cmd *cli.Command) error {
	tenant := cmd.String("tenant")
	envFile := cmd.String("env")

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("インデックス化するファイルを指定してください")
	}

	slog.Info("インデックス化を開始", "tenant", tenant, "files", len(paths))

	files := make([]ingestion.UploadFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ファイル読み込みに失敗 (%s): %w", path, err)
		}
		files = append(files, ingestion.UploadFile{
			Name: filepath.Base(path),
			Data: data,
		})
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	results, err := appCtx.Service.Upload(ctx, tenant, files)
	if err != nil {
		slog.Error("インデックス化に失敗しました", "error", err)
		return err
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("NG %s: %v\n", r.Name, r.Err)
			continue
		}
		fmt.Printf("OK %s: document_id=%s chunks=%d (%s)\n",
			r.Name, r.Result.DocumentID, r.Result.ChunkCount, r.Result.Duration)
	}

	if failed > 0 {
		return fmt.Errorf("%d/%d 件のファイルが失敗しました", failed, len(results))
	}

	slog.Info("インデックス化が完了しました", "files", len(results))
	return nil
}
