package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/pdf-rag/internal/core/knowledge"
)

// DeleteAction はドキュメントを削除するコマンドのアクション
func DeleteAction(ctx context.Context, cmd *cli.Command) error {
	tenant := cmd.String("tenant")
	envFile := cmd.String("env")

	documentID, err := uuid.Parse(cmd.String("document-id"))
	if err != nil {
		return fmt.Errorf("document-id が不正です: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Service.Delete(ctx, tenant, documentID); err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			return fmt.Errorf("ドキュメントが見つかりません: %s", documentID)
		}
		slog.Error("削除に失敗しました", "error", err)
		return err
	}

	fmt.Printf("ドキュメントを削除しました: %s\n", documentID)
	return nil
}
