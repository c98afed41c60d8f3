package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	httpiface "github.com/jinford/pdf-rag/internal/interface/http"
)

// ServeAction は HTTP サーバを起動するコマンドのアクション
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	addr := appCtx.Container.Config().HTTP.Addr
	if port := cmd.Int("port"); port > 0 {
		addr = fmt.Sprintf(":%d", port)
	}

	handler := httpiface.NewHandler(appCtx.Service)

	if err := httpiface.Serve(ctx, addr, handler, appCtx.Logger()); err != nil {
		slog.Error("HTTPサーバが異常終了しました", "error", err)
		return err
	}

	return nil
}
