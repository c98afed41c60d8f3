package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	tenant := cmd.String("tenant")
	noRAG := cmd.Bool("no-rag")
	envFile := cmd.String("env")

	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}
	if !noRAG && tenant == "" {
		return fmt.Errorf("--tenant を指定してください（--no-rag 指定時は不要）")
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	// --no-rag 指定時はナレッジベースを参照せずモデルの知識のみで回答する
	if noRAG {
		answer, err := appCtx.Service.GenerateWithoutKnowledgeBase(ctx, question)
		if err != nil {
			slog.Error("回答生成に失敗しました", "error", err)
			return err
		}
		fmt.Println(answer)
		return nil
	}

	slog.Info("質問応答を開始", "tenant", tenant, "question", question)

	result, err := appCtx.Service.Generate(ctx, tenant, question)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	fmt.Println(result.Response)

	// 発行されたサブクエリと取得チャンク数を表示する
	if len(result.Queries) > 0 {
		fmt.Println("\n--- 検索クエリ ---")
		for i, q := range result.Queries {
			fmt.Printf("[%d] %s (%d件取得)\n", i+1, q.Query, len(q.RetrievedIDs))
		}
	}

	slog.Info("質問応答が完了しました", "queries", len(result.Queries))
	return nil
}
