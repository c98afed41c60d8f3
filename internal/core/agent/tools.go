package agent

// KnowledgeBaseToolName はナレッジベース検索ツールの名前
const KnowledgeBaseToolName = "query_knowledge_base"

// knowledgeBaseTool はナレッジベース検索ツールの定義を返す。
// モデルには検索効率を上げるためのクエリ書き換えを要求する。
func knowledgeBaseTool() ToolDefinition {
	return ToolDefinition{
		Name:        KnowledgeBaseToolName,
		Description: "Retrieves relevant documents from the knowledge base",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"rewritten_query": map[string]any{
					"type": "string",
					"description": "The rewritten query to search for. " +
						"Ensure this query is optimized for search and " +
						"more effective than the original query. " +
						"Include synonyms and alternative phrasing if necessary.",
				},
			},
			"required": []string{"rewritten_query"},
		},
	}
}
