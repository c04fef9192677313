package resolver

import (
	"strings"
	"text/template"

	"github.com/barekit/givingfaq/pkg/knowledge"
)

// PromptTemplate renders the grounding prompt for one display language.
// It receives a promptData value.
type PromptTemplate = *template.Template

type promptData struct {
	Query   string
	Context string
}

var defaultPrompts = map[knowledge.Language]PromptTemplate{
	knowledge.LanguageSimplifiedChinese: template.Must(template.New("zh").Parse(
		`你是一个教会的问答助手。请根据以下问题与相关内容以及Church Center软件的了解，用简洁、清楚、亲切的语气回答提问者的问题。回复的文字和提问者所使用文字保持一致。

问题: {{.Query}}
相关内容: {{.Context}}

请生成回答：`)),
	knowledge.LanguageTraditionalChinese: template.Must(template.New("zh-TW").Parse(
		`你是一個教會的問答助手。請根據以下問題與相關內容以及Church Center軟體的了解，用簡潔、清楚、親切的語氣回答提問者的問題。回覆的文字和提問者所使用文字保持一致。

問題: {{.Query}}
相關內容: {{.Context}}

請生成回答：`)),
	knowledge.LanguageEnglish: template.Must(template.New("en").Parse(
		`You are a church Q&A assistant. Using the question, the related content below and your knowledge of the Church Center app, answer the asker briefly, clearly and warmly. Reply in the same language the asker used.

Question: {{.Query}}
Related content: {{.Context}}

Answer:`)),
}

func renderPrompt(tmpl PromptTemplate, query, context string) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, promptData{Query: query, Context: context}); err != nil {
		return "", err
	}
	return b.String(), nil
}
