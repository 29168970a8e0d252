package fields

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"univ_financials/pkg/core/prompt"
)

// fieldPromptPrefix + key is consulted before the built-in field template.
const fieldPromptPrefix = "fields."

const defaultSystemPrompt = "あなたは国立大学法人の財務諸表を正確に読み取る会計担当者です。" +
	"表に印刷されている数値だけを答え、推測や計算はしないでください。"

const fieldPromptTmpl = `このPDFファイルの{{.Location}}から{{.Subject}}の値を正確に抽出してください。

重要な指示：
{{- range $i, $step := .Steps}}
{{inc $i}}. {{$step}}
{{- end}}
{{- if .Avoid}}

注意：{{.Avoid}}ではなく、必ず{{.Subject}}を抽出してください。
{{- end}}

回答は抽出した値のみを返してください。説明は不要です。`

var builtinTemplate = template.Must(template.New("field").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(fieldPromptTmpl))

// PromptRenderer turns catalog fields into prompts. Prompts registered as
// "fields.<key>" in the registry replace the built-in template for that field.
type PromptRenderer struct {
	Registry *prompt.Registry
}

// SystemPrompt returns the registry's extraction system prompt or the default.
func (r *PromptRenderer) SystemPrompt() string {
	return r.Registry.SystemPromptOr(prompt.ExtractionSystemID, defaultSystemPrompt)
}

// Render builds the prompt for f.
func (r *PromptRenderer) Render(f Field) (string, error) {
	builtin, err := renderBuiltin(f)
	if err != nil {
		return "", err
	}
	return r.Registry.UserPromptOr(fieldPromptPrefix+f.Key, templateVariables(f), builtin)
}

func renderBuiltin(f Field) (string, error) {
	subject := f.SubjectText()

	steps := append([]string{}, f.Steps...)
	if f.Page > 0 && !locationHasPage(f) {
		steps = append(steps, "該当する表は"+strconv.Itoa(f.Page)+"ページ付近にあります")
	}
	steps = append(steps,
		subject+"に対応する金額（千円単位）を抽出してください",
		"値が△記号で始まっている場合は、それは負の値を意味します",
	)
	if f.Example != "" {
		steps = append(steps, "抽出した値をそのまま返してください（例："+f.Example+"）")
	} else {
		steps = append(steps, "抽出した値をそのまま返してください")
	}

	var avoid string
	if len(f.Avoid) > 0 {
		quoted := make([]string, len(f.Avoid))
		for i, a := range f.Avoid {
			quoted[i] = "「" + a + "」"
		}
		avoid = strings.Join(quoted, "")
	}

	var buf bytes.Buffer
	err := builtinTemplate.Execute(&buf, map[string]interface{}{
		"Location": f.Location,
		"Subject":  subject,
		"Steps":    steps,
		"Avoid":    avoid,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt for %s: %w", f.Key, err)
	}
	return buf.String(), nil
}

func templateVariables(f Field) map[string]interface{} {
	return map[string]interface{}{
		"Key":       f.Key,
		"Statement": f.Statement,
		"Category":  f.Category,
		"Account":   f.Account,
		"Location":  f.Location,
		"Subject":   f.SubjectText(),
		"Page":      f.Page,
		"Unit":      Unit,
	}
}
