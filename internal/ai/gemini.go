package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeminiClient identifies bottles from a label photo or a free-text name,
// asking the model for structured JSON.
type GeminiClient struct {
	APIKey string
	Model  string
	HTTP   *http.Client
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func NewGemini(apiKey, model string) *GeminiClient {
	return &GeminiClient{APIKey: apiKey, Model: model, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

const alcoholInfoSchema = `{
  "name": "正式な商品名",
  "type": "種類（日本酒、ワイン、ビール、ウイスキー、焼酎、ブランデー、ジン、ラム、テキーラ、リキュール、その他）",
  "subtype": "サブタイプ（例: 純米大吟醸、カベルネ・ソーヴィニヨン、IPA等）",
  "brand": "ブランド名",
  "producer": "製造者・蔵元",
  "origin_country": "原産国",
  "origin_region": "産地（都道府県や地域）",
  "alcohol_percentage": アルコール度数（数値のみ）,
  "price_range": "価格帯（例: 1000-2000円、3000円前後）",
  "characteristics": ["特徴1", "特徴2", "特徴3"]
}`

var identifyPrompt = `あなたはお酒の専門家です。与えられた情報（画像またはテキスト）からお酒を特定し、詳細情報を提供してください。

## 回答形式

以下のJSON形式で回答してください（日本語で）：

### 一意に特定できる場合:
{
  "unique": true,
  "result": ` + alcoholInfoSchema + `
}

### 候補が複数ある場合（同名の銘柄で種類や等級が異なるものがある場合など）:
{
  "unique": false,
  "result": null,
  "candidates": [` + alcoholInfoSchema + `]
}

## 重要なルール

1. 画像から明確にラベルが読み取れる場合は unique: true で1件だけ返す
2. テキスト検索で同名のお酒に複数のバリエーション（等級違い、年代違い等）がある場合は candidates で最大5件返す
3. 不明な項目はnullにする
4. 推測できる場合は推測してよい
5. candidatesは人気度や一般的な認知度が高い順に並べる`

var alternativesPrompt = `あなたはお酒の専門家です。ユーザーが探しているお酒の候補を提供してください。

## 状況

ユーザーは以下の情報でお酒を検索しました。最初の候補「{rejectedName}」は違うかもしれないので、
他の候補も含めて選択肢を提供してください。

## 回答形式

必ず以下のJSON形式で複数の候補を返してください（日本語で）：
{
  "unique": false,
  "result": null,
  "candidates": [` + alcoholInfoSchema + `]
}

## 重要なルール

1. 「{rejectedName}」も候補の1つとして含める（誤タップの可能性があるため）
2. 同じブランドの別バリエーション、似た名前の別銘柄、同じ蔵元の別商品なども含める
3. candidatesは人気度や一般的な認知度が高い順に並べる
4. 最大5件まで返す`

// Analyze runs one identification query and normalizes the model's reply.
// Legacy replies without a "unique" field are treated as a single confident
// match; candidate lists are capped at MaxCandidates.
func (g *GeminiClient) Analyze(ctx context.Context, q Query) (*Result, error) {
	parts, err := g.buildParts(ctx, q)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", g.Model, g.APIKey)
	payload := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	}
	b, _ := json.Marshal(payload)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	res, err := g.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini status %d", res.StatusCode)
	}
	var out generateContentResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no content")
	}
	return ParseResult([]byte(out.Candidates[0].Content.Parts[0].Text))
}

func (g *GeminiClient) buildParts(ctx context.Context, q Query) ([]part, error) {
	alternatives := q.RejectedName != ""
	var parts []part

	if q.HasImage() {
		data := q.ImageBase64
		mime := "image/jpeg"
		if data == "" {
			var err error
			data, mime, err = g.fetchImage(ctx, q.ImageURL)
			if err != nil {
				return nil, err
			}
		}
		parts = append(parts, part{InlineData: &inlineData{MimeType: mime, Data: data}})
		if alternatives {
			prompt := strings.ReplaceAll(alternativesPrompt, "{rejectedName}", q.RejectedName)
			parts = append(parts, part{Text: prompt + fmt.Sprintf("\n\nこの画像のお酒について、「%s」を含む候補を提供してください。", q.RejectedName)})
		} else {
			parts = append(parts, part{Text: identifyPrompt + "\n\nこの画像のお酒ラベルから情報を抽出してください。ラベルが明確に読み取れる場合は unique: true で返してください。"})
		}
		return parts, nil
	}

	typeText := ""
	if q.Type != "" {
		typeText = "種類: " + q.Type
	}
	if alternatives {
		prompt := strings.ReplaceAll(alternativesPrompt, "{rejectedName}", q.RejectedName)
		parts = append(parts, part{Text: prompt + fmt.Sprintf("\n\n検索情報：\n銘柄名: %s\n%s", q.Text, typeText)})
	} else {
		parts = append(parts, part{Text: identifyPrompt + fmt.Sprintf("\n\n以下のお酒について情報を教えてください：\n銘柄名: %s\n%s\n\n同名で複数のバリエーション（等級違い、種類違い等）がある場合は candidates として最大5件返してください。", q.Text, typeText)})
	}
	return parts, nil
}

// fetchImage downloads the photo and re-encodes it for the inline payload.
func (g *GeminiClient) fetchImage(ctx context.Context, url string) (data, mime string, err error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := g.HTTP.Do(req)
	if err != nil {
		return "", "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("image fetch status %d", res.StatusCode)
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", "", err
	}
	mime = res.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return base64.StdEncoding.EncodeToString(raw), mime, nil
}

// ParseResult decodes the model's JSON reply. Some replies wrap the JSON in
// prose; the first {...} block is extracted as a fallback. A bare AlcoholInfo
// (the pre-"unique" response shape) is normalized to a confident match.
func ParseResult(raw []byte) (*Result, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		start := bytes.IndexByte(raw, '{')
		end := bytes.LastIndexByte(raw, '}')
		if start < 0 || end <= start {
			return nil, fmt.Errorf("parse analyze response: %w", err)
		}
		raw = raw[start : end+1]
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("parse analyze response: %w", err)
		}
	}

	if _, ok := probe["unique"]; !ok {
		var legacy AlcoholInfo
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("parse legacy analyze response: %w", err)
		}
		return &Result{Unique: true, Result: &legacy}, nil
	}

	var out Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse analyze response: %w", err)
	}
	if len(out.Candidates) > MaxCandidates {
		out.Candidates = out.Candidates[:MaxCandidates]
	}
	return &out, nil
}
