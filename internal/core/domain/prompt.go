package domain

import (
	"strings"
	"time"
)

const (
	// DatePlaceholder is the only token recognized inside a template.
	DatePlaceholder = "{date}"
	// CorpusSeparator sits between the rendered instructions and the corpus text.
	CorpusSeparator = "\n\n【以下是 PDF 內容】：\n"
	// ReportDateLayout renders year, month and day the way the digest header expects.
	ReportDateLayout = "2006年01月02日"
)

type PromptTemplate struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

func FormatReportDate(date time.Time) string {
	return date.Format(ReportDateLayout)
}

// Render replaces every date placeholder. A template without the placeholder renders unchanged.
func (t PromptTemplate) Render(date time.Time) string {
	return strings.ReplaceAll(t.Content, DatePlaceholder, FormatReportDate(date))
}

func (t PromptTemplate) HasPlaceholder() bool {
	return strings.Contains(t.Content, DatePlaceholder)
}

type AssembledPrompt struct {
	Instructions string `json:"instructions"`
	CorpusText   string `json:"corpus_text"`
}

func (p AssembledPrompt) Text() string {
	return p.Instructions + CorpusSeparator + p.CorpusText
}

// DefaultTemplate is the Japanese-equity foreign wire digest instruction.
const DefaultTemplate = `
請你扮演「元大證券國際金融部研究員」，根據我上傳的 PDF 券商報告（內容附在最後），整理成「日股外電格式」。
請完整依照以下規範輸出：

【輸出格式規範】
1️⃣ 開頭固定：
早安！{date} 日股外電整理 元大證券國金部

2️⃣ 個股格式（每檔公司兩段）
🇯🇵[公司代號 公司名稱 (英文名)]
第一段（150–170字）：
整理美系／日系券商的分析摘要，說明
- 產業趨勢
- 公司展望
- 次季動能
- 成長關鍵
不得提及目標價與評級。

第二段（80–100字）：
第一句一定要寫：
「美系／日系券商將目標價（上調／下調／維持）至 OOOO 日圓，評級維持不變。」
後續補充：
- 券商調整原因（估值、基本面、成本、成長預期）
- 市場關注風險與主軸。

3️⃣ 券商名稱規則
- 若為美系券商 → 統一寫「美系券商」
- 若為日系券商 → 統一寫「日系券商」
不得出現券商名字。

4️⃣ 內容規範
- 不得出現 PDF 檔名或報告完整標題尾巴
- 不得出現主觀推薦語氣
- 數字、年份、日圓金額請保留
- 如為產業主題報告 → 以「產業分析」方式撰寫（篇幅與公司相同）
- 空行與段落格式務必如下範例：

【格式範例如下，請完全複製此排版】

早安！{date} 日股外電整理 元大證券國金部
🇯🇵6098 Recruit Holdings (Recruit Holdings)

（150–170字的第一段）

（80–100字的第二段）

🇯🇵8984 大和房屋 REIT (Daiwa House REIT)

（第一段）

（第二段）

以上資料為元大證券依上手提供研究報告摘譯，僅供內部教育訓練使用。

5️⃣ 字數提示
- 每家公司共 230–260 字
- 產業報告可略長但同風格
- 段落之間需空一行（格式務必與範例一致）`
