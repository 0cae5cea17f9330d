package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

var reportDate = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

func TestAssemblePromptSubstitutesDate(t *testing.T) {
	corpus := domain.Corpus{Blocks: []domain.CorpusBlock{{Name: "a.pdf", Text: "Foo"}}}
	prompt := AssemblePrompt(domain.PromptTemplate{Content: "Hello {date}."}, reportDate, corpus)

	if prompt.Instructions != "Hello 2024年03月05日." {
		t.Fatalf("unexpected instructions: %q", prompt.Instructions)
	}
	want := "Hello 2024年03月05日." + domain.CorpusSeparator + "\n\n=== a.pdf ===\nFoo\n"
	if prompt.Text() != want {
		t.Fatalf("unexpected prompt text:\n%q\nwant\n%q", prompt.Text(), want)
	}
}

func TestAssemblePromptReplacesEveryPlaceholder(t *testing.T) {
	prompt := AssemblePrompt(domain.PromptTemplate{Content: "{date} / {date}"}, reportDate, domain.Corpus{})
	if prompt.Instructions != "2024年03月05日 / 2024年03月05日" {
		t.Fatalf("unexpected instructions: %q", prompt.Instructions)
	}
	if strings.Contains(prompt.Text(), domain.DatePlaceholder) {
		t.Fatalf("placeholder leaked into prompt: %q", prompt.Text())
	}
}

func TestAssemblePromptSubstitutionIsIdempotent(t *testing.T) {
	once := domain.PromptTemplate{Content: "早安！{date} 日股外電整理"}.Render(reportDate)
	twice := domain.PromptTemplate{Content: once}.Render(reportDate)
	if once != twice {
		t.Fatalf("expected idempotent substitution, got %q and %q", once, twice)
	}
}

func TestAssemblePromptWithoutPlaceholderPassesThrough(t *testing.T) {
	tpl := domain.PromptTemplate{Content: "Summarize {company} reports"}
	prompt := AssemblePrompt(tpl, reportDate, domain.Corpus{})

	if prompt.Instructions != "Summarize {company} reports" {
		t.Fatalf("unexpected instructions: %q", prompt.Instructions)
	}
	if tpl.HasPlaceholder() {
		t.Fatalf("template must not report a placeholder")
	}
}

func TestAssemblePromptAppendsSeparatorForEmptyCorpus(t *testing.T) {
	prompt := AssemblePrompt(domain.PromptTemplate{Content: "x"}, reportDate, domain.Corpus{})
	if prompt.Text() != "x"+domain.CorpusSeparator {
		t.Fatalf("unexpected prompt text: %q", prompt.Text())
	}
}

func TestDefaultTemplateRendersHeaderDate(t *testing.T) {
	rendered := domain.PromptTemplate{Content: domain.DefaultTemplate}.Render(reportDate)
	if strings.Contains(rendered, domain.DatePlaceholder) {
		t.Fatalf("default template left a placeholder")
	}
	if strings.Count(rendered, "早安！2024年03月05日 日股外電整理") != 2 {
		t.Fatalf("expected the header date twice in the default template")
	}
}
