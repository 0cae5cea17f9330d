package usecase

import (
	"time"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

// AssemblePrompt renders the template for the report date and appends the corpus.
func AssemblePrompt(tpl domain.PromptTemplate, date time.Time, corpus domain.Corpus) domain.AssembledPrompt {
	return domain.AssembledPrompt{
		Instructions: tpl.Render(date),
		CorpusText:   corpus.Text(),
	}
}
